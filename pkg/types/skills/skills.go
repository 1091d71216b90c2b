// Package skills defines the shared data model for the skill discovery and
// context-injection engine: skill records, corpus snapshots, queries,
// selections, and the final bundle handed to the consuming agent.
package skills

import (
	"strings"
	"unicode"
)

// Skill represents a single loaded skill document
type Skill struct {
	ID            string // Stable identifier derived from Name
	Name          string // Name from frontmatter
	Description   string // Trigger phrase used for relevance matching
	Version       string // Optional version from frontmatter
	BodySize      int    // Byte length of BodyContent
	BodyContent   string // Guidance body (frontmatter stripped)
	Priority      int    // Optional declared priority, 0 when absent
	ConflictGroup string // Optional conflict-group tag, empty when absent
}

// Corpus is an immutable, ordered collection of skills. A reload produces a
// new Corpus value; existing values are never mutated in place.
type Corpus struct {
	SnapshotVersion uint64  // Monotonically increasing per engine
	SnapshotID      string  // Unique identifier for log correlation
	Skills          []Skill // Sorted by ID
	byID            map[string]int
}

// NewCorpus creates a corpus over skills already sorted by ID
func NewCorpus(snapshotVersion uint64, snapshotID string, sorted []Skill) *Corpus {
	byID := make(map[string]int, len(sorted))
	for i, s := range sorted {
		byID[s.ID] = i
	}
	return &Corpus{
		SnapshotVersion: snapshotVersion,
		SnapshotID:      snapshotID,
		Skills:          sorted,
		byID:            byID,
	}
}

// Get returns the skill with the given id
func (c *Corpus) Get(id string) (Skill, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Skill{}, false
	}
	return c.Skills[i], true
}

// Len returns the number of skills in the corpus
func (c *Corpus) Len() int {
	return len(c.Skills)
}

// SlugID derives the stable skill id from its frontmatter name: lowercase
// with runs of non-alphanumeric characters collapsed to a single hyphen.
func SlugID(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingHyphen := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		} else {
			pendingHyphen = true
		}
	}
	return b.String()
}

// Query is a single match request against a corpus snapshot
type Query struct {
	ContextText string   // Free text describing the task at hand
	BudgetChars int      // Maximum combined body size to emit, must be > 0
	Pinned      []string // Skill ids force-included ahead of ranking
	Excluded    []string // Skill ids removed before selection
}

// MatchScore is the per-skill result of scoring one query
type MatchScore struct {
	SkillID           string
	Score             float64
	MatchedTokenCount int
}

// Reason explains why a skill was or was not included in a selection
type Reason string

const (
	// ReasonPinned marks a skill included because the caller pinned it
	ReasonPinned Reason = "pinned"
	// ReasonRanked marks a skill included through relevance ranking
	ReasonRanked Reason = "ranked"
	// ReasonExcludedByBudget marks a skill dropped by the budget prefix rule
	ReasonExcludedByBudget Reason = "excluded-by-budget"
	// ReasonExcludedByConflict marks a skill demoted by conflict resolution
	ReasonExcludedByConflict Reason = "excluded-by-conflict"
)

// SeparatorOverhead is the fixed per-item overhead charged against the
// budget for the separator and heading the composer renders around each
// skill body. Selector accounting and composer rendering share this value.
const SeparatorOverhead = 32

// Selection is the externally observable result of the selector: the ids to
// include, in order, plus a reason for every candidate considered.
type Selection struct {
	Included       []string          // Skill ids in final bundle order
	Reasons        map[string]Reason // Reason per considered skill id
	Truncated      bool              // Pinned content alone exceeded the budget
	BudgetTooSmall bool              // Nothing rankable fit the budget
}

// BundleItem is one rendered entry of the final bundle
type BundleItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BodyContent string `json:"bodyContent"`
}

// Diagnostics reports why skills were or were not included. Non-fatal
// conditions must appear here, never only in logs, since the caller's
// correctness depends on knowing what was left out.
type Diagnostics struct {
	SnapshotVersion uint64            `json:"snapshotVersion"`
	SelectedIDs     []string          `json:"selectedIds"`
	Reasons         map[string]Reason `json:"reasons"`
	ExcludedCount   int               `json:"excludedCount"`
	Truncated       bool              `json:"truncated"`
	BudgetTooSmall  bool              `json:"budgetTooSmall"`
	LoadWarnings    []string          `json:"loadWarnings,omitempty"`
}

// Bundle is the final ordered, budget-respecting output of one query
type Bundle struct {
	Items       []BundleItem `json:"items"`
	Text        string       `json:"text"`
	Diagnostics Diagnostics  `json:"diagnostics"`
}
