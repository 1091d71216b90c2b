// Package index builds an immutable, queryable structure over a loaded
// corpus: an inverted token index over name+description, per-skill token
// sets and normalized frequency vectors, and per-token document
// frequencies. Built once per corpus snapshot and safe for unlimited
// concurrent readers.
package index

import (
	"sort"

	skilltypes "github.com/jingkaihe/skillet/pkg/types/skills"
)

// Index is the derived read-only structure over one corpus snapshot
type Index struct {
	corpus    *skilltypes.Corpus
	postings  map[string][]string
	docFreq   map[string]int
	tokenSets map[string]map[string]bool
	tokenFreq map[string]map[string]float64
}

// Build constructs an index over the corpus. Pure and deterministic:
// building twice from the same corpus yields structurally equal indexes.
func Build(corpus *skilltypes.Corpus) *Index {
	ix := &Index{
		corpus:    corpus,
		postings:  make(map[string][]string),
		docFreq:   make(map[string]int),
		tokenSets: make(map[string]map[string]bool, corpus.Len()),
		tokenFreq: make(map[string]map[string]float64, corpus.Len()),
	}

	for _, skill := range corpus.Skills {
		tokens := Tokenize(skill.Name + " " + skill.Description)

		counts := make(map[string]int, len(tokens))
		for _, t := range tokens {
			counts[t]++
		}

		set := make(map[string]bool, len(counts))
		freq := make(map[string]float64, len(counts))
		total := float64(len(tokens))
		for t, c := range counts {
			set[t] = true
			freq[t] = float64(c) / total
			ix.postings[t] = append(ix.postings[t], skill.ID)
			ix.docFreq[t]++
		}

		ix.tokenSets[skill.ID] = set
		ix.tokenFreq[skill.ID] = freq
	}

	// Skills are already sorted by id, but postings accumulate in corpus
	// order per token; keep them explicitly sorted so iteration order never
	// depends on map layout.
	for t := range ix.postings {
		sort.Strings(ix.postings[t])
	}

	return ix
}

// Corpus returns the snapshot this index was built from
func (ix *Index) Corpus() *skilltypes.Corpus {
	return ix.corpus
}

// Postings returns the sorted skill ids whose trigger text contains token
func (ix *Index) Postings(token string) []string {
	return ix.postings[token]
}

// DocFreq returns the number of skills whose trigger text contains token
func (ix *Index) DocFreq(token string) int {
	return ix.docFreq[token]
}

// HasToken reports whether the skill's trigger text contains token
func (ix *Index) HasToken(skillID, token string) bool {
	return ix.tokenSets[skillID][token]
}

// TokenFreq returns the skill's normalized token-frequency vector
func (ix *Index) TokenFreq(skillID string) map[string]float64 {
	return ix.tokenFreq[skillID]
}
