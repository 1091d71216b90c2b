// Package selector turns a ranked score list into a budget-bounded,
// conflict-resolved selection. Selection is the longest prefix of the
// ranked list that fits the budget, stopping permanently at the first
// overflow rather than skipping ahead; this sacrifices bin-packing
// efficiency but guarantees budget monotonicity: the selection for a
// smaller budget is always a prefix of the selection for a larger one.
package selector

import (
	skilltypes "github.com/jingkaihe/skillet/pkg/types/skills"
)

// Select applies pinning, exclusion, the budget prefix rule, and
// conflict-group resolution to the ranked scores.
//
// Pinned ids are included first, in the order given, and are never dropped
// for budget reasons: a caller pinning more than the budget allows gets the
// full pinned set plus a truncation diagnostic. Excluded ids are removed
// before prefix selection. Conflict resolution demotes the lower-ranked of
// any two selected skills sharing a conflict group and re-applies the
// prefix rule, iterating to a fixed point.
func Select(corpus *skilltypes.Corpus, ranked []skilltypes.MatchScore, query skilltypes.Query) skilltypes.Selection {
	sel := skilltypes.Selection{
		Reasons: make(map[string]skilltypes.Reason),
	}

	excluded := make(map[string]bool, len(query.Excluded))
	for _, id := range query.Excluded {
		excluded[id] = true
	}

	// Pinned skills consume budget first. Unknown ids are ignored: pinning
	// is an override of ranking, not a way to conjure skills the corpus
	// does not have.
	var pinned []string
	pinnedSet := make(map[string]bool, len(query.Pinned))
	pinnedCost := 0
	for _, id := range query.Pinned {
		if excluded[id] || pinnedSet[id] {
			continue
		}
		skill, ok := corpus.Get(id)
		if !ok {
			continue
		}
		pinnedSet[id] = true
		pinned = append(pinned, id)
		pinnedCost += skill.BodySize + skilltypes.SeparatorOverhead
		sel.Reasons[id] = skilltypes.ReasonPinned
	}

	if pinnedCost > query.BudgetChars {
		sel.Truncated = true
		sel.BudgetTooSmall = true
	}

	// Ranked candidates, with excluded and already-pinned ids removed
	candidates := make([]string, 0, len(ranked))
	for _, ms := range ranked {
		if excluded[ms.SkillID] || pinnedSet[ms.SkillID] {
			continue
		}
		candidates = append(candidates, ms.SkillID)
	}

	remaining := query.BudgetChars - pinnedCost
	if remaining < 0 {
		remaining = 0
	}

	// Conflict groups claimed by pinned skills win outright; pins are never
	// demoted, not even against each other.
	pinnedGroups := make(map[string]bool)
	for _, id := range pinned {
		skill, _ := corpus.Get(id)
		if skill.ConflictGroup != "" {
			pinnedGroups[skill.ConflictGroup] = true
		}
	}

	demoted := make(map[string]bool)
	var included []string

	// Each iteration strictly shrinks the candidate set, so the fixed point
	// is reached in at most corpus-size iterations.
	for {
		included = included[:0]
		budget := remaining
		overflowed := false
		for _, id := range candidates {
			if demoted[id] {
				continue
			}
			skill, _ := corpus.Get(id)
			cost := skill.BodySize + skilltypes.SeparatorOverhead
			if overflowed || cost > budget {
				overflowed = true
				sel.Reasons[id] = skilltypes.ReasonExcludedByBudget
				continue
			}
			budget -= cost
			included = append(included, id)
			sel.Reasons[id] = skilltypes.ReasonRanked
		}

		conflicted := false
		claimed := make(map[string]bool, len(pinnedGroups))
		for g := range pinnedGroups {
			claimed[g] = true
		}
		for _, id := range included {
			skill, _ := corpus.Get(id)
			g := skill.ConflictGroup
			if g == "" {
				continue
			}
			if claimed[g] {
				demoted[id] = true
				sel.Reasons[id] = skilltypes.ReasonExcludedByConflict
				conflicted = true
				continue
			}
			claimed[g] = true
		}

		if !conflicted {
			break
		}
	}

	if len(included) == 0 && len(candidates) > 0 && !allDemoted(candidates, demoted) {
		sel.BudgetTooSmall = true
	}

	sel.Included = append(pinned, included...)
	return sel
}

func allDemoted(candidates []string, demoted map[string]bool) bool {
	for _, id := range candidates {
		if !demoted[id] {
			return false
		}
	}
	return true
}
