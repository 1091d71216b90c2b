// Package matcher scores skills against a query context. Scoring is a pure
// function of (index, context text): each unique query token found in a
// skill's trigger text contributes its inverse document frequency, so
// generic words shared by many skills count less than specific ones. The
// result is a total order over candidate skills, which the selector's
// budget prefix rule depends on.
package matcher

import (
	"math"
	"sort"

	"github.com/jingkaihe/skillet/pkg/index"
	skilltypes "github.com/jingkaihe/skillet/pkg/types/skills"
)

// Score ranks every skill in the index against the context text. Skills
// with no token overlap are omitted entirely. Ties are broken by higher
// matched token count, then shorter description (the more specific trigger
// wins), then lexicographic id, guaranteeing a deterministic total order.
func Score(ix *index.Index, contextText string) []skilltypes.MatchScore {
	queryTokens := index.UniqueTokens(contextText)
	if len(queryTokens) == 0 {
		return nil
	}

	corpus := ix.Corpus()
	n := float64(corpus.Len())

	scores := make([]skilltypes.MatchScore, 0, corpus.Len())
	for _, skill := range corpus.Skills {
		var score float64
		var matched int
		for _, t := range queryTokens {
			if !ix.HasToken(skill.ID, t) {
				continue
			}
			matched++
			score += idf(n, float64(ix.DocFreq(t)))
		}
		if score == 0 {
			continue
		}
		scores = append(scores, skilltypes.MatchScore{
			SkillID:           skill.ID,
			Score:             score,
			MatchedTokenCount: matched,
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.MatchedTokenCount != b.MatchedTokenCount {
			return a.MatchedTokenCount > b.MatchedTokenCount
		}
		da, _ := corpus.Get(a.SkillID)
		db, _ := corpus.Get(b.SkillID)
		if len(da.Description) != len(db.Description) {
			return len(da.Description) < len(db.Description)
		}
		return a.SkillID < b.SkillID
	})

	return scores
}

// idf weighs a token by how rare it is across the corpus. The +1 terms keep
// the weight positive and defined for tokens present in every skill.
func idf(n, df float64) float64 {
	return math.Log((n+1)/(df+1)) + 1
}
