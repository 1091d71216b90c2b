package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillet/pkg/index"
	skilltypes "github.com/jingkaihe/skillet/pkg/types/skills"
)

func buildIndex(skills ...skilltypes.Skill) *index.Index {
	return index.Build(skilltypes.NewCorpus(1, "snap-1", skills))
}

func TestScoreRanking(t *testing.T) {
	ix := buildIndex(
		skilltypes.Skill{ID: "fastapi", Name: "fastapi", Description: "fastapi best practices with pydantic"},
		skilltypes.Skill{ID: "javascript", Name: "javascript", Description: "javascript typescript development"},
		skilltypes.Skill{ID: "python", Name: "python", Description: "python development best practices"},
	)

	scores := Score(ix, "best practices for fastapi pydantic models")
	require.Len(t, scores, 2, "zero-score skills must be omitted")

	assert.Equal(t, "fastapi", scores[0].SkillID)
	assert.Equal(t, 4, scores[0].MatchedTokenCount)
	assert.Equal(t, "python", scores[1].SkillID)
	assert.Equal(t, 2, scores[1].MatchedTokenCount)
	assert.Greater(t, scores[0].Score, scores[1].Score)
}

func TestScoreRareTokensWeighMore(t *testing.T) {
	ix := buildIndex(
		skilltypes.Skill{ID: "a", Name: "a1", Description: "code review guidance for code quality"},
		skilltypes.Skill{ID: "b", Name: "b1", Description: "code style conventions"},
		skilltypes.Skill{ID: "c", Name: "c1", Description: "terraform modules and code"},
	)

	// "terraform" appears in one skill, "code" in all three: the skill
	// matching the rare token must outrank one matching only the common one.
	scores := Score(ix, "terraform code")
	require.Len(t, scores, 3)
	assert.Equal(t, "c", scores[0].SkillID)
}

func TestScoreTieBreakByDescriptionLength(t *testing.T) {
	ix := buildIndex(
		skilltypes.Skill{ID: "long", Name: "long", Description: "caching strategies for distributed systems and more"},
		skilltypes.Skill{ID: "short", Name: "short", Description: "caching strategies"},
	)

	scores := Score(ix, "caching strategies")
	require.Len(t, scores, 2)
	// Same matched tokens and score; the more specific trigger wins
	assert.Equal(t, "short", scores[0].SkillID)
	assert.Equal(t, "long", scores[1].SkillID)
}

func TestScoreTieBreakLexicographic(t *testing.T) {
	ix := buildIndex(
		skilltypes.Skill{ID: "bravo", Name: "bravo", Description: "linting"},
		skilltypes.Skill{ID: "alpha", Name: "alpha", Description: "vetting"},
	)

	// Neither matches: empty result, not a lexicographic question
	assert.Empty(t, Score(ix, "deployment"))

	ix = buildIndex(
		skilltypes.Skill{ID: "bravo", Name: "bravo", Description: "linting"},
		skilltypes.Skill{ID: "alpha", Name: "alpha", Description: "linting"},
	)
	scores := Score(ix, "linting")
	require.Len(t, scores, 2)
	assert.Equal(t, "alpha", scores[0].SkillID)
	assert.Equal(t, "bravo", scores[1].SkillID)
}

func TestScoreDeterministic(t *testing.T) {
	ix := buildIndex(
		skilltypes.Skill{ID: "fastapi", Name: "fastapi", Description: "fastapi best practices with pydantic"},
		skilltypes.Skill{ID: "javascript", Name: "javascript", Description: "javascript typescript development"},
		skilltypes.Skill{ID: "python", Name: "python", Description: "python development best practices"},
	)

	first := Score(ix, "python development best practices")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(ix, "python development best practices"))
	}
}

func TestScoreEmptyQuery(t *testing.T) {
	ix := buildIndex(
		skilltypes.Skill{ID: "a", Name: "a1", Description: "anything"},
	)
	assert.Empty(t, Score(ix, ""))
	assert.Empty(t, Score(ix, "!!! ??"))
}

func TestScoreRepeatedQueryTokensCountOnce(t *testing.T) {
	ix := buildIndex(
		skilltypes.Skill{ID: "a", Name: "a1", Description: "caching guidance"},
	)

	once := Score(ix, "caching")
	repeated := Score(ix, "caching caching caching")
	require.Len(t, once, 1)
	require.Len(t, repeated, 1)
	assert.Equal(t, once[0].Score, repeated[0].Score)
	assert.Equal(t, once[0].MatchedTokenCount, repeated[0].MatchedTokenCount)
}
