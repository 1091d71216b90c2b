package composer

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	skilltypes "github.com/jingkaihe/skillet/pkg/types/skills"
)

func testCorpus() *skilltypes.Corpus {
	return skilltypes.NewCorpus(7, "snap-7", []skilltypes.Skill{
		{ID: "alpha", Name: "alpha", Description: "a", BodyContent: "alpha body", BodySize: 10},
		{ID: "beta", Name: "beta", Description: "b", BodyContent: "beta body", BodySize: 9},
	})
}

func TestCompose(t *testing.T) {
	sel := skilltypes.Selection{
		Included: []string{"beta", "alpha"},
		Reasons: map[string]skilltypes.Reason{
			"beta":  skilltypes.ReasonPinned,
			"alpha": skilltypes.ReasonRanked,
		},
	}

	bundle, err := Compose(testCorpus(), sel)
	require.NoError(t, err)

	require.Len(t, bundle.Items, 2)
	assert.Equal(t, "beta", bundle.Items[0].ID)
	assert.Equal(t, "alpha", bundle.Items[1].ID)

	assert.Contains(t, bundle.Text, "## Skill: beta")
	assert.Contains(t, bundle.Text, "beta body")
	assert.Contains(t, bundle.Text, "## Skill: alpha")

	assert.Equal(t, uint64(7), bundle.Diagnostics.SnapshotVersion)
	assert.Equal(t, []string{"beta", "alpha"}, bundle.Diagnostics.SelectedIDs)
	assert.Equal(t, skilltypes.ReasonPinned, bundle.Diagnostics.Reasons["beta"])
	assert.Zero(t, bundle.Diagnostics.ExcludedCount)
}

func TestComposeExcludedCount(t *testing.T) {
	sel := skilltypes.Selection{
		Included: []string{"alpha"},
		Reasons: map[string]skilltypes.Reason{
			"alpha": skilltypes.ReasonRanked,
			"beta":  skilltypes.ReasonExcludedByBudget,
		},
	}

	bundle, err := Compose(testCorpus(), sel)
	require.NoError(t, err)
	assert.Equal(t, 1, bundle.Diagnostics.ExcludedCount)
	assert.NotContains(t, bundle.Text, "beta body", "excluded bodies are never partially emitted")
}

func TestComposeInternalConsistencyError(t *testing.T) {
	sel := skilltypes.Selection{
		Included: []string{"ghost"},
		Reasons:  map[string]skilltypes.Reason{"ghost": skilltypes.ReasonRanked},
	}

	bundle, err := Compose(testCorpus(), sel)
	assert.Nil(t, bundle)
	require.Error(t, err)
	assert.True(t, errors.Is(err, skilltypes.ErrInternalConsistency))
}

func TestComposeEmptySelection(t *testing.T) {
	bundle, err := Compose(testCorpus(), skilltypes.Selection{Reasons: map[string]skilltypes.Reason{}})
	require.NoError(t, err)
	assert.Empty(t, bundle.Items)
	assert.Empty(t, bundle.Text)
}

func TestComposeDeterministic(t *testing.T) {
	sel := skilltypes.Selection{
		Included: []string{"alpha", "beta"},
		Reasons: map[string]skilltypes.Reason{
			"alpha": skilltypes.ReasonRanked,
			"beta":  skilltypes.ReasonRanked,
		},
	}

	first, err := Compose(testCorpus(), sel)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Compose(testCorpus(), sel)
		require.NoError(t, err)
		assert.Equal(t, first.Text, again.Text)
		assert.Equal(t, first.Items, again.Items)
	}
}
