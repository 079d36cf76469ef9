package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoster/trailnet/internal/models"
)

func TestCompositionInitDirect(t *testing.T) {
	ci := NewCompositionIndex()
	ci.InitDirect(1, uuidA, "Marshall Valley", 0, 1.4)

	comp := ci.Lookup(1)
	require.Len(t, comp, 1)
	assert.Equal(t, uuidA, comp[0].TrailUUID)
	assert.Equal(t, 100.0, comp[0].Percentage)
	assert.Equal(t, 1, comp[0].Ordinal)
	assert.Equal(t, models.CompositionDirect, comp[0].CompositionType)
}

func TestCompositionMerge(t *testing.T) {
	ci := NewCompositionIndex()
	ci.InitDirect(1, uuidA, "Marshall Valley", 0, 1.0)
	ci.InitDirect(2, uuidB, "Marshall Valley", 0, 3.0)

	require.NoError(t, ci.Merge(10, []int64{1, 2}, models.CompositionMerged))

	assert.Empty(t, ci.Lookup(1), "source entries removed")
	assert.Empty(t, ci.Lookup(2))

	comp := ci.Lookup(10)
	require.Len(t, comp, 2)
	assert.Equal(t, uuidA, comp[0].TrailUUID)
	assert.Equal(t, 1, comp[0].Ordinal)
	assert.Equal(t, 2, comp[1].Ordinal)
	assert.InDelta(t, 25, comp[0].Percentage, 0.01)
	assert.InDelta(t, 75, comp[1].Percentage, 0.01)
}

func TestCompositionMergeOfMerged(t *testing.T) {
	// Merging a merged edge flattens its entries in order.
	ci := NewCompositionIndex()
	ci.InitDirect(1, uuidA, "A", 0, 1.0)
	ci.InitDirect(2, uuidB, "B", 0, 1.0)
	ci.InitDirect(3, uuidC, "C", 0, 2.0)
	require.NoError(t, ci.Merge(10, []int64{1, 2}, models.CompositionMerged))
	require.NoError(t, ci.Merge(11, []int64{10, 3}, models.CompositionMerged))

	comp := ci.Lookup(11)
	require.Len(t, comp, 3)
	assert.Equal(t, []string{uuidA, uuidB, uuidC},
		[]string{comp[0].TrailUUID, comp[1].TrailUUID, comp[2].TrailUUID})
	assert.InDelta(t, 50, comp[2].Percentage, 0.01)
}

func TestCompositionMergeUnknownSource(t *testing.T) {
	ci := NewCompositionIndex()
	ci.InitDirect(1, uuidA, "A", 0, 1.0)

	err := ci.Merge(10, []int64{1, 99}, models.CompositionMerged)
	assert.ErrorIs(t, err, ErrTopologyInconsistency)
}

func TestCompositionSummarize(t *testing.T) {
	ci := NewCompositionIndex()
	ci.InitDirect(1, uuidA, "Marshall Valley", 0, 3.0)
	ci.InitDirect(2, uuidB, "North Spur", 0, 1.0)

	shares := ci.Summarize([]int64{1, 2})
	require.Len(t, shares, 2)
	assert.Equal(t, uuidA, shares[0].TrailUUID, "largest share first")
	assert.InDelta(t, 75, shares[0].Percentage, 0.01)
	assert.InDelta(t, 25, shares[1].Percentage, 0.01)
}

func TestCompositionValidate(t *testing.T) {
	out, err := buildGraph([]models.SplitTrail{
		seg(uuidA, "Mesa", 1, -105.300, 40.000, -105.290, 40.000),
	})
	require.NoError(t, err)
	g := out.Graph

	t.Run("clean state passes", func(t *testing.T) {
		assert.NoError(t, out.Composition.Validate(g))
	})

	t.Run("edge without composition fails", func(t *testing.T) {
		ci := NewCompositionIndex()
		assert.ErrorIs(t, ci.Validate(g), ErrTopologyInconsistency)
	})

	t.Run("orphan composition fails", func(t *testing.T) {
		ci := NewCompositionIndex()
		ci.InitDirect(g.EdgeIDs()[0], uuidA, "Mesa", 0, 1)
		ci.InitDirect(999, uuidB, "Ghost", 0, 1)
		assert.ErrorIs(t, ci.Validate(g), ErrTopologyInconsistency)
	})
}
