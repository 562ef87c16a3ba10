package cluster

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssign(t *testing.T) {
	t.Run("FirstNodeCreatesClusterZero", func(t *testing.T) {
		a := NewAssigner(0.65, nil)

		id, created, err := a.Assign("n1", []float32{1, 0, 0}, "m1")
		require.NoError(t, err)
		assert.Equal(t, 0, id)
		assert.True(t, created)
		assert.Equal(t, []string{"n1"}, a.Members("m1", 0))

		centroid, ok := a.Centroid("m1", 0)
		require.True(t, ok)
		assert.Equal(t, []float32{1, 0, 0}, centroid)
	})

	t.Run("BelowThresholdCreatesNewCluster", func(t *testing.T) {
		a := NewAssigner(0.65, nil)
		_, _, err := a.Assign("n1", []float32{1, 0, 0}, "m1")
		require.NoError(t, err)

		// cosine to n1 is 0.4, below 0.65
		id, created, err := a.Assign("n2", []float32{0.4, 0.9165151, 0}, "m1")
		require.NoError(t, err)
		assert.Equal(t, 1, id)
		assert.True(t, created)
		assert.Equal(t, 2, a.Count("m1"))
	})

	t.Run("AboveThresholdJoinsBestCluster", func(t *testing.T) {
		a := NewAssigner(0.65, nil)
		_, _, err := a.Assign("n1", []float32{1, 0, 0}, "m1")
		require.NoError(t, err)
		_, _, err = a.Assign("n2", []float32{0.4, 0.9165151, 0}, "m1")
		require.NoError(t, err)

		// cosine to cluster 0 is 0.8, to cluster 1 is negative
		id, created, err := a.Assign("n3", []float32{0.8, -0.6, 0}, "m1")
		require.NoError(t, err)
		assert.Equal(t, 0, id)
		assert.False(t, created)
		assert.Equal(t, []string{"n1", "n3"}, a.Members("m1", 0))
	})

	t.Run("TieBreaksToLowestClusterID", func(t *testing.T) {
		a := NewAssigner(0.7, nil)
		_, _, err := a.Assign("c0", []float32{1, 0}, "m1")
		require.NoError(t, err)
		_, _, err = a.Assign("c1", []float32{0, 1}, "m1")
		require.NoError(t, err)

		// Equidistant from both centroids (cos = 0.7071 to each).
		id, created, err := a.Assign("tie", []float32{0.7071068, 0.7071068}, "m1")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, 0, id)
	})
}

func TestCentroidRunningAverage(t *testing.T) {
	a := NewAssigner(0.5, nil)

	embeddings := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0.8, 0.2, 0.1},
		{0.95, 0, 0.05},
	}
	for i, e := range embeddings {
		id, _, err := a.Assign(fmt.Sprintf("n%d", i), e, "m1")
		require.NoError(t, err)
		require.Equal(t, 0, id)
	}

	// Recompute the mean from scratch and compare.
	mean := make([]float64, 3)
	for _, e := range embeddings {
		for i, x := range e {
			mean[i] += float64(x)
		}
	}
	centroid, ok := a.Centroid("m1", 0)
	require.True(t, ok)
	for i := range mean {
		mean[i] /= float64(len(embeddings))
		assert.InDelta(t, mean[i], float64(centroid[i]), 1e-5)
	}
}

func TestMonotonicity(t *testing.T) {
	a := NewAssigner(0.65, nil)

	first, _, err := a.Assign("n1", []float32{1, 0}, "m1")
	require.NoError(t, err)

	// Later assignments shift the centroid but never move existing members.
	for i := 0; i < 10; i++ {
		_, _, err := a.Assign(fmt.Sprintf("later-%d", i), []float32{1, float32(i) * 0.01}, "m1")
		require.NoError(t, err)
	}

	assert.Contains(t, a.Members("m1", first), "n1")
	for _, c := range a.Clusters("m1") {
		if c.ID != first {
			assert.NotContains(t, c.MemberIDs, "n1")
		}
	}
}

func TestPerTenantNumbering(t *testing.T) {
	a := NewAssigner(0.65, nil)

	id1, _, err := a.Assign("a", []float32{1, 0}, "t1")
	require.NoError(t, err)
	id2, _, err := a.Assign("b", []float32{0, 1}, "t2")
	require.NoError(t, err)

	// Both tenants start numbering at 0, independently.
	assert.Equal(t, 0, id1)
	assert.Equal(t, 0, id2)
	assert.Equal(t, 1, a.Count("t1"))
	assert.Equal(t, 1, a.Count("t2"))
}

func TestReset(t *testing.T) {
	a := NewAssigner(0.65, nil)
	_, _, err := a.Assign("n1", []float32{1, 0}, "m1")
	require.NoError(t, err)

	a.Reset("m1")
	assert.Equal(t, 0, a.Count("m1"))

	// Numbering restarts after reset.
	id, created, err := a.Assign("n2", []float32{1, 0}, "m1")
	require.NoError(t, err)
	assert.Equal(t, 0, id)
	assert.True(t, created)
}

func TestColor(t *testing.T) {
	assert.Equal(t, "#FF6B6B", Color(0))
	assert.Equal(t, "#4ECDC4", Color(1))
	// Palette wraps after 20 clusters.
	assert.Equal(t, Color(0), Color(20))
	assert.Equal(t, "#CCCCCC", Color(-1))
}
