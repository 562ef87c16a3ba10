package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	t.Run("IdenticalVectors", func(t *testing.T) {
		sim, err := Cosine([]float32{1, 2, 3}, []float32{1, 2, 3})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sim, 1e-9)
	})

	t.Run("OrthogonalVectors", func(t *testing.T) {
		sim, err := Cosine([]float32{1, 0}, []float32{0, 1})
		require.NoError(t, err)
		assert.InDelta(t, 0.0, sim, 1e-9)
	})

	t.Run("OppositeVectors", func(t *testing.T) {
		sim, err := Cosine([]float32{1, 0}, []float32{-1, 0})
		require.NoError(t, err)
		assert.InDelta(t, -1.0, sim, 1e-9)
	})

	t.Run("KnownAngle", func(t *testing.T) {
		// cos(60°) = 0.5
		sim, err := Cosine([]float32{1, 0}, []float32{0.5, 0.8660254})
		require.NoError(t, err)
		assert.InDelta(t, 0.5, sim, 1e-6)
	})

	t.Run("ZeroVector", func(t *testing.T) {
		sim, err := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, 0.0, sim)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestMagnitude(t *testing.T) {
	assert.InDelta(t, 5.0, Magnitude([]float32{3, 4}), 1e-9)
	assert.Equal(t, 0.0, Magnitude([]float32{0, 0}))
	assert.Equal(t, 0.0, Magnitude(nil))
}
