package embed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder returns a fixed vector per text and records call
// counts.
type countingEmbedder struct {
	vectors map[string][]float32
	calls   int
	err     error
}

func (f *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

func (f *countingEmbedder) Dimension() int { return 3 }

func TestCachedEmbed(t *testing.T) {
	inner := &countingEmbedder{vectors: map[string][]float32{
		"hello": {1, 0, 0},
	}}
	c := NewCached(inner, time.Minute, nil)

	v1, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	v2, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 0, 0}, v1)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.calls, "repeat text must not reach the provider")
}

func TestCachedEmbedBatchPartialHits(t *testing.T) {
	inner := &countingEmbedder{vectors: map[string][]float32{
		"a": {1, 0, 0},
		"b": {0, 1, 0},
		"c": {0, 0, 1},
	}}
	c := NewCached(inner, time.Minute, nil)

	_, err := c.Embed(context.Background(), "b")
	require.NoError(t, err)
	inner.calls = 0

	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, vecs)
	assert.Equal(t, 1, inner.calls, "only the misses go to the provider")

	inner.calls = 0
	_, err = c.EmbedBatch(context.Background(), []string{"c", "a"})
	require.NoError(t, err)
	assert.Equal(t, 0, inner.calls)
}

func TestCachedErrors(t *testing.T) {
	t.Run("EmptyInput", func(t *testing.T) {
		c := NewCached(&countingEmbedder{}, time.Minute, nil)
		_, err := c.Embed(context.Background(), "")
		assert.ErrorIs(t, err, ErrEmptyInput)
		_, err = c.EmbedBatch(context.Background(), nil)
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("ProviderErrorNotCached", func(t *testing.T) {
		inner := &countingEmbedder{err: assert.AnError}
		c := NewCached(inner, time.Minute, nil)

		_, err := c.Embed(context.Background(), "x")
		assert.ErrorIs(t, err, assert.AnError)

		inner.err = nil
		inner.vectors = map[string][]float32{"x": {1, 1, 1}}
		v, err := c.Embed(context.Background(), "x")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 1, 1}, v)
	})
}

func TestCachedDimension(t *testing.T) {
	c := NewCached(&countingEmbedder{}, time.Minute, nil)
	assert.Equal(t, 3, c.Dimension())
}
