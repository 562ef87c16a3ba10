package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideagraph-backend/internal/config"
	"ideagraph-backend/internal/domain"
	"ideagraph-backend/internal/observability"
)

func mockConfig() *config.Config {
	cfg := config.Default()
	cfg.LLM.UseMock = true
	cfg.Logging.Level = "error"
	return cfg
}

func TestNewRequiresCredentialsOrMock(t *testing.T) {
	observability.ResetForTesting()
	cfg := config.Default()
	cfg.LLM.UseMock = false
	cfg.LLM.APIKey = ""

	_, err := New(cfg, "")
	assert.Error(t, err)
}

func TestContainerEndToEnd(t *testing.T) {
	observability.ResetForTesting()
	c, err := New(mockConfig(), "")
	require.NoError(t, err)
	defer c.Close()

	diff, err := c.Pipeline.Process(context.Background(), domain.TranscriptChunk{
		Text:     "We should adopt OAuth2 for login. The mobile app needs offline mode.",
		TenantID: "m1",
		ChunkID:  "c1",
	})
	require.NoError(t, err)

	// The mock provider splits the chunk into sentence-level ideas and
	// the first placement goes under the announced root.
	require.GreaterOrEqual(t, len(diff.Nodes), 2)
	assert.Equal(t, "root_m1", diff.Nodes[0].ID)
	assert.Equal(t, "root_m1", diff.Nodes[1].ParentID)
	assert.Equal(t, 1, diff.Nodes[1].Depth)
	assert.NotEmpty(t, diff.Nodes[1].ClusterColor)

	snap := c.Pipeline.Snapshot("m1")
	assert.Len(t, snap.Nodes, len(diff.Nodes))
}
