package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideagraph-backend/internal/cluster"
	"ideagraph-backend/internal/domain"
	"ideagraph-backend/internal/graph"
	"ideagraph-backend/internal/placement"
	"ideagraph-backend/internal/vectorstore"
	"ideagraph-backend/pkg/errors"
)

// fakeExtractor returns scripted ideas per chunk text and records the
// rolling context it was handed.
type fakeExtractor struct {
	ideas    map[string][]string
	err      error
	contexts []string
}

func (f *fakeExtractor) Extract(_ context.Context, text, recentContext string) ([]string, error) {
	f.contexts = append(f.contexts, recentContext)
	if f.err != nil {
		return nil, f.err
	}
	return f.ideas[text], nil
}

// fakeEmbedder maps exact idea text to a fixed vector.
type fakeEmbedder struct {
	vectors map[string][]float32
	failOn  string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if text == f.failOn && f.failOn != "" {
		return nil, errors.NewEmbedding("embedding unavailable", nil)
	}
	v, ok := f.vectors[text]
	if !ok {
		return nil, errors.NewEmbedding("no vector for "+text, nil)
	}
	return v, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

// scriptOracle replays a list of decision types, always targeting the
// most similar candidate.
type scriptOracle struct {
	decisions      []domain.PlacementDecision
	calls          int
	lastCandidates []placement.Candidate
}

func (o *scriptOracle) Decide(_ context.Context, _ string, candidates []placement.Candidate) (placement.Decision, error) {
	o.lastCandidates = candidates
	d := domain.PlacementContinuation
	if o.calls < len(o.decisions) {
		d = o.decisions[o.calls]
	}
	o.calls++
	return placement.Decision{Type: d, TargetNodeID: candidates[0].ID}, nil
}

type fixture struct {
	pipeline  *Pipeline
	extractor *fakeExtractor
	embedder  *fakeEmbedder
	oracle    *scriptOracle
	graph     *graph.Store
	clusters  *cluster.Assigner
	vectors   *vectorstore.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		extractor: &fakeExtractor{ideas: map[string][]string{}},
		embedder:  &fakeEmbedder{vectors: map[string][]float32{}},
		oracle:    &scriptOracle{},
		graph:     graph.NewStore(nil),
		clusters:  cluster.NewAssigner(0.65, nil),
		vectors:   vectorstore.New(3),
	}
	engine := placement.NewEngine(f.graph, f.oracle, nil, nil)
	f.pipeline = New(f.extractor, f.embedder, f.vectors, f.clusters, f.graph, engine,
		Options{TopK: 5, ContextChunks: 5}, nil, nil)

	seq := 0
	f.pipeline.newID = func() string {
		seq++
		return fmt.Sprintf("n%d", seq)
	}
	return f
}

func (f *fixture) chunk(text string) domain.TranscriptChunk {
	return domain.TranscriptChunk{Text: text, TenantID: "m1", ChunkID: "c-" + text[:1]}
}

// The three embeddings used throughout: e2 is 0.40 similar to e1, e3 is
// 0.80 similar to e1 and dissimilar to e2.
var (
	e1 = []float32{1, 0, 0}
	e2 = []float32{0.4, 0.9165151, 0}
	e3 = []float32{0.8, -0.6, 0}
)

func TestProcessFirstIdea(t *testing.T) {
	f := newFixture(t)
	f.extractor.ideas["chunk one"] = []string{"Adopt OAuth2 for login"}
	f.embedder.vectors["Adopt OAuth2 for login"] = e1

	diff, err := f.pipeline.Process(context.Background(), f.chunk("chunk one"))
	require.NoError(t, err)

	// Root announced once, then the new node.
	require.Len(t, diff.Nodes, 2)
	assert.Equal(t, "root_m1", diff.Nodes[0].ID)
	assert.Equal(t, graph.RootSummary, diff.Nodes[0].Text)
	assert.Equal(t, 0, diff.Nodes[0].Depth)

	node := diff.Nodes[1]
	assert.Equal(t, "Adopt OAuth2 for login", node.Text)
	assert.Equal(t, "root_m1", node.ParentID)
	assert.Equal(t, 1, node.Depth)
	assert.Equal(t, 0, node.ClusterID)

	require.Len(t, diff.Edges, 1)
	assert.Equal(t, domain.DiffEdge{From: "root_m1", To: node.ID, Relationship: domain.EdgeRelationshipRoot}, diff.Edges[0])

	// Cluster 0 was created with the idea's embedding as centroid.
	centroid, ok := f.clusters.Centroid("m1", 0)
	require.True(t, ok)
	assert.Equal(t, e1, centroid)

	// The oracle is not consulted when the store is empty.
	assert.Equal(t, 0, f.oracle.calls)
}

func TestProcessBranchBelowClusterThreshold(t *testing.T) {
	f := newFixture(t)
	f.extractor.ideas["chunk one"] = []string{"Adopt OAuth2 for login"}
	f.extractor.ideas["chunk two"] = []string{"Add password reset flow"}
	f.embedder.vectors["Adopt OAuth2 for login"] = e1
	f.embedder.vectors["Add password reset flow"] = e2
	f.oracle.decisions = []domain.PlacementDecision{domain.PlacementBranch}

	_, err := f.pipeline.Process(context.Background(), f.chunk("chunk one"))
	require.NoError(t, err)
	diff, err := f.pipeline.Process(context.Background(), f.chunk("chunk two"))
	require.NoError(t, err)

	// Root is not re-announced.
	require.Len(t, diff.Nodes, 1)
	node := diff.Nodes[0]

	// Branch from the first idea lands as its sibling, under the root.
	assert.Equal(t, "root_m1", node.ParentID)
	assert.Equal(t, 1, node.Depth)

	// 0.40 similarity is below the 0.65 cluster threshold.
	assert.Equal(t, 1, node.ClusterID)
	assert.Equal(t, 2, f.clusters.Count("m1"))
}

func TestProcessContinuationJoinsCluster(t *testing.T) {
	f := newFixture(t)
	f.extractor.ideas["chunk one"] = []string{"Adopt OAuth2 for login"}
	f.extractor.ideas["chunk two"] = []string{"Add password reset flow"}
	f.extractor.ideas["chunk three"] = []string{"Use OAuth2 refresh tokens"}
	f.embedder.vectors["Adopt OAuth2 for login"] = e1
	f.embedder.vectors["Add password reset flow"] = e2
	f.embedder.vectors["Use OAuth2 refresh tokens"] = e3
	f.oracle.decisions = []domain.PlacementDecision{
		domain.PlacementBranch,
		domain.PlacementContinuation,
	}

	_, err := f.pipeline.Process(context.Background(), f.chunk("chunk one"))
	require.NoError(t, err)
	_, err = f.pipeline.Process(context.Background(), f.chunk("chunk two"))
	require.NoError(t, err)
	diff, err := f.pipeline.Process(context.Background(), f.chunk("chunk three"))
	require.NoError(t, err)

	require.Len(t, diff.Nodes, 1)
	node := diff.Nodes[0]

	// Continuation of the first idea: child of n1 at depth 2.
	assert.Equal(t, "n1", node.ParentID)
	assert.Equal(t, 2, node.Depth)
	require.Len(t, diff.Edges, 1)
	assert.Equal(t, domain.EdgeRelationshipExtends, diff.Edges[0].Relationship)

	// 0.80 similarity rejoins cluster 0; centroid is now the mean of e1
	// and e3.
	assert.Equal(t, 0, node.ClusterID)
	centroid, ok := f.clusters.Centroid("m1", 0)
	require.True(t, ok)
	assert.InDelta(t, 0.9, float64(centroid[0]), 1e-6)
	assert.InDelta(t, -0.3, float64(centroid[1]), 1e-6)

	// The oracle saw the prior ideas ranked by similarity.
	require.Len(t, f.oracle.lastCandidates, 2)
	assert.Equal(t, "n1", f.oracle.lastCandidates[0].ID)
	assert.InDelta(t, 0.8, f.oracle.lastCandidates[0].Similarity, 1e-6)
}

func TestProcessIntraChunkPlacement(t *testing.T) {
	f := newFixture(t)
	f.extractor.ideas["chunk one"] = []string{"Adopt OAuth2 for login", "Use OAuth2 refresh tokens"}
	f.embedder.vectors["Adopt OAuth2 for login"] = e1
	f.embedder.vectors["Use OAuth2 refresh tokens"] = e3

	diff, err := f.pipeline.Process(context.Background(), f.chunk("chunk one"))
	require.NoError(t, err)

	// The second idea of the chunk attached under the first, created
	// moments earlier against the live store.
	require.Len(t, diff.Edges, 2)
	assert.Equal(t, "n1", diff.Edges[1].From)
	assert.Equal(t, "n2", diff.Edges[1].To)
	assert.Equal(t, domain.EdgeRelationshipExtends, diff.Edges[1].Relationship)
}

func TestProcessExtractionFailure(t *testing.T) {
	f := newFixture(t)
	f.extractor.err = errors.NewExtraction("llm down", nil)

	diff, err := f.pipeline.Process(context.Background(), f.chunk("chunk one"))
	require.NoError(t, err, "extraction failure must not surface")
	assert.True(t, diff.Empty())
	assert.Equal(t, 0, f.graph.Count("m1"))
}

func TestProcessEmbeddingFailureIsolatedPerIdea(t *testing.T) {
	f := newFixture(t)
	f.extractor.ideas["chunk one"] = []string{"first", "broken", "third"}
	f.embedder.vectors["first"] = e1
	f.embedder.vectors["third"] = e3
	f.embedder.failOn = "broken"

	diff, err := f.pipeline.Process(context.Background(), f.chunk("chunk one"))
	require.NoError(t, err)

	// The failed idea is dropped, its siblings still land.
	texts := []string{}
	for _, n := range diff.Nodes {
		texts = append(texts, n.Text)
	}
	assert.Contains(t, texts, "first")
	assert.Contains(t, texts, "third")
	assert.NotContains(t, texts, "broken")
	assert.Equal(t, 2, f.graph.Count("m1"))
}

func TestProcessEmptyIdeasIsValid(t *testing.T) {
	f := newFixture(t)
	f.extractor.ideas["chunk one"] = nil

	diff, err := f.pipeline.Process(context.Background(), f.chunk("chunk one"))
	require.NoError(t, err)
	assert.True(t, diff.Empty())
}

func TestProcessRejectsInvalidChunk(t *testing.T) {
	f := newFixture(t)
	_, err := f.pipeline.Process(context.Background(), domain.TranscriptChunk{TenantID: "m1"})
	assert.True(t, errors.IsValidation(err))
}

func TestRootAnnouncedOnce(t *testing.T) {
	f := newFixture(t)
	f.extractor.ideas["chunk one"] = []string{"Adopt OAuth2 for login"}
	f.extractor.ideas["chunk two"] = []string{"Use OAuth2 refresh tokens"}
	f.embedder.vectors["Adopt OAuth2 for login"] = e1
	f.embedder.vectors["Use OAuth2 refresh tokens"] = e3

	first, err := f.pipeline.Process(context.Background(), f.chunk("chunk one"))
	require.NoError(t, err)
	second, err := f.pipeline.Process(context.Background(), f.chunk("chunk two"))
	require.NoError(t, err)

	assert.Equal(t, "root_m1", first.Nodes[0].ID)
	for _, n := range second.Nodes {
		assert.NotEqual(t, "root_m1", n.ID)
	}
}

func TestRollingContext(t *testing.T) {
	f := newFixture(t)
	f.pipeline.SetOptions(Options{TopK: 5, ContextChunks: 2})

	for _, text := range []string{"one", "two", "three"} {
		_, err := f.pipeline.Process(context.Background(), f.chunk(text))
		require.NoError(t, err)
	}

	require.Len(t, f.extractor.contexts, 3)
	assert.Equal(t, "", f.extractor.contexts[0])
	assert.Equal(t, "one", f.extractor.contexts[1])
	assert.Equal(t, "one\ntwo", f.extractor.contexts[2])

	// The window is bounded at two chunks.
	_, err := f.pipeline.Process(context.Background(), f.chunk("four"))
	require.NoError(t, err)
	assert.Equal(t, "two\nthree", f.extractor.contexts[3])
}

func TestTenantsIndependent(t *testing.T) {
	f := newFixture(t)
	f.extractor.ideas["chunk one"] = []string{"Adopt OAuth2 for login"}
	f.embedder.vectors["Adopt OAuth2 for login"] = e1

	t1 := domain.TranscriptChunk{Text: "chunk one", TenantID: "t1", ChunkID: "c1"}
	t2 := domain.TranscriptChunk{Text: "chunk one", TenantID: "t2", ChunkID: "c1"}

	d1, err := f.pipeline.Process(context.Background(), t1)
	require.NoError(t, err)
	d2, err := f.pipeline.Process(context.Background(), t2)
	require.NoError(t, err)

	// Each tenant gets its own root announcement and cluster numbering.
	assert.Equal(t, "root_t1", d1.Nodes[0].ID)
	assert.Equal(t, "root_t2", d2.Nodes[0].ID)
	assert.Equal(t, 0, d1.Nodes[1].ClusterID)
	assert.Equal(t, 0, d2.Nodes[1].ClusterID)
	assert.Equal(t, 1, f.graph.Count("t1"))
	assert.Equal(t, 1, f.graph.Count("t2"))
}

func TestSnapshotAndReset(t *testing.T) {
	f := newFixture(t)
	f.extractor.ideas["chunk one"] = []string{"Adopt OAuth2 for login"}
	f.embedder.vectors["Adopt OAuth2 for login"] = e1

	_, err := f.pipeline.Process(context.Background(), f.chunk("chunk one"))
	require.NoError(t, err)

	snap := f.pipeline.Snapshot("m1")
	require.Len(t, snap.Nodes, 2)
	require.Len(t, snap.Edges, 1)

	f.pipeline.Reset("m1")
	cleared := f.pipeline.Snapshot("m1")
	assert.True(t, cleared.Empty())
	assert.Equal(t, 0, f.vectors.Count("m1"))
	assert.Equal(t, 0, f.clusters.Count("m1"))

	// The root is announced again after a reset.
	diff, err := f.pipeline.Process(context.Background(), f.chunk("chunk one"))
	require.NoError(t, err)
	assert.Equal(t, "root_m1", diff.Nodes[0].ID)
}
