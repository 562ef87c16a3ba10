// Package pipeline orchestrates one transcript chunk end to end:
// extract ideas, embed each one, rank prior ideas, decide a parent,
// insert into the graph and assign a cluster, then emit a diff of what
// was created. A single idea's failure never aborts the chunk.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ideagraph-backend/internal/cluster"
	"ideagraph-backend/internal/domain"
	"ideagraph-backend/internal/embed"
	"ideagraph-backend/internal/graph"
	"ideagraph-backend/internal/observability"
	"ideagraph-backend/internal/placement"
	"ideagraph-backend/internal/vectorstore"
	"ideagraph-backend/pkg/errors"
)

// Extractor turns raw transcript text into short idea summaries.
// recentContext carries prior conversation; an empty result is valid.
type Extractor interface {
	Extract(ctx context.Context, text, recentContext string) ([]string, error)
}

// Options tune per-chunk behavior.
type Options struct {
	// TopK caps how many similar prior ideas are offered to the oracle.
	TopK int
	// ContextChunks is how many recent chunk texts ride along to the
	// extractor.
	ContextChunks int
	// LowSimilarity marks placements where even the best candidate
	// scored below it, for log triage. It never filters candidates.
	LowSimilarity float64
}

// tenantState serializes ingestion within one tenant and tracks what
// the tenant's consumers have already been told.
type tenantState struct {
	mu            sync.Mutex
	recent        []string
	rootAnnounced bool
}

// Pipeline drives chunk ingestion. Chunks of the same tenant are
// processed strictly one at a time; different tenants run in parallel.
type Pipeline struct {
	extractor Extractor
	embedder  embed.Embedder
	vectors   *vectorstore.Store
	clusters  *cluster.Assigner
	graph     *graph.Store
	engine    *placement.Engine
	logger    *zap.Logger
	metrics   *observability.Collector
	validate  *validator.Validate
	newID     func() string

	mu      sync.Mutex
	tenants map[string]*tenantState
	opts    Options
}

// New creates a pipeline over the given components.
func New(
	extractor Extractor,
	embedder embed.Embedder,
	vectors *vectorstore.Store,
	clusters *cluster.Assigner,
	graphStore *graph.Store,
	engine *placement.Engine,
	opts Options,
	logger *zap.Logger,
	metrics *observability.Collector,
) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = vectorstore.DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewCollector("ideagraph")
	}
	return &Pipeline{
		extractor: extractor,
		embedder:  embedder,
		vectors:   vectors,
		clusters:  clusters,
		graph:     graphStore,
		engine:    engine,
		logger:    logger,
		metrics:   metrics,
		validate:  validator.New(),
		newID:     uuid.NewString,
		tenants:   make(map[string]*tenantState),
		opts:      opts,
	}
}

// SetOptions swaps the tunable options at runtime.
func (p *Pipeline) SetOptions(opts Options) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if opts.TopK <= 0 {
		opts.TopK = vectorstore.DefaultTopK
	}
	p.opts = opts
}

func (p *Pipeline) options() Options {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts
}

// Process ingests one chunk and returns the diff of nodes and edges it
// produced. Partial failures (extraction, embedding, oracle) are
// absorbed: the diff holds whatever could be legitimately built, which
// may be nothing. Only malformed input is an error.
func (p *Pipeline) Process(ctx context.Context, chunk domain.TranscriptChunk) (domain.GraphDiff, error) {
	if err := p.validate.Struct(chunk); err != nil {
		return domain.GraphDiff{}, errors.NewValidation("invalid chunk: " + err.Error())
	}

	state := p.tenantState(chunk.TenantID)
	state.mu.Lock()
	defer state.mu.Unlock()

	start := time.Now()
	p.metrics.ChunksProcessed.Inc()
	ctx, span := observability.StartSpan(ctx, "pipeline.process", chunk.TenantID)
	defer span.End()

	opts := p.options()
	ideas := p.extractIdeas(ctx, chunk, strings.Join(state.recent, "\n"))

	var diff domain.GraphDiff
	for _, idea := range ideas {
		node, ok := p.placeIdea(ctx, idea, chunk, opts)
		if !ok {
			continue
		}
		rel := domain.EdgeRelationshipExtends
		if node.ParentID == graph.RootID(chunk.TenantID) {
			rel = domain.EdgeRelationshipRoot
		}
		diff.Nodes = append(diff.Nodes, domain.DiffNode{
			ID:           node.ID,
			Text:         node.Summary,
			Depth:        node.Depth,
			ParentID:     node.ParentID,
			ClusterID:    node.ClusterID,
			ClusterColor: cluster.Color(node.ClusterID),
		})
		diff.Edges = append(diff.Edges, domain.DiffEdge{
			From:         node.ParentID,
			To:           node.ID,
			Relationship: rel,
		})
	}

	// Announce the root exactly once per tenant, alongside the first
	// nodes, so consumers can anchor the tree.
	if !state.rootAnnounced && len(diff.Nodes) > 0 {
		root, _ := p.graph.GetOrCreateRoot(chunk.TenantID)
		diff.Nodes = append([]domain.DiffNode{{
			ID:           root.ID,
			Text:         root.Summary,
			Depth:        0,
			ClusterID:    root.ClusterID,
			ClusterColor: cluster.Color(root.ClusterID),
		}}, diff.Nodes...)
		state.rootAnnounced = true
	}

	state.recent = appendBounded(state.recent, chunk.Text, opts.ContextChunks)

	p.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("chunk processed",
		zap.String("tenant_id", chunk.TenantID),
		zap.String("chunk_id", chunk.ChunkID),
		zap.Int("ideas", len(ideas)),
		zap.Int("nodes_created", len(diff.Edges)),
		zap.Duration("elapsed", time.Since(start)))
	return diff, nil
}

// extractIdeas runs the extractor. A failure degrades to an empty idea
// list for this chunk.
func (p *Pipeline) extractIdeas(ctx context.Context, chunk domain.TranscriptChunk, recentContext string) []string {
	ctx, span := observability.StartSpan(ctx, "pipeline.extract", chunk.TenantID)
	defer span.End()

	ideas, err := p.extractor.Extract(ctx, chunk.Text, recentContext)
	if err != nil {
		p.metrics.ExtractionFailures.Inc()
		p.logger.Warn("extraction failed, treating chunk as empty",
			zap.String("tenant_id", chunk.TenantID),
			zap.String("chunk_id", chunk.ChunkID),
			zap.Error(err))
		return nil
	}
	return ideas
}

// placeIdea runs embed, rank, decide, insert and cluster for one idea
// against the live store, so an idea can attach under one created
// moments earlier in the same chunk.
func (p *Pipeline) placeIdea(ctx context.Context, idea string, chunk domain.TranscriptChunk, opts Options) (*domain.IdeaNode, bool) {
	ctx, span := observability.StartSpan(ctx, "pipeline.place_idea", chunk.TenantID)
	defer span.End()

	embedding, err := p.embedder.Embed(ctx, idea)
	if err != nil {
		p.metrics.EmbeddingFailures.Inc()
		p.logger.Warn("embedding failed, dropping idea",
			zap.String("tenant_id", chunk.TenantID),
			zap.String("idea", idea),
			zap.Error(err))
		return nil, false
	}

	matches, err := p.vectors.Rank(embedding, chunk.TenantID, opts.TopK)
	if err != nil {
		p.logger.Error("similarity ranking failed, dropping idea",
			zap.String("tenant_id", chunk.TenantID),
			zap.String("idea", idea),
			zap.Error(err))
		return nil, false
	}
	if len(matches) > 0 && matches[0].Similarity < opts.LowSimilarity {
		p.logger.Debug("low-similarity placement",
			zap.String("tenant_id", chunk.TenantID),
			zap.Float64("best_similarity", matches[0].Similarity))
	}

	parentID := p.engine.Decide(ctx, idea, matches, chunk.TenantID)

	node, err := p.graph.Insert(p.newID(), embedding, idea, parentID, chunk.TenantID, domain.NodeMetadata{
		ChunkID: chunk.ChunkID,
		Speaker: chunk.Speaker,
		Start:   chunk.Start,
		End:     chunk.End,
	})
	if err != nil {
		// The engine guarantees a resolvable parent, so this is an
		// internal invariant violation. The idea is lost, the chunk
		// continues.
		p.logger.Error("graph insert rejected",
			zap.String("tenant_id", chunk.TenantID),
			zap.String("parent_id", parentID),
			zap.Error(err))
		return nil, false
	}
	p.metrics.NodesCreated.Inc()
	p.metrics.EdgesCreated.Inc()

	if err := p.vectors.Add(node); err != nil {
		p.logger.Error("vector store add failed",
			zap.String("node_id", node.ID),
			zap.Error(err))
	}

	clusterID, created, err := p.clusters.Assign(node.ID, embedding, chunk.TenantID)
	if err != nil {
		p.logger.Error("cluster assignment failed",
			zap.String("node_id", node.ID),
			zap.Error(err))
		return node, true
	}
	if created {
		p.metrics.ClustersCreated.Inc()
	} else {
		p.metrics.ClusterJoins.Inc()
	}
	if err := p.graph.SetClusterID(node.ID, chunk.TenantID, clusterID); err != nil {
		p.logger.Error("cluster stamp failed",
			zap.String("node_id", node.ID),
			zap.Error(err))
		return node, true
	}
	node.ClusterID = clusterID
	return node, true
}

// Snapshot returns the tenant's full current graph for rehydration.
func (p *Pipeline) Snapshot(tenantID string) domain.GraphDiff {
	return p.graph.Snapshot(tenantID)
}

// Reset tears down all state for one tenant: graph, vectors, clusters
// and the rolling context. The root will be re-announced on the next
// chunk.
func (p *Pipeline) Reset(tenantID string) {
	state := p.tenantState(tenantID)
	state.mu.Lock()
	defer state.mu.Unlock()

	p.graph.Reset(tenantID)
	p.vectors.Reset(tenantID)
	p.clusters.Reset(tenantID)
	state.recent = nil
	state.rootAnnounced = false
}

func (p *Pipeline) tenantState(tenantID string) *tenantState {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.tenants[tenantID]
	if !ok {
		state = &tenantState{}
		p.tenants[tenantID] = state
	}
	return state
}

func appendBounded(items []string, item string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	items = append(items, item)
	if len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items
}
