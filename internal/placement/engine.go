// Package placement decides where a new idea attaches in the tree. The
// decision is delegated to an external oracle, which is treated as an
// unreliable collaborator: every response is validated against the
// candidate set and any failure falls back to a deterministic local
// choice. Oracle errors never propagate to callers.
package placement

import (
	"context"

	"go.uber.org/zap"

	"ideagraph-backend/internal/domain"
	"ideagraph-backend/internal/graph"
	"ideagraph-backend/internal/observability"
	"ideagraph-backend/internal/vectorstore"
)

// Candidate is one prior idea offered to the oracle, with enough context
// to judge the relationship.
type Candidate struct {
	ID         string   `json:"id"`
	Summary    string   `json:"summary"`
	Similarity float64  `json:"similarity"`
	Depth      int      `json:"depth"`
	Path       []string `json:"path"`
}

// Decision is the oracle's answer: one of the three placement types and
// a target drawn from the supplied candidates.
type Decision struct {
	Type         domain.PlacementDecision `json:"decision"`
	TargetNodeID string                   `json:"target_node_id"`
	Reason       string                   `json:"reason,omitempty"`
}

// Oracle chooses how a new idea relates to a set of candidate ideas.
type Oracle interface {
	Decide(ctx context.Context, summary string, candidates []Candidate) (Decision, error)
}

// Engine resolves a parent id for each new idea.
type Engine struct {
	graph   *graph.Store
	oracle  Oracle
	logger  *zap.Logger
	metrics *observability.Collector
}

// NewEngine creates a placement engine over the given graph and oracle.
func NewEngine(store *graph.Store, oracle Oracle, logger *zap.Logger, metrics *observability.Collector) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewCollector("ideagraph")
	}
	return &Engine{
		graph:   store,
		oracle:  oracle,
		logger:  logger,
		metrics: metrics,
	}
}

// Decide returns the parent id for a new idea. With no similar prior
// ideas the tenant root is the parent (created on demand). Otherwise the
// oracle picks a target among the candidates: continuation and resolution
// attach the idea as a child of the target, branch as a sibling. Invalid
// or failed oracle responses fall back to the most similar candidate's
// parent, then to the root. The returned id always resolves.
func (e *Engine) Decide(ctx context.Context, summary string, similar []vectorstore.Match, tenantID string) string {
	if len(similar) == 0 {
		root, _ := e.graph.GetOrCreateRoot(tenantID)
		return root.ID
	}

	candidates := e.buildCandidates(similar, tenantID)

	decision, err := e.oracle.Decide(ctx, summary, candidates)
	if err != nil {
		return e.fallback("oracle call failed", err, similar, tenantID)
	}
	if !decision.Type.Valid() {
		return e.fallback("unknown decision type "+string(decision.Type), nil, similar, tenantID)
	}

	target, ok := findCandidate(similar, decision.TargetNodeID)
	if !ok {
		return e.fallback("target not in candidate set: "+decision.TargetNodeID, nil, similar, tenantID)
	}

	parentID := target.Node.ID
	if decision.Type == domain.PlacementBranch {
		parentID = target.Node.ParentID
	}
	if _, err := e.graph.Node(parentID, tenantID); err != nil {
		return e.fallback("resolved parent does not exist: "+parentID, err, similar, tenantID)
	}

	e.metrics.PlacementDecisions.WithLabelValues(string(decision.Type)).Inc()
	e.logger.Debug("placement decided",
		zap.String("decision", string(decision.Type)),
		zap.String("target_id", decision.TargetNodeID),
		zap.String("parent_id", parentID),
		zap.String("tenant_id", tenantID))
	return parentID
}

// fallback resolves a parent without the oracle: the most similar
// candidate's parent when it exists, the tenant root otherwise. Fallbacks
// carry no confidence signal, so each one is logged and counted.
func (e *Engine) fallback(reason string, cause error, similar []vectorstore.Match, tenantID string) string {
	e.metrics.PlacementFallbacks.Inc()
	e.logger.Warn("placement fell back",
		zap.String("reason", reason),
		zap.Error(cause),
		zap.String("tenant_id", tenantID))

	parentID := similar[0].Node.ParentID
	if parentID != "" {
		if _, err := e.graph.Node(parentID, tenantID); err == nil {
			return parentID
		}
	}
	root, _ := e.graph.GetOrCreateRoot(tenantID)
	return root.ID
}

func (e *Engine) buildCandidates(similar []vectorstore.Match, tenantID string) []Candidate {
	candidates := make([]Candidate, 0, len(similar))
	for _, m := range similar {
		path, err := e.graph.PathToRoot(m.Node.ID, tenantID)
		if err != nil {
			path = nil
		}
		candidates = append(candidates, Candidate{
			ID:         m.Node.ID,
			Summary:    m.Node.Summary,
			Similarity: m.Similarity,
			Depth:      m.Node.Depth,
			Path:       path,
		})
	}
	return candidates
}

func findCandidate(similar []vectorstore.Match, id string) (vectorstore.Match, bool) {
	if id == "" {
		return vectorstore.Match{}, false
	}
	for _, m := range similar {
		if m.Node.ID == id {
			return m, true
		}
	}
	return vectorstore.Match{}, false
}
