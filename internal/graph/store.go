// Package graph owns the per-tenant idea tree. It is the sole writer of
// parent/child relationships: Insert is the only mutation path for edges,
// so there is no separate edge table to keep in sync.
package graph

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"ideagraph-backend/internal/cluster"
	"ideagraph-backend/internal/domain"
	"ideagraph-backend/pkg/errors"
)

const (
	// GlobalRootID anchors nodes ingested without a tenant scope.
	GlobalRootID = "root"

	// RootSummary is the fixed sentinel text on every root node.
	RootSummary = "Meeting Start"
)

// RootID returns the deterministic root node id for a tenant.
func RootID(tenantID string) string {
	if tenantID == "" {
		return GlobalRootID
	}
	return "root_" + tenantID
}

// MaturityScore is a weighted 0-100 score of how developed a node's
// subtree is.
type MaturityScore struct {
	Score            float64 `json:"score"`
	DepthScore       float64 `json:"depth_score"`
	ChildrenScore    float64 `json:"children_score"`
	DescendantsScore float64 `json:"descendants_score"`
}

// InfluenceScore counts how many nodes sit below a node.
type InfluenceScore struct {
	Score    int `json:"score"`
	Direct   int `json:"direct"`
	Indirect int `json:"indirect"`
}

// Summary describes the shape of one tenant's tree.
type Summary struct {
	TotalNodes   int         `json:"total_nodes"`
	RootID       string      `json:"root_id"`
	MaxDepth     int         `json:"max_depth"`
	NodesByDepth map[int]int `json:"nodes_by_depth"`
}

// Store is an in-memory tree store. All reads filter strictly by tenant;
// node ids are globally unique across tenants so parent/child references
// are never ambiguous.
type Store struct {
	mu     sync.RWMutex
	nodes  map[string]*domain.IdeaNode
	roots  map[string]string // tenant id -> root node id
	order  []string          // non-root node ids in insertion order
	now    func() time.Time
	logger *zap.Logger
}

// NewStore creates an empty store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		nodes:  make(map[string]*domain.IdeaNode),
		roots:  make(map[string]string),
		now:    time.Now,
		logger: logger,
	}
}

// GetOrCreateRoot returns the tenant's root node, creating it on first
// call. The returned bool reports whether this call created it. Repeated
// calls for the same tenant always yield the same root id.
func (s *Store) GetOrCreateRoot(tenantID string) (*domain.IdeaNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rootID, ok := s.roots[tenantID]; ok {
		return cloneNode(s.nodes[rootID]), false
	}

	root := &domain.IdeaNode{
		ID:        RootID(tenantID),
		TenantID:  tenantID,
		Summary:   RootSummary,
		Depth:     0,
		ClusterID: domain.ClusterUnassigned,
		CreatedAt: s.now(),
	}
	s.nodes[root.ID] = root
	s.roots[tenantID] = root.ID

	s.logger.Debug("root created",
		zap.String("root_id", root.ID),
		zap.String("tenant_id", tenantID))
	return cloneNode(root), true
}

// Insert stores a new node under parentID and appends it to the parent's
// children. It fails with InvalidParent when parentID does not resolve
// within the tenant scope, and with TenantIsolation when it resolves to a
// node owned by a different tenant.
func (s *Store) Insert(nodeID string, embedding []float32, summary, parentID, tenantID string, meta domain.NodeMetadata) (*domain.IdeaNode, error) {
	if nodeID == "" {
		return nil, errors.NewValidation("node id must not be empty")
	}
	if parentID == "" {
		return nil, errors.NewInvalidParent("parent id must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[nodeID]; exists {
		return nil, errors.NewValidation("node id already exists: " + nodeID)
	}
	parent, ok := s.nodes[parentID]
	if !ok {
		return nil, errors.NewInvalidParent("parent not found: " + parentID)
	}
	if parent.TenantID != tenantID {
		return nil, errors.NewTenantIsolation("parent " + parentID + " belongs to a different tenant")
	}

	node := &domain.IdeaNode{
		ID:        nodeID,
		TenantID:  tenantID,
		Embedding: cloneVector(embedding),
		Summary:   summary,
		ParentID:  parentID,
		Depth:     parent.Depth + 1,
		ClusterID: domain.ClusterUnassigned,
		CreatedAt: s.now(),
		Metadata:  meta,
	}
	parent.ChildrenIDs = append(parent.ChildrenIDs, nodeID)
	s.nodes[nodeID] = node
	s.order = append(s.order, nodeID)

	s.logger.Debug("node inserted",
		zap.String("node_id", nodeID),
		zap.String("parent_id", parentID),
		zap.Int("depth", node.Depth),
		zap.String("tenant_id", tenantID))
	return cloneNode(node), nil
}

// Node returns a copy of the node, scoped to the tenant.
func (s *Store) Node(nodeID, tenantID string) (*domain.IdeaNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, err := s.nodeLocked(nodeID, tenantID)
	if err != nil {
		return nil, err
	}
	return cloneNode(n), nil
}

// GetAll returns the tenant's non-root nodes in insertion order. When
// includeRoot is set and the tenant has a root, it is prepended. An empty
// tenant id selects the global scope only, never any tenant's nodes.
func (s *Store) GetAll(tenantID string, includeRoot bool) []*domain.IdeaNode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.IdeaNode
	if includeRoot {
		if rootID, ok := s.roots[tenantID]; ok {
			out = append(out, cloneNode(s.nodes[rootID]))
		}
	}
	for _, id := range s.order {
		n := s.nodes[id]
		if n.TenantID == tenantID {
			out = append(out, cloneNode(n))
		}
	}
	return out
}

// Children returns copies of the node's children in insertion order.
func (s *Store) Children(nodeID, tenantID string) ([]*domain.IdeaNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.nodeLocked(nodeID, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.IdeaNode, 0, len(n.ChildrenIDs))
	for _, childID := range n.ChildrenIDs {
		out = append(out, cloneNode(s.nodes[childID]))
	}
	return out, nil
}

// PathToRoot returns node ids from the tenant root down to nodeID,
// inclusive on both ends.
func (s *Store) PathToRoot(nodeID, tenantID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.nodeLocked(nodeID, tenantID)
	if err != nil {
		return nil, err
	}
	var path []string
	for n != nil {
		path = append([]string{n.ID}, path...)
		if n.ParentID == "" {
			break
		}
		n = s.nodes[n.ParentID]
	}
	return path, nil
}

// DownwardPaths returns every path from nodeID to a leaf, depth-first in
// child insertion order. A leaf yields a single one-element path.
func (s *Store) DownwardPaths(nodeID, tenantID string) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.nodeLocked(nodeID, tenantID); err != nil {
		return nil, err
	}

	var paths [][]string
	var walk func(id string, prefix []string)
	walk = func(id string, prefix []string) {
		n := s.nodes[id]
		path := append(append([]string{}, prefix...), id)
		if len(n.ChildrenIDs) == 0 {
			paths = append(paths, path)
			return
		}
		for _, childID := range n.ChildrenIDs {
			walk(childID, path)
		}
	}
	walk(nodeID, nil)
	return paths, nil
}

// Maturity scores a node 0-100 from its depth, direct children and total
// descendant count.
func (s *Store) Maturity(nodeID, tenantID string) (MaturityScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.nodeLocked(nodeID, tenantID)
	if err != nil {
		return MaturityScore{}, err
	}
	descendants := s.countDescendantsLocked(n)

	score := MaturityScore{
		DepthScore:       min(float64(n.Depth)*10, 50),
		ChildrenScore:    min(float64(len(n.ChildrenIDs))*5, 30),
		DescendantsScore: min(float64(descendants)*2, 20),
	}
	score.Score = min(score.DepthScore+score.ChildrenScore+score.DescendantsScore, 100)
	return score, nil
}

// Influence reports direct children and indirect descendants of a node.
func (s *Store) Influence(nodeID, tenantID string) (InfluenceScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.nodeLocked(nodeID, tenantID)
	if err != nil {
		return InfluenceScore{}, err
	}
	total := s.countDescendantsLocked(n)
	direct := len(n.ChildrenIDs)
	return InfluenceScore{
		Score:    total,
		Direct:   direct,
		Indirect: total - direct,
	}, nil
}

// Summarize reports node counts by depth for one tenant, root excluded
// from the totals.
func (s *Store) Summarize(tenantID string) Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{
		RootID:       s.roots[tenantID],
		NodesByDepth: make(map[int]int),
	}
	for _, id := range s.order {
		n := s.nodes[id]
		if n.TenantID != tenantID {
			continue
		}
		sum.TotalNodes++
		sum.NodesByDepth[n.Depth]++
		if n.Depth > sum.MaxDepth {
			sum.MaxDepth = n.Depth
		}
	}
	return sum
}

// Snapshot renders the tenant's full current graph as a diff: the root,
// every node in insertion order, and every parent edge. Consumers use it
// to rebuild state on reconnect.
func (s *Store) Snapshot(tenantID string) domain.GraphDiff {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var diff domain.GraphDiff
	rootID, hasRoot := s.roots[tenantID]
	if hasRoot {
		diff.Nodes = append(diff.Nodes, diffNode(s.nodes[rootID]))
	}
	for _, id := range s.order {
		n := s.nodes[id]
		if n.TenantID != tenantID {
			continue
		}
		diff.Nodes = append(diff.Nodes, diffNode(n))
		rel := domain.EdgeRelationshipExtends
		if n.ParentID == rootID {
			rel = domain.EdgeRelationshipRoot
		}
		diff.Edges = append(diff.Edges, domain.DiffEdge{
			From:         n.ParentID,
			To:           n.ID,
			Relationship: rel,
		})
	}
	return diff
}

// SetClusterID stamps the cluster assignment onto a stored node. It is
// set exactly once per node, right after insertion.
func (s *Store) SetClusterID(nodeID, tenantID string, clusterID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.nodeLocked(nodeID, tenantID)
	if err != nil {
		return err
	}
	n.ClusterID = clusterID
	return nil
}

// Count returns the number of non-root nodes for a tenant.
func (s *Store) Count(tenantID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.order {
		if s.nodes[id].TenantID == tenantID {
			count++
		}
	}
	return count
}

// Reset discards all graph state for one tenant, root included. Other
// tenants are untouched.
func (s *Store) Reset(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	for _, id := range s.order {
		if s.nodes[id].TenantID == tenantID {
			delete(s.nodes, id)
		} else {
			kept = append(kept, id)
		}
	}
	s.order = kept
	if rootID, ok := s.roots[tenantID]; ok {
		delete(s.nodes, rootID)
		delete(s.roots, tenantID)
	}

	s.logger.Info("graph reset", zap.String("tenant_id", tenantID))
}

// nodeLocked resolves a node id within the tenant scope. Callers hold at
// least a read lock.
func (s *Store) nodeLocked(nodeID, tenantID string) (*domain.IdeaNode, error) {
	n, ok := s.nodes[nodeID]
	if !ok {
		return nil, errors.NewNotFound("node not found: " + nodeID)
	}
	if n.TenantID != tenantID {
		return nil, errors.NewTenantIsolation("node " + nodeID + " belongs to a different tenant")
	}
	return n, nil
}

func (s *Store) countDescendantsLocked(n *domain.IdeaNode) int {
	count := 0
	stack := append([]string{}, n.ChildrenIDs...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		stack = append(stack, s.nodes[id].ChildrenIDs...)
	}
	return count
}

func diffNode(n *domain.IdeaNode) domain.DiffNode {
	return domain.DiffNode{
		ID:           n.ID,
		Text:         n.Summary,
		Depth:        n.Depth,
		ParentID:     n.ParentID,
		ClusterID:    n.ClusterID,
		ClusterColor: cluster.Color(n.ClusterID),
	}
}

func cloneNode(n *domain.IdeaNode) *domain.IdeaNode {
	c := *n
	c.Embedding = cloneVector(n.Embedding)
	c.ChildrenIDs = append([]string(nil), n.ChildrenIDs...)
	if n.Metadata.Extra != nil {
		c.Metadata.Extra = make(map[string]string, len(n.Metadata.Extra))
		for k, v := range n.Metadata.Extra {
			c.Metadata.Extra[k] = v
		}
	}
	return &c
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	return append([]float32(nil), v...)
}

