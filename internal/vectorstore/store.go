// Package vectorstore holds every idea's embedding and ranks prior ideas by
// cosine similarity against a candidate, scoped to a tenant.
//
// Ranking is exhaustive brute force: O(n) per call over the tenant's nodes.
// That is the correct trade-off for graphs of at most a few thousand nodes,
// and it keeps top-k ordering exact. If graphs outgrow this, the store is the
// seam to swap in an approximate index (HNSW or similar) behind the same API.
package vectorstore

import (
	"fmt"
	"sort"
	"sync"

	"ideagraph-backend/internal/domain"
	"ideagraph-backend/internal/vector"
	appErrors "ideagraph-backend/pkg/errors"
)

// DefaultTopK is the number of candidates returned when the caller does not
// ask for a specific k.
const DefaultTopK = 5

// Match is one ranked result: a prior node and its similarity to the
// candidate embedding.
type Match struct {
	NodeID     string
	Similarity float64
	Node       *domain.IdeaNode
}

// Store accumulates non-root idea embeddings across all tenants. Reads and
// writes are guarded by a single RWMutex; ranking never blocks on external
// I/O, so contention stays short.
type Store struct {
	mu        sync.RWMutex
	dimension int

	// entries preserves insertion order, which breaks similarity ties in
	// favor of the earlier node.
	entries []*domain.IdeaNode
}

// New creates a store for embeddings of the given dimension.
func New(dimension int) *Store {
	return &Store{dimension: dimension}
}

// Dimension returns the embedding dimension the store was created with.
func (s *Store) Dimension() int {
	return s.dimension
}

// Add registers a node's embedding for future ranking. Root nodes are never
// added; the pipeline only indexes real ideas.
func (s *Store) Add(node *domain.IdeaNode) error {
	if node == nil {
		return appErrors.NewValidation("node cannot be nil")
	}
	if len(node.Embedding) != s.dimension {
		return appErrors.NewValidation(fmt.Sprintf(
			"embedding dimension %d does not match store dimension %d", len(node.Embedding), s.dimension))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, node)
	return nil
}

// Rank computes cosine similarity between candidate and every stored
// embedding belonging to tenantID, returning the top k by similarity
// descending. Ties resolve to the earlier-inserted node. No threshold is
// applied: the downstream placement oracle makes the final call, not a fixed
// cutoff. k <= 0 selects DefaultTopK; a tenant with no nodes yields an empty
// slice, not an error.
func (s *Store) Rank(candidate []float32, tenantID string, k int) ([]Match, error) {
	if len(candidate) != s.dimension {
		return nil, appErrors.NewValidation(fmt.Sprintf(
			"candidate dimension %d does not match store dimension %d", len(candidate), s.dimension))
	}
	if k <= 0 {
		k = DefaultTopK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Match, 0, len(s.entries))
	for _, node := range s.entries {
		if node.TenantID != tenantID {
			continue
		}
		sim, err := vector.Cosine(candidate, node.Embedding)
		if err != nil {
			return nil, appErrors.NewInternal("similarity computation failed", err)
		}
		matches = append(matches, Match{NodeID: node.ID, Similarity: sim, Node: node})
	}

	// Stable sort keeps insertion order among equal similarities.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// RankAbove is Rank restricted to matches at or above the given similarity
// threshold.
func (s *Store) RankAbove(candidate []float32, tenantID string, k int, threshold float64) ([]Match, error) {
	matches, err := s.Rank(candidate, tenantID, k)
	if err != nil {
		return nil, err
	}
	filtered := matches[:0]
	for _, m := range matches {
		if m.Similarity >= threshold {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// Count returns the number of embeddings stored for a tenant.
func (s *Store) Count(tenantID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, node := range s.entries {
		if node.TenantID == tenantID {
			n++
		}
	}
	return n
}

// Reset drops every embedding belonging to a tenant.
func (s *Store) Reset(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, node := range s.entries {
		if node.TenantID != tenantID {
			kept = append(kept, node)
		}
	}
	s.entries = kept
}
