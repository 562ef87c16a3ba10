// Package cluster implements streaming, threshold-based incremental
// clustering over idea embeddings. Every non-root node joins exactly one
// cluster at insertion time and never moves; centroids are updated as running
// averages, never recomputed from scratch.
package cluster

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"ideagraph-backend/internal/domain"
	"ideagraph-backend/internal/vector"
	appErrors "ideagraph-backend/pkg/errors"
)

// DefaultThreshold is the minimum cosine similarity to an existing centroid
// for a node to join that cluster. Deliberately lower than the placement
// similarity threshold so color groups stay broader than tree neighborhoods.
const DefaultThreshold = 0.65

// clusterState is one cluster's mutable state. The slice index in
// tenantClusters doubles as the cluster id.
type clusterState struct {
	centroid []float32
	members  []string
}

type tenantClusters struct {
	clusters []*clusterState
}

// Assigner routes new nodes into color clusters per tenant. Cluster ids are
// assigned monotonically from 0 and are independent between tenants.
type Assigner struct {
	mu        sync.RWMutex
	threshold float64
	tenants   map[string]*tenantClusters
	logger    *zap.Logger
}

// NewAssigner creates an assigner with the given similarity threshold.
// A threshold <= 0 selects DefaultThreshold.
func NewAssigner(threshold float64, logger *zap.Logger) *Assigner {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assigner{
		threshold: threshold,
		tenants:   make(map[string]*tenantClusters),
		logger:    logger,
	}
}

// SetThreshold updates the join threshold at runtime. Existing assignments
// are unaffected; only future nodes see the new value.
func (a *Assigner) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.threshold = threshold
}

// Threshold returns the current join threshold.
func (a *Assigner) Threshold() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.threshold
}

// Assign routes a node into the best-matching existing cluster, or creates a
// new one when no centroid is similar enough. It returns the cluster id and
// whether a new cluster was created. Ties between equally similar centroids
// resolve to the lowest cluster id.
func (a *Assigner) Assign(nodeID string, embedding []float32, tenantID string) (int, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tc, ok := a.tenants[tenantID]
	if !ok {
		tc = &tenantClusters{}
		a.tenants[tenantID] = tc
	}

	if len(tc.clusters) == 0 {
		tc.clusters = append(tc.clusters, newCluster(nodeID, embedding))
		a.logger.Debug("created first cluster",
			zap.String("tenant_id", tenantID),
			zap.String("node_id", nodeID))
		return 0, true, nil
	}

	bestID := -1
	bestSimilarity := -1.0
	for id, c := range tc.clusters {
		sim, err := vector.Cosine(embedding, c.centroid)
		if err != nil {
			return domain.ClusterUnassigned, false, appErrors.NewInternal(
				fmt.Sprintf("centroid comparison failed for cluster %d", id), err)
		}
		// Strict greater-than keeps the lowest cluster id on ties.
		if sim > bestSimilarity {
			bestSimilarity = sim
			bestID = id
		}
	}

	if bestSimilarity >= a.threshold {
		c := tc.clusters[bestID]
		c.members = append(c.members, nodeID)
		updateCentroid(c.centroid, embedding, len(c.members))
		a.logger.Debug("assigned node to cluster",
			zap.String("tenant_id", tenantID),
			zap.String("node_id", nodeID),
			zap.Int("cluster_id", bestID),
			zap.Float64("similarity", bestSimilarity))
		return bestID, false, nil
	}

	newID := len(tc.clusters)
	tc.clusters = append(tc.clusters, newCluster(nodeID, embedding))
	a.logger.Debug("created new cluster",
		zap.String("tenant_id", tenantID),
		zap.String("node_id", nodeID),
		zap.Int("cluster_id", newID),
		zap.Float64("best_similarity", bestSimilarity))
	return newID, true, nil
}

func newCluster(nodeID string, embedding []float32) *clusterState {
	centroid := make([]float32, len(embedding))
	copy(centroid, embedding)
	return &clusterState{
		centroid: centroid,
		members:  []string{nodeID},
	}
}

// updateCentroid applies the running average in place:
// new = (old*(n-1) + embedding) / n, where n is the member count after the
// new node joined.
func updateCentroid(centroid, embedding []float32, n int) {
	fn := float32(n)
	for i := range centroid {
		centroid[i] = (centroid[i]*(fn-1) + embedding[i]) / fn
	}
}

// Clusters returns a copy of the tenant's clusters, ordered by id.
func (a *Assigner) Clusters(tenantID string) []domain.Cluster {
	a.mu.RLock()
	defer a.mu.RUnlock()

	tc, ok := a.tenants[tenantID]
	if !ok {
		return nil
	}

	out := make([]domain.Cluster, 0, len(tc.clusters))
	for id, c := range tc.clusters {
		centroid := make([]float32, len(c.centroid))
		copy(centroid, c.centroid)
		members := make([]string, len(c.members))
		copy(members, c.members)
		out = append(out, domain.Cluster{
			ID:        id,
			TenantID:  tenantID,
			Centroid:  centroid,
			MemberIDs: members,
			Color:     Color(id),
		})
	}
	return out
}

// Centroid returns a copy of a cluster's centroid.
func (a *Assigner) Centroid(tenantID string, clusterID int) ([]float32, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	tc, ok := a.tenants[tenantID]
	if !ok || clusterID < 0 || clusterID >= len(tc.clusters) {
		return nil, false
	}
	centroid := make([]float32, len(tc.clusters[clusterID].centroid))
	copy(centroid, tc.clusters[clusterID].centroid)
	return centroid, true
}

// Members returns a copy of a cluster's member node ids.
func (a *Assigner) Members(tenantID string, clusterID int) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	tc, ok := a.tenants[tenantID]
	if !ok || clusterID < 0 || clusterID >= len(tc.clusters) {
		return nil
	}
	members := make([]string, len(tc.clusters[clusterID].members))
	copy(members, tc.clusters[clusterID].members)
	return members
}

// Count returns the number of clusters for a tenant.
func (a *Assigner) Count(tenantID string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	tc, ok := a.tenants[tenantID]
	if !ok {
		return 0
	}
	return len(tc.clusters)
}

// Reset drops all cluster state for a tenant.
func (a *Assigner) Reset(tenantID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.tenants, tenantID)
}
