// Package domain contains the core types of the idea graph: nodes, clusters,
// transcript chunks and the diff format consumed by external clients.
package domain

import "time"

// IdeaNode represents a single idea in the semantic graph. The embedding is
// the node's core identity; the summary is the short human-readable form.
// Embedding, summary and parent are immutable once the node is created; only
// ChildrenIDs grows when a later node attaches underneath.
type IdeaNode struct {
	ID          string       `json:"id"`
	TenantID    string       `json:"tenant_id,omitempty"`
	Embedding   []float32    `json:"-"`
	Summary     string       `json:"summary"`
	ParentID    string       `json:"parent_id,omitempty"`
	ChildrenIDs []string     `json:"children_ids"`
	Depth       int          `json:"depth"`
	ClusterID   int          `json:"cluster_id"`
	CreatedAt   time.Time    `json:"created_at"`
	Metadata    NodeMetadata `json:"metadata"`
}

// ClusterUnassigned is the ClusterID of a node that has not yet been routed
// into a cluster. Root nodes keep it forever.
const ClusterUnassigned = -1

// IsRoot reports whether the node is a tenant root.
func (n *IdeaNode) IsRoot() bool {
	return n.ParentID == ""
}

// NodeMetadata carries the known per-node annotations plus an opaque
// pass-through map for fields the engine itself does not interpret.
type NodeMetadata struct {
	ChunkID string            `json:"chunk_id,omitempty"`
	Speaker string            `json:"speaker,omitempty"`
	Start   float64           `json:"start,omitempty"`
	End     float64           `json:"end,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// TranscriptChunk is a single piece of meeting transcript fed into the
// ingestion pipeline. Speaker is empty when the audio was not diarized.
type TranscriptChunk struct {
	Text     string  `json:"text" validate:"required"`
	TenantID string  `json:"tenant_id"`
	ChunkID  string  `json:"chunk_id"`
	Speaker  string  `json:"speaker,omitempty"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
}
