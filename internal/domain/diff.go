package domain

// Edge relationship types, matching what graph consumers render.
const (
	EdgeRelationshipRoot    = "root"
	EdgeRelationshipExtends = "extends"
)

// DiffNode is the external representation of a node in a graph diff.
type DiffNode struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	Depth        int    `json:"depth"`
	ParentID     string `json:"parent_id,omitempty"`
	ClusterID    int    `json:"cluster_id"`
	ClusterColor string `json:"cluster_color"`
}

// DiffEdge is a parent→child edge in a graph diff.
type DiffEdge struct {
	From         string `json:"from"`
	To           string `json:"to"`
	Relationship string `json:"relationship"`
}

// GraphDiff is the per-chunk output surface: everything a consumer needs to
// apply to its rendering of the graph. A full-state snapshot uses the same
// shape with every node and edge of the tenant included.
type GraphDiff struct {
	Nodes []DiffNode `json:"nodes"`
	Edges []DiffEdge `json:"edges"`
}

// Empty reports whether the diff carries no changes.
func (d *GraphDiff) Empty() bool {
	return len(d.Nodes) == 0 && len(d.Edges) == 0
}
