package domain

// Cluster is a color group of related ideas. The centroid is the running
// mean of all member embeddings; membership only grows.
type Cluster struct {
	ID        int       `json:"id"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Centroid  []float32 `json:"-"`
	MemberIDs []string  `json:"member_ids"`
	Color     string    `json:"color"`
}

// PlacementDecision is the decision type returned by the placement oracle.
type PlacementDecision string

const (
	// PlacementContinuation attaches the new idea as a child of the target:
	// the idea develops the target further.
	PlacementContinuation PlacementDecision = "continuation"

	// PlacementBranch attaches the new idea as a sibling of the target: the
	// idea diverges from the same parent line of thought.
	PlacementBranch PlacementDecision = "branch"

	// PlacementResolution attaches the new idea as a child of the target:
	// the idea settles or concludes the target.
	PlacementResolution PlacementDecision = "resolution"
)

// Valid reports whether d is one of the three known decision types.
func (d PlacementDecision) Valid() bool {
	switch d {
	case PlacementContinuation, PlacementBranch, PlacementResolution:
		return true
	}
	return false
}
