package cluster

// clusterColors is the palette used to color clusters in the UI, 20 distinct
// colors assigned round-robin by cluster id.
var clusterColors = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA07A", "#98D8C8",
	"#F7DC6F", "#BB8FCE", "#85C1E2", "#F8B739", "#52BE80",
	"#EC7063", "#5DADE2", "#F1948A", "#82E0AA", "#F4D03F",
	"#AED6F1", "#F9E79F", "#A9DFBF", "#F5B7B1", "#D7BDE2",
}

// defaultColor is rendered for nodes without a cluster assignment.
const defaultColor = "#CCCCCC"

// Color returns the hex color for a cluster id.
func Color(clusterID int) string {
	if clusterID < 0 {
		return defaultColor
	}
	return clusterColors[clusterID%len(clusterColors)]
}
