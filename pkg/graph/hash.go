package graph

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint computes a content hash of the graph's edges for change
// detection. Two graphs with the same edges and metadata share a fingerprint
// regardless of insertion order.
func (g *DependencyGraph) Fingerprint() string {
	type hashable struct {
		Nodes []string             `json:"nodes"`
		Edges []ResourceDependency `json:"edges"`
	}

	data, err := json.Marshal(hashable{Nodes: g.Nodes(), Edges: g.Edges()})
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", xxhash.Sum64(data))
}
