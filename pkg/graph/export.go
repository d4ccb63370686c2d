package graph

import (
	"fmt"
	"io"

	dgraph "github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
)

// DOT writes the graph in graphviz DOT format. Edges are labeled with their
// dependency kind; soft edges are rendered dashed and conditional edges
// dotted. Cyclic graphs export fine, which makes this useful for inspecting
// graphs the resolver has flagged.
func (g *DependencyGraph) DOT(w io.Writer) error {
	dg := dgraph.New(dgraph.StringHash, dgraph.Directed())

	for _, id := range g.Nodes() {
		if err := dg.AddVertex(id); err != nil {
			return fmt.Errorf("failed to add vertex %s: %w", id, err)
		}
	}

	for _, dep := range g.Edges() {
		opts := []func(*dgraph.EdgeProperties){
			dgraph.EdgeAttribute("label", string(dep.Kind)),
		}
		switch dep.Kind {
		case DependencySoft:
			opts = append(opts, dgraph.EdgeAttribute("style", "dashed"))
		case DependencyConditional:
			opts = append(opts, dgraph.EdgeAttribute("style", "dotted"))
		}
		if err := dg.AddEdge(dep.Source, dep.Target, opts...); err != nil {
			return fmt.Errorf("failed to add edge %s -> %s: %w", dep.Source, dep.Target, err)
		}
	}

	if err := draw.DOT(dg, w); err != nil {
		return fmt.Errorf("failed to render DOT: %w", err)
	}
	return nil
}
