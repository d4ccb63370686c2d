package resolver

import (
	"fmt"

	"github.com/chazu/starbuck/pkg/graph"
)

// Optimize prunes redundant edges and returns a new graph plus a description
// of each applied pass. The input graph is not mutated. Three passes run:
// transitive edges (A -> C when A -> B -> C exists) are dropped, soft edges
// already implied by an unbroken hard-edge chain are dropped, and a reserved
// consolidation pass that is currently a no-op. Optimize is idempotent.
func (r *Resolver) Optimize(g *graph.DependencyGraph) (*graph.DependencyGraph, []string) {
	optimized := g.Clone()
	var actions []string

	if n := removeTransitiveDependencies(optimized); n > 0 {
		actions = append(actions, fmt.Sprintf("removed %d transitive dependencies", n))
	}
	if n := removeRedundantSoftDependencies(optimized); n > 0 {
		actions = append(actions, fmt.Sprintf("removed %d redundant soft dependencies", n))
	}
	if n := consolidateParallelDependencies(optimized); n > 0 {
		actions = append(actions, fmt.Sprintf("consolidated %d parallel dependency groups", n))
	}

	return optimized, actions
}

// removeTransitiveDependencies drops direct edges whose target is also
// reachable through one of the node's other direct dependencies.
func removeTransitiveDependencies(g *graph.DependencyGraph) int {
	removed := 0

	for _, node := range g.Nodes() {
		direct := g.DependenciesOf(node)
		directSet := make(map[string]struct{}, len(direct))
		for _, dep := range direct {
			directSet[dep] = struct{}{}
		}

		for _, dep := range direct {
			for _, indirect := range g.DependenciesOf(dep) {
				if _, ok := directSet[indirect]; !ok {
					continue
				}
				if g.HasDependency(node, indirect) {
					g.RemoveDependency(node, indirect)
					removed++
				}
			}
		}
	}

	return removed
}

// removeRedundantSoftDependencies drops soft edges whose target is already
// reachable from the source through hard edges alone.
func removeRedundantSoftDependencies(g *graph.DependencyGraph) int {
	removed := 0

	for _, dep := range g.Edges() {
		if dep.Kind != graph.DependencySoft {
			continue
		}
		if hasHardPath(g, dep.Source, dep.Target) {
			g.RemoveDependency(dep.Source, dep.Target)
			removed++
		}
	}

	return removed
}

// hasHardPath reports whether target is reachable from source over hard
// edges only. The walk is iterative with a visited set, so cyclic graphs
// terminate.
func hasHardPath(g *graph.DependencyGraph, source, target string) bool {
	if source == target {
		return true
	}

	visited := map[string]struct{}{source: {}}
	stack := []string{source}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, next := range g.DependenciesOf(node) {
			dep, ok := g.Metadata(node, next)
			if !ok || dep.Kind != graph.DependencyHard {
				continue
			}
			if next == target {
				return true
			}
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			stack = append(stack, next)
		}
	}

	return false
}

// consolidateParallelDependencies is reserved for merging parallel dependency
// groups; it currently performs no changes.
func consolidateParallelDependencies(_ *graph.DependencyGraph) int {
	return 0
}
