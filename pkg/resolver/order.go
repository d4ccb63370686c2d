package resolver

import (
	"sort"

	"github.com/chazu/starbuck/pkg/graph"
)

// DeploymentOrder computes a safe deployment order for the graph using Kahn's
// algorithm. Because an edge means "source requires target", targets are
// emitted before their sources: for every edge A -> B, B's group appears no
// later than A's.
//
// When parallel is true, all nodes whose dependencies are satisfied at the
// same time form one group eligible for concurrent deployment; otherwise
// nodes are emitted one at a time in FIFO order, each in its own group.
//
// Cycles do not fail the ordering: nodes unreachable because of a cycle are
// appended as one best-effort final group and a warning is logged.
func (r *Resolver) DeploymentOrder(g *graph.DependencyGraph, parallel bool) [][]string {
	if cycles := r.DetectCycles(g); len(cycles) > 0 {
		r.log.Info("dependency graph contains cycles; deployment order may be suboptimal",
			"cycles", len(cycles))
	}

	// Remaining unsatisfied dependencies per node.
	pending := make(map[string]int, g.NodeCount())
	for _, node := range g.Nodes() {
		pending[node] = len(g.DependenciesOf(node))
	}

	var queue []string
	for _, node := range g.Nodes() {
		if pending[node] == 0 {
			queue = append(queue, node)
		}
	}

	var order [][]string
	processed := make(map[string]struct{}, g.NodeCount())

	release := func(node string, next *[]string) {
		processed[node] = struct{}{}
		for _, dependent := range g.DependentsOf(node) {
			pending[dependent]--
			if pending[dependent] == 0 {
				*next = append(*next, dependent)
			}
		}
	}

	if parallel {
		for len(queue) > 0 {
			group := make([]string, len(queue))
			copy(group, queue)
			sort.Strings(group)

			var next []string
			for _, node := range group {
				release(node, &next)
			}
			order = append(order, group)
			queue = next
		}
	} else {
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			release(node, &queue)
			order = append(order, []string{node})
		}
	}

	if len(processed) != g.NodeCount() {
		var leftover []string
		for _, node := range g.Nodes() {
			if _, ok := processed[node]; !ok {
				leftover = append(leftover, node)
			}
		}
		sort.Strings(leftover)
		r.log.Info("could not determine deployment order for all nodes; appending best-effort group",
			"nodes", leftover)
		order = append(order, leftover)
	}

	return order
}
