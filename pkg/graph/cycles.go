package graph

// walk colors for the iterative depth-first search.
const (
	colorWhite = iota // not yet visited
	colorGrey         // on the current walk path
	colorBlack        // fully explored
)

// Cycles finds cycles in a directed graph described by a node list and a
// successor function. Each reported cycle is a node path whose last element
// repeats the first. The walk is iterative with an explicit stack and a
// white/grey/black color per node, so adversarially deep graphs cannot
// exhaust the call stack.
//
// Which cycle is reported first depends on the order of nodes and successors;
// callers must not assume any particular cycle is found before another.
func Cycles(nodes []string, successors func(string) []string) [][]string {
	color := make(map[string]int, len(nodes))
	var cycles [][]string

	type frame struct {
		node string
		next []string
		idx  int
	}

	for _, start := range nodes {
		if color[start] != colorWhite {
			continue
		}

		stack := []frame{{node: start, next: successors(start)}}
		color[start] = colorGrey
		path := []string{start}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]

			if top.idx >= len(top.next) {
				color[top.node] = colorBlack
				stack = stack[:len(stack)-1]
				path = path[:len(path)-1]
				continue
			}

			neighbor := top.next[top.idx]
			top.idx++

			switch color[neighbor] {
			case colorGrey:
				// Back edge: the cycle is the path suffix from the
				// neighbor's first occurrence, closed back to it.
				for i, n := range path {
					if n == neighbor {
						cycle := make([]string, 0, len(path)-i+1)
						cycle = append(cycle, path[i:]...)
						cycle = append(cycle, neighbor)
						cycles = append(cycles, cycle)
						break
					}
				}
			case colorWhite:
				color[neighbor] = colorGrey
				stack = append(stack, frame{node: neighbor, next: successors(neighbor)})
				path = append(path, neighbor)
			}
		}
	}

	return cycles
}

// CyclesIn finds cycles in a dependency graph, walking forward edges.
func CyclesIn(g *DependencyGraph) [][]string {
	return Cycles(g.Nodes(), g.DependenciesOf)
}
