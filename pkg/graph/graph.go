package graph

import "sort"

// DependencyGraph is a directed graph of resource identifiers with per-edge
// metadata. Forward and reverse adjacency are owned by the same structure and
// every mutation updates both sides, so the mirror invariant is structural
// rather than conventional.
type DependencyGraph struct {
	nodes    map[string]struct{}
	forward  map[string]map[string]struct{}
	reverse  map[string]map[string]struct{}
	metadata map[string]ResourceDependency
}

// New creates an empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:    make(map[string]struct{}),
		forward:  make(map[string]map[string]struct{}),
		reverse:  make(map[string]map[string]struct{}),
		metadata: make(map[string]ResourceDependency),
	}
}

// AddNode registers a node without any edges. Adding an existing node is a
// no-op.
func (g *DependencyGraph) AddNode(id string) {
	g.nodes[id] = struct{}{}
}

// AddDependency inserts the edge described by dep, registering both endpoints
// if absent. Re-adding an identical edge overwrites its metadata.
func (g *DependencyGraph) AddDependency(dep ResourceDependency) {
	g.nodes[dep.Source] = struct{}{}
	g.nodes[dep.Target] = struct{}{}

	if g.forward[dep.Source] == nil {
		g.forward[dep.Source] = make(map[string]struct{})
	}
	if g.reverse[dep.Target] == nil {
		g.reverse[dep.Target] = make(map[string]struct{})
	}
	g.forward[dep.Source][dep.Target] = struct{}{}
	g.reverse[dep.Target][dep.Source] = struct{}{}
	g.metadata[dep.Key()] = dep
}

// RemoveDependency removes the edge from source to target from both
// adjacencies and the metadata index. Removing an absent edge is a no-op.
// Endpoints stay registered as nodes.
func (g *DependencyGraph) RemoveDependency(source, target string) {
	if _, ok := g.forward[source][target]; !ok {
		return
	}
	delete(g.forward[source], target)
	delete(g.reverse[target], source)
	delete(g.metadata, edgeKey(source, target))
}

// HasDependency reports whether an edge from source to target exists.
func (g *DependencyGraph) HasDependency(source, target string) bool {
	_, ok := g.forward[source][target]
	return ok
}

// Metadata returns the edge metadata for source -> target.
func (g *DependencyGraph) Metadata(source, target string) (ResourceDependency, bool) {
	dep, ok := g.metadata[edgeKey(source, target)]
	return dep, ok
}

// DependenciesOf returns the targets the given node depends on, sorted.
// Unknown nodes yield an empty slice.
func (g *DependencyGraph) DependenciesOf(node string) []string {
	return sortedKeys(g.forward[node])
}

// DependentsOf returns the nodes depending on the given node, sorted.
// Unknown nodes yield an empty slice.
func (g *DependencyGraph) DependentsOf(node string) []string {
	return sortedKeys(g.reverse[node])
}

// Nodes returns all node identifiers, sorted.
func (g *DependencyGraph) Nodes() []string {
	return sortedKeys(g.nodes)
}

// Edges returns all edge metadata, sorted by edge key.
func (g *DependencyGraph) Edges() []ResourceDependency {
	keys := sortedKeys(g.metadata)
	edges := make([]ResourceDependency, 0, len(keys))
	for _, k := range keys {
		edges = append(edges, g.metadata[k])
	}
	return edges
}

// NodeCount returns the number of nodes.
func (g *DependencyGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *DependencyGraph) EdgeCount() int {
	return len(g.metadata)
}

// Clone returns a deep copy of the graph.
func (g *DependencyGraph) Clone() *DependencyGraph {
	c := New()
	for id := range g.nodes {
		c.AddNode(id)
	}
	for _, dep := range g.metadata {
		c.AddDependency(dep)
	}
	return c
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
