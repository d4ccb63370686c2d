// Package graph provides the dependency graph used to model relationships
// between infrastructure resources. The graph is intentionally inert: it
// records nodes, directed edges and per-edge metadata, and answers adjacency
// queries, but performs no validation and holds no policy. Cycle detection,
// ordering and optimization live in the resolver package.
package graph
