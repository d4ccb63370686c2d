// Package resolver analyzes dependencies between infrastructure resources and
// templates. It builds dependency graphs from declared requirements and
// template text, detects and proposes resolutions for circular dependencies,
// computes safe parallel deployment orderings, validates graphs against
// structural rules, and prunes redundant edges. All policy lives here; the
// graph package stays inert.
package resolver
