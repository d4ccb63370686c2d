package graph

import "fmt"

// DependencyKind classifies how strongly a source resource requires its target.
type DependencyKind string

const (
	// DependencyHard means the source cannot function or deploy without the
	// target existing first.
	DependencyHard DependencyKind = "hard"

	// DependencySoft means the relationship is optional and not strictly
	// required for deployment.
	DependencySoft DependencyKind = "soft"

	// DependencyConditional means the necessity depends on deployment-time
	// conditions, such as a parameter reference.
	DependencyConditional DependencyKind = "conditional"
)

// ResourceDependency is a directed "source requires target" edge with
// metadata. Values are immutable; optimization replaces edges rather than
// mutating them.
type ResourceDependency struct {
	// Source is the identifier of the resource that requires the target.
	Source string `json:"source"`

	// Target is the identifier of the required resource.
	Target string `json:"target"`

	// Kind is the dependency classification.
	Kind DependencyKind `json:"kind"`

	// Reason is a human-readable rationale for the edge.
	Reason string `json:"reason,omitempty"`

	// CrossTemplate is true when the target lives in a different template
	// than its source.
	CrossTemplate bool `json:"crossTemplate,omitempty"`

	// TemplateName is the owning template, when known.
	TemplateName string `json:"templateName,omitempty"`
}

// Key returns the edge key used to index metadata.
func (d ResourceDependency) Key() string {
	return edgeKey(d.Source, d.Target)
}

func edgeKey(source, target string) string {
	return fmt.Sprintf("%s->%s", source, target)
}
