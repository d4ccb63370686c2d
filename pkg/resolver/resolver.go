package resolver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-logr/logr"

	"github.com/chazu/starbuck/pkg/graph"
	"github.com/chazu/starbuck/pkg/rules"
)

// Requirement is a declared resource requirement: a named resource of a known
// category.
type Requirement struct {
	// Name is the unique resource identifier.
	Name string

	// Category is the resource category used to look up dependency rules
	// (e.g. "Microsoft.Web/sites").
	Category string
}

// ResourceDefinition describes a concrete resource for validation purposes.
type ResourceDefinition struct {
	// Category is the resource category.
	Category string

	// Properties holds the resource's configured properties.
	Properties map[string]any
}

// Resolver analyzes and resolves dependencies between resources and
// templates. The rule set is supplied at construction so tables are swappable
// per test.
type Resolver struct {
	rules *rules.RuleSet
	log   logr.Logger

	parameterPatterns []*regexp.Regexp
	variablePatterns  []*regexp.Regexp
	resourcePatterns  []*regexp.Regexp
}

// New creates a resolver with the given rule set. The rule set's reference
// patterns are compiled eagerly so scanning cannot fail later.
func New(rs *rules.RuleSet, log logr.Logger) (*Resolver, error) {
	if rs == nil {
		return nil, fmt.Errorf("rule set cannot be nil")
	}
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule set: %w", err)
	}

	r := &Resolver{rules: rs, log: log}

	var err error
	if r.parameterPatterns, err = compilePatterns(rs.ReferencePatterns.Parameter); err != nil {
		return nil, err
	}
	if r.variablePatterns, err = compilePatterns(rs.ReferencePatterns.Variable); err != nil {
		return nil, err
	}
	if r.resourcePatterns, err = compilePatterns(rs.ReferencePatterns.Resource); err != nil {
		return nil, err
	}

	return r, nil
}

func compilePatterns(exprs []string) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile reference pattern %q: %w", expr, err)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

// AnalyzeDependencies builds a dependency graph from declared requirements
// and, optionally, raw template text. Requirements contribute rule-table hard
// and soft edges; template text contributes cross-template reference edges;
// a final permissive pass adds low-confidence soft edges between resources
// with overlapping names, meant to be pruned by Optimize.
func (r *Resolver) AnalyzeDependencies(requirements []Requirement, templates map[string]string) *graph.DependencyGraph {
	r.log.V(1).Info("analyzing dependencies", "resources", len(requirements), "templates", len(templates))

	g := graph.New()
	for _, req := range requirements {
		g.AddNode(req.Name)
	}

	r.addCategoryDependencies(requirements, g)

	for name, content := range templates {
		r.scanTemplateReferences(name, content, g)
	}

	r.addImplicitDependencies(requirements, g)

	r.log.V(1).Info("built dependency graph", "nodes", g.NodeCount(), "edges", g.EdgeCount())
	return g
}

// addCategoryDependencies adds hard and soft edges from the rule table: a
// requirement depends on every other requirement whose category its rule
// lists.
func (r *Resolver) addCategoryDependencies(requirements []Requirement, g *graph.DependencyGraph) {
	for _, req := range requirements {
		rule := r.rules.Category(req.Category)

		for _, depCategory := range rule.Hard {
			for _, other := range requirements {
				if other.Name == req.Name || other.Category != depCategory {
					continue
				}
				g.AddDependency(graph.ResourceDependency{
					Source: req.Name,
					Target: other.Name,
					Kind:   graph.DependencyHard,
					Reason: fmt.Sprintf("required dependency: %s -> %s", req.Category, depCategory),
				})
			}
		}

		for _, depCategory := range rule.Soft {
			for _, other := range requirements {
				if other.Name == req.Name || other.Category != depCategory {
					continue
				}
				g.AddDependency(graph.ResourceDependency{
					Source: req.Name,
					Target: other.Name,
					Kind:   graph.DependencySoft,
					Reason: fmt.Sprintf("optional dependency: %s -> %s", req.Category, depCategory),
				})
			}
		}
	}
}

// scanTemplateReferences scans raw template text for parameter, variable and
// resource-id references and records them as cross-template edges.
func (r *Resolver) scanTemplateReferences(templateName, content string, g *graph.DependencyGraph) {
	for _, re := range r.parameterPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			g.AddDependency(graph.ResourceDependency{
				Source:        templateName,
				Target:        "parameter:" + m[1],
				Kind:          graph.DependencyConditional,
				Reason:        fmt.Sprintf("parameter reference: %s", m[1]),
				CrossTemplate: true,
				TemplateName:  templateName,
			})
		}
	}

	for _, re := range r.variablePatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			g.AddDependency(graph.ResourceDependency{
				Source:        templateName,
				Target:        "variable:" + m[1],
				Kind:          graph.DependencyConditional,
				Reason:        fmt.Sprintf("variable reference: %s", m[1]),
				CrossTemplate: true,
				TemplateName:  templateName,
			})
		}
	}

	for _, re := range r.resourcePatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			g.AddDependency(graph.ResourceDependency{
				Source:        templateName,
				Target:        m[1],
				Kind:          graph.DependencyHard,
				Reason:        fmt.Sprintf("resource reference: %s", m[1]),
				CrossTemplate: true,
				TemplateName:  templateName,
			})
		}
	}
}

// addImplicitDependencies adds low-confidence soft edges between any two
// resources whose names are substrings of one another. This pass is
// deliberately permissive and symmetric; Optimize prunes what the rest of the
// graph already implies.
func (r *Resolver) addImplicitDependencies(requirements []Requirement, g *graph.DependencyGraph) {
	for _, req := range requirements {
		for _, other := range requirements {
			if req.Name == other.Name {
				continue
			}
			a := strings.ToLower(req.Name)
			b := strings.ToLower(other.Name)
			if strings.Contains(a, b) || strings.Contains(b, a) {
				g.AddDependency(graph.ResourceDependency{
					Source: req.Name,
					Target: other.Name,
					Kind:   graph.DependencySoft,
					Reason: "implicit naming-based dependency",
				})
			}
		}
	}
}
