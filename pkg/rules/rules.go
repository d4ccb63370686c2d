package rules

import (
	"fmt"
	"regexp"
)

// ValidationRule is a structural check applied to resources of a category.
type ValidationRule struct {
	// Type identifies the check performed by the resolver.
	Type string `json:"type"`

	// Description is the human-readable issue text emitted on failure.
	Description string `json:"description"`
}

// CategoryRule lists the categories a resource category depends on, plus its
// validation rules.
type CategoryRule struct {
	// Hard lists categories this category cannot deploy without.
	Hard []string `json:"hard"`

	// Soft lists optional related categories.
	Soft []string `json:"soft"`

	// Validation lists structural checks for resources of this category.
	Validation []ValidationRule `json:"validation"`
}

// ReferencePatterns holds the regular expressions used to scan template text
// for cross-template references.
type ReferencePatterns struct {
	// Parameter matches parameter references; matches become conditional edges.
	Parameter []string `json:"parameter"`

	// Variable matches variable references.
	Variable []string `json:"variable"`

	// Resource matches resource identifier references; matches become hard edges.
	Resource []string `json:"resource"`
}

// RuleSet is the full rule configuration passed to the resolver at
// construction.
type RuleSet struct {
	// Categories maps a resource category to its dependency and validation rules.
	Categories map[string]CategoryRule `json:"categories"`

	// ReferencePatterns are the template scanning expressions.
	ReferencePatterns ReferencePatterns `json:"referencePatterns"`

	// DeploymentPriority orders resource categories for template-level
	// sequencing, most foundational first. Categories not listed sort last.
	DeploymentPriority []string `json:"deploymentPriority"`
}

// Validate checks the rule set for internal consistency: all reference
// patterns must compile and the deployment priority list must not repeat
// categories.
func (rs *RuleSet) Validate() error {
	for _, group := range [][]string{
		rs.ReferencePatterns.Parameter,
		rs.ReferencePatterns.Variable,
		rs.ReferencePatterns.Resource,
	} {
		for _, expr := range group {
			if _, err := regexp.Compile(expr); err != nil {
				return fmt.Errorf("invalid reference pattern %q: %w", expr, err)
			}
		}
	}

	seen := make(map[string]bool, len(rs.DeploymentPriority))
	for _, category := range rs.DeploymentPriority {
		if seen[category] {
			return fmt.Errorf("duplicate deployment priority entry: %s", category)
		}
		seen[category] = true
	}

	return nil
}

// Category returns the rule for a category. Unknown categories yield an empty
// rule.
func (rs *RuleSet) Category(name string) CategoryRule {
	return rs.Categories[name]
}

// PriorityOf returns the deployment priority rank of a category. Categories
// not in the priority list rank after all listed ones.
func (rs *RuleSet) PriorityOf(category string) int {
	for i, c := range rs.DeploymentPriority {
		if c == category {
			return i
		}
	}
	return len(rs.DeploymentPriority)
}
