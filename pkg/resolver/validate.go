package resolver

import (
	"fmt"
	"strings"

	"github.com/chazu/starbuck/pkg/graph"
	"github.com/chazu/starbuck/pkg/rules"
)

// ValidateDependencies checks that every edge's target has a definition and
// applies the rule set's per-category structural rules. Issues are advisory:
// the result maps node names to their issue lists and nothing here is a hard
// error.
func (r *Resolver) ValidateDependencies(g *graph.DependencyGraph, definitions map[string]ResourceDefinition) map[string][]string {
	issues := make(map[string][]string)

	for _, node := range g.Nodes() {
		deps := g.DependenciesOf(node)

		for _, dep := range deps {
			if _, ok := definitions[dep]; !ok {
				issues[node] = append(issues[node], fmt.Sprintf("missing dependency: %s", dep))
			}
		}

		def, ok := definitions[node]
		if !ok {
			continue
		}
		for _, rule := range r.rules.Category(def.Category).Validation {
			if !validateRule(def, deps, rule) {
				issues[node] = append(issues[node], fmt.Sprintf("validation failed: %s", rule.Description))
			}
		}
	}

	return issues
}

// validateRule evaluates one structural rule against a resource definition.
// Unrecognized rule types pass, so custom rule sets degrade gracefully.
func validateRule(def ResourceDefinition, deps []string, rule rules.ValidationRule) bool {
	switch rule.Type {
	case "requires_app_service_plan":
		for _, dep := range deps {
			if strings.Contains(dep, "serverfarms") {
				return true
			}
		}
		return false
	case "unique_name":
		// Global uniqueness needs a provider lookup; structurally always valid.
		return true
	case "access_policies":
		return hasProperty(def, "accessPolicies")
	case "firewall_rules":
		return hasProperty(def, "firewallRules")
	case "address_space":
		return hasProperty(def, "addressSpace")
	case "security_rules":
		return hasProperty(def, "securityRules")
	}
	return true
}

func hasProperty(def ResourceDefinition, key string) bool {
	_, ok := def.Properties[key]
	return ok
}
