package resolver

import (
	"fmt"
	"sort"

	"github.com/chazu/starbuck/pkg/graph"
)

// ResolutionRisk grades how risky applying a resolution strategy is.
type ResolutionRisk string

const (
	RiskLow    ResolutionRisk = "low"
	RiskMedium ResolutionRisk = "medium"
	RiskHigh   ResolutionRisk = "high"
)

// StrategyType identifies a cycle resolution strategy.
type StrategyType string

const (
	// StrategyRemoveSoft drops the cycle's optional edges.
	StrategyRemoveSoft StrategyType = "remove_soft_dependencies"

	// StrategyMakeConditional converts edges to conditional deployment.
	StrategyMakeConditional StrategyType = "make_conditional"

	// StrategySeparateTemplates moves resources into separate templates with
	// parameter passing.
	StrategySeparateTemplates StrategyType = "separate_templates"

	// StrategyExtractShared extracts shared functionality into its own module.
	StrategyExtractShared StrategyType = "extract_shared_resource"
)

// ResolutionStrategy is one proposed way to break a cycle.
type ResolutionStrategy struct {
	Type        StrategyType   `json:"type"`
	Description string         `json:"description"`
	Risk        ResolutionRisk `json:"risk"`

	// Edges lists the source/target pairs affected, for the remove-soft and
	// make-conditional strategies.
	Edges [][2]string `json:"edges,omitempty"`

	// Templates lists the distinct templates to separate.
	Templates []string `json:"templates,omitempty"`

	// SharedResources names the candidates for extraction.
	SharedResources []string `json:"sharedResources,omitempty"`
}

// CycleResolution pairs a detected cycle with its proposed strategies.
type CycleResolution struct {
	// Cycle is the node path, closed back to its first element.
	Cycle []string `json:"cycle"`

	// Strategies are the applicable resolutions, if any.
	Strategies []ResolutionStrategy `json:"strategies"`

	// Recommended is the lowest-risk applicable strategy, the first proposed
	// when no low-risk strategy exists, or nil when none apply.
	Recommended *ResolutionStrategy `json:"recommended,omitempty"`
}

// DetectCycles finds circular dependencies in the graph. Cycles are reported
// as node paths whose last element repeats the first. Which cycle is reported
// first depends on iteration order and is not part of the contract.
func (r *Resolver) DetectCycles(g *graph.DependencyGraph) [][]string {
	return graph.CyclesIn(g)
}

// ResolveCycles proposes resolution strategies for each detected cycle,
// graded by risk. Cycles are never hard errors; resolutions are advisory
// data for the caller.
func (r *Resolver) ResolveCycles(g *graph.DependencyGraph, cycles [][]string) []CycleResolution {
	resolutions := make([]CycleResolution, 0, len(cycles))

	for _, cycle := range cycles {
		resolution := CycleResolution{Cycle: cycle}
		deps := cycleEdges(g, cycle)

		var softEdges, conditionalEdges [][2]string
		templateSet := make(map[string]struct{})
		for _, dep := range deps {
			switch dep.Kind {
			case graph.DependencySoft:
				softEdges = append(softEdges, [2]string{dep.Source, dep.Target})
			case graph.DependencyConditional:
				conditionalEdges = append(conditionalEdges, [2]string{dep.Source, dep.Target})
			}
			if dep.CrossTemplate && dep.TemplateName != "" {
				templateSet[dep.TemplateName] = struct{}{}
			}
		}

		if len(softEdges) > 0 {
			resolution.Strategies = append(resolution.Strategies, ResolutionStrategy{
				Type:        StrategyRemoveSoft,
				Description: "Remove optional dependencies to break cycle",
				Risk:        RiskLow,
				Edges:       softEdges,
			})
		}

		if len(conditionalEdges) > 0 {
			resolution.Strategies = append(resolution.Strategies, ResolutionStrategy{
				Type:        StrategyMakeConditional,
				Description: "Convert dependencies to conditional deployment",
				Risk:        RiskMedium,
				Edges:       conditionalEdges,
			})
		}

		if len(templateSet) > 0 {
			templates := make([]string, 0, len(templateSet))
			for name := range templateSet {
				templates = append(templates, name)
			}
			sort.Strings(templates)
			resolution.Strategies = append(resolution.Strategies, ResolutionStrategy{
				Type:        StrategySeparateTemplates,
				Description: "Move resources to separate templates with parameter passing",
				Risk:        RiskMedium,
				Templates:   templates,
			})
		}

		if distinctCycleLength(cycle) > 2 {
			resolution.Strategies = append(resolution.Strategies, ResolutionStrategy{
				Type:            StrategyExtractShared,
				Description:     "Extract shared functionality to separate module",
				Risk:            RiskHigh,
				SharedResources: mostFrequentNodes(cycle),
			})
		}

		resolution.Recommended = recommend(resolution.Strategies)
		resolutions = append(resolutions, resolution)
	}

	return resolutions
}

// cycleEdges returns the metadata for each consecutive edge along the cycle.
func cycleEdges(g *graph.DependencyGraph, cycle []string) []graph.ResourceDependency {
	var deps []graph.ResourceDependency
	for i := 0; i+1 < len(cycle); i++ {
		if dep, ok := g.Metadata(cycle[i], cycle[i+1]); ok {
			deps = append(deps, dep)
		}
	}
	return deps
}

// distinctCycleLength returns the number of distinct nodes in a closed cycle
// path.
func distinctCycleLength(cycle []string) int {
	if len(cycle) == 0 {
		return 0
	}
	return len(cycle) - 1
}

// mostFrequentNodes returns the nodes appearing most often in the cycle path.
// The closing repeat means the cycle's entry node is the usual candidate.
func mostFrequentNodes(cycle []string) []string {
	counts := make(map[string]int)
	for _, node := range cycle {
		counts[node]++
	}
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	var nodes []string
	for node, c := range counts {
		if c == max {
			nodes = append(nodes, node)
		}
	}
	sort.Strings(nodes)
	return nodes
}

func recommend(strategies []ResolutionStrategy) *ResolutionStrategy {
	for i := range strategies {
		if strategies[i].Risk == RiskLow {
			return &strategies[i]
		}
	}
	if len(strategies) > 0 {
		return &strategies[0]
	}
	return nil
}

// String renders a strategy for diagnostics.
func (s ResolutionStrategy) String() string {
	return fmt.Sprintf("%s (%s risk)", s.Type, s.Risk)
}
