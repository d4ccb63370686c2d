package orchestrator

import (
	"sort"

	"github.com/chazu/starbuck/pkg/manifest"
)

// Plan is the execution plan for one update cycle.
type Plan struct {
	// Environments are the environments the update targets.
	Environments []string

	// Changes are the pending changes to apply, ordered severity-first:
	// critical, then high, then medium.
	Changes []manifest.ResourceChange

	// ResourceOrder is a coarse per-resource-type ordering from the rule
	// set's deployment priority. The orchestrator operates at
	// template-regeneration granularity, so this is a tie-break order, not
	// a per-resource topological sort.
	ResourceOrder []string

	// ValidationRequired is set when any selected change demands validation.
	ValidationRequired bool

	// BackupRequired is set when backups are enabled and any selected
	// change is high or critical severity.
	BackupRequired bool
}

// buildPlan partitions pending changes into severity buckets and derives the
// validation, backup and ordering requirements.
func (o *Orchestrator) buildPlan(m *manifest.ChangeManifest, targetEnvironments []string) Plan {
	environments := targetEnvironments
	if len(environments) == 0 {
		environments = m.EnvironmentNames()
	}
	if len(environments) == 0 {
		environments = []string{"dev"}
	}

	var critical, high, medium []manifest.ResourceChange
	for _, change := range m.PendingChanges {
		switch change.Severity {
		case manifest.SeverityCritical:
			critical = append(critical, change)
		case manifest.SeverityHigh:
			high = append(high, change)
		case manifest.SeverityMedium:
			medium = append(medium, change)
		}
	}

	changes := make([]manifest.ResourceChange, 0, len(critical)+len(high)+len(medium))
	changes = append(changes, critical...)
	changes = append(changes, high...)
	changes = append(changes, medium...)

	plan := Plan{
		Environments:  environments,
		Changes:       changes,
		ResourceOrder: o.resourceOrder(changes),
	}

	for _, change := range changes {
		if change.RequiresValidation {
			plan.ValidationRequired = true
		}
		if change.Severity.AtLeast(manifest.SeverityHigh) {
			plan.BackupRequired = o.config.BackupEnabled
		}
	}

	return plan
}

// resourceOrder collects the distinct resource types touched by the changes
// and sorts them by the rule set's deployment priority, most foundational
// first. Types not in the priority list sort last, keeping encounter order.
func (o *Orchestrator) resourceOrder(changes []manifest.ResourceChange) []string {
	seen := make(map[string]bool)
	var order []string
	for _, change := range changes {
		if change.ResourceType == "" || seen[change.ResourceType] {
			continue
		}
		seen[change.ResourceType] = true
		order = append(order, change.ResourceType)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return o.rules.PriorityOf(order[i]) < o.rules.PriorityOf(order[j])
	})
	return order
}
