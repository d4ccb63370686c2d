package orchestrator

import (
	"fmt"
	"sort"
	"time"

	"github.com/chazu/starbuck/pkg/manifest"
)

// CreateTemplateVersion builds a version history entry from the applied
// changes and appends it to the manifest. Critical changes that require
// redeployment are recorded as breaking changes.
func (o *Orchestrator) CreateTemplateVersion(m *manifest.ChangeManifest, version, description string, changes []manifest.ResourceChange) manifest.TemplateVersion {
	summary := make(map[manifest.ChangeType]int)
	var breaking []string
	for _, change := range changes {
		summary[change.ChangeType]++
		if change.Severity == manifest.SeverityCritical && change.RequiresRedeployment {
			breaking = append(breaking, fmt.Sprintf("%s: %s", change.ResourceName, change.ChangeType))
		}
	}

	entry := manifest.TemplateVersion{
		Version:         version,
		Timestamp:       time.Now().UTC(),
		Description:     description,
		ChangeSummary:   summary,
		BreakingChanges: breaking,
	}
	m.AddTemplateVersion(entry)
	return entry
}

// VersionHistory returns version entries newest first. A non-positive limit
// returns the full history.
func (o *Orchestrator) VersionHistory(m *manifest.ChangeManifest, limit int) []manifest.TemplateVersion {
	versions := make([]manifest.TemplateVersion, 0, len(m.Templates))
	for _, v := range m.Templates {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Timestamp.After(versions[j].Timestamp)
	})

	if limit > 0 && len(versions) > limit {
		versions = versions[:limit]
	}
	return versions
}

// VersionComparison describes the differences between two version entries.
type VersionComparison struct {
	VersionA string
	VersionB string

	// TimeDelta is how much later B was created than A.
	TimeDelta time.Duration

	// ChangeDiff maps each change type to B's count minus A's count.
	ChangeDiff map[manifest.ChangeType]int

	BreakingAdded   []string
	BreakingRemoved []string
}

// CompareVersions diffs two entries from the manifest's version history.
func (o *Orchestrator) CompareVersions(m *manifest.ChangeManifest, versionA, versionB string) (VersionComparison, error) {
	a, okA := m.Templates[versionA]
	b, okB := m.Templates[versionB]
	if !okA || !okB {
		return VersionComparison{}, fmt.Errorf("versions %s and %s must both exist in the history", versionA, versionB)
	}

	comparison := VersionComparison{
		VersionA:   versionA,
		VersionB:   versionB,
		TimeDelta:  b.Timestamp.Sub(a.Timestamp),
		ChangeDiff: make(map[manifest.ChangeType]int),
	}

	for changeType, count := range a.ChangeSummary {
		comparison.ChangeDiff[changeType] -= count
	}
	for changeType, count := range b.ChangeSummary {
		comparison.ChangeDiff[changeType] += count
	}

	comparison.BreakingAdded = difference(b.BreakingChanges, a.BreakingChanges)
	comparison.BreakingRemoved = difference(a.BreakingChanges, b.BreakingChanges)
	return comparison, nil
}

// ResolutionSteps turns circular template dependencies into human-readable
// remediation guidance.
func (o *Orchestrator) ResolutionSteps(dependencies []manifest.DependencyInfo) []string {
	var circular []manifest.DependencyInfo
	for _, dep := range dependencies {
		if len(dep.CircularDependencies) > 0 {
			circular = append(circular, dep)
		}
	}
	if len(circular) == 0 {
		return nil
	}

	steps := []string{"circular dependencies detected:"}
	seen := make(map[string]bool)
	for _, dep := range circular {
		cycle := joinCycle(dep.CircularDependencies)
		if seen[cycle] {
			continue
		}
		seen[cycle] = true
		steps = append(steps, "  "+cycle)
	}

	steps = append(steps,
		"recommended actions:",
		"  1. extract shared resources into a separate template",
		"  2. replace direct references with parameters",
		"  3. restructure the template hierarchy",
	)
	return steps
}

func joinCycle(cycle []string) string {
	out := ""
	for i, name := range cycle {
		if i > 0 {
			out += " -> "
		}
		out += name
	}
	return out
}

// difference returns the elements of a not present in b, preserving order.
func difference(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}
	var out []string
	for _, s := range a {
		if !inB[s] {
			out = append(out, s)
		}
	}
	return out
}
