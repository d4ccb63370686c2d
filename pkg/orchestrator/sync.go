package orchestrator

import "github.com/chazu/starbuck/pkg/manifest"

// SynchronizeEnvironments schedules each target environment to move to the
// source environment's current version: the source version becomes the
// target's target version and the target is marked as requiring an update.
// The source is never mutated. The result maps each target to whether it was
// scheduled; a missing source environment fails every target.
func (o *Orchestrator) SynchronizeEnvironments(m *manifest.ChangeManifest, sourceEnvironment string, targetEnvironments []string) map[string]bool {
	results := make(map[string]bool, len(targetEnvironments))

	source, ok := m.Environment(sourceEnvironment)
	if !ok {
		o.log.Error(nil, "source environment not found", "environment", sourceEnvironment)
		for _, target := range targetEnvironments {
			results[target] = false
		}
		return results
	}

	for _, name := range targetEnvironments {
		target, ok := m.Environment(name)
		if !ok {
			target = manifest.NewEnvironmentStatus(name, "0.0.0")
			m.SetEnvironment(target)
		}

		target.TargetVersion = source.CurrentVersion
		target.RequiresUpdate = true
		results[name] = true

		o.log.V(1).Info("scheduled environment sync",
			"environment", name, "version", source.CurrentVersion)
	}

	m.Touch()
	return results
}
