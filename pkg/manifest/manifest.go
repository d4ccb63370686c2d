package manifest

import (
	"sort"
	"time"

	"github.com/chazu/starbuck/pkg/graph"
)

// SchemaVersion is the current manifest format version.
const SchemaVersion = "1.0.0"

// UpdateStrategy selects how aggressively the orchestrator reacts to pending
// changes.
type UpdateStrategy string

const (
	// StrategyConservative acts only on critical pending changes.
	StrategyConservative UpdateStrategy = "conservative"

	// StrategyIncremental acts on medium severity and above.
	StrategyIncremental UpdateStrategy = "incremental"

	// StrategyAggressive acts on any pending change.
	StrategyAggressive UpdateStrategy = "aggressive"
)

// ChangeManifest is the durable per-project record of template changes,
// versions, environments and dependencies. It is created once per project or
// loaded from storage, mutated through explicit operations, and persisted at
// the end of an update cycle.
type ChangeManifest struct {
	ProjectPath   string    `json:"projectPath"`
	ProjectName   string    `json:"projectName"`
	SchemaVersion string    `json:"schemaVersion"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// Templates maps version strings to their history entries.
	Templates      map[string]TemplateVersion `json:"templates"`
	CurrentVersion string                     `json:"currentVersion"`

	FileChanges     []FileChange     `json:"fileChanges,omitempty"`
	ResourceChanges []ResourceChange `json:"resourceChanges,omitempty"`

	// PendingChanges holds high and critical changes not yet applied to
	// generated templates. Non-empty pending changes are exactly what makes
	// a template update required.
	PendingChanges []ResourceChange `json:"pendingChanges,omitempty"`

	Environments map[string]*EnvironmentStatus `json:"environments"`

	Dependencies []DependencyInfo `json:"dependencies,omitempty"`

	// TemplateGraph maps a template name to the names it depends on.
	TemplateGraph map[string][]string `json:"templateGraph,omitempty"`

	AutoUpdateEnabled    bool           `json:"autoUpdateEnabled"`
	UpdateStrategy       UpdateStrategy `json:"updateStrategy"`
	SyncEnvironments     bool           `json:"syncEnvironments"`
	LastAnalysisRun      *time.Time     `json:"lastAnalysisRun,omitempty"`
	NextScheduledUpdate  *time.Time     `json:"nextScheduledUpdate,omitempty"`
	UpdateFrequencyHours int            `json:"updateFrequencyHours"`
}

// New creates a manifest for a project with defaults: incremental strategy,
// automatic updates enabled, daily update checks.
func New(projectName, projectPath string) *ChangeManifest {
	now := time.Now().UTC()
	return &ChangeManifest{
		ProjectPath:          projectPath,
		ProjectName:          projectName,
		SchemaVersion:        SchemaVersion,
		CreatedAt:            now,
		UpdatedAt:            now,
		Templates:            make(map[string]TemplateVersion),
		CurrentVersion:       "1.0.0",
		Environments:         make(map[string]*EnvironmentStatus),
		TemplateGraph:        make(map[string][]string),
		AutoUpdateEnabled:    true,
		UpdateStrategy:       StrategyIncremental,
		UpdateFrequencyHours: 24,
	}
}

// Touch updates the manifest's modification timestamp.
func (m *ChangeManifest) Touch() {
	m.UpdatedAt = time.Now().UTC()
}

// AddFileChange appends a file change, stamping it with the current time when
// the detector left the timestamp empty.
func (m *ChangeManifest) AddFileChange(change FileChange) {
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now().UTC()
	}
	m.FileChanges = append(m.FileChanges, change)
	m.Touch()
}

// AddResourceChange appends a resource change. High and critical changes also
// join the pending changes that drive template regeneration.
func (m *ChangeManifest) AddResourceChange(change ResourceChange) {
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now().UTC()
	}
	m.ResourceChanges = append(m.ResourceChanges, change)
	if change.Severity.AtLeast(SeverityHigh) {
		m.PendingChanges = append(m.PendingChanges, change)
	}
	m.Touch()
}

// ChangesSince returns all file and resource changes after the given time,
// merged and sorted newest first.
func (m *ChangeManifest) ChangesSince(since time.Time) []TimestampedChange {
	var changes []TimestampedChange
	for _, c := range m.FileChanges {
		if c.Timestamp.After(since) {
			changes = append(changes, c)
		}
	}
	for _, c := range m.ResourceChanges {
		if c.Timestamp.After(since) {
			changes = append(changes, c)
		}
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].When().After(changes[j].When())
	})
	return changes
}

// Environment returns the status record for a named environment.
func (m *ChangeManifest) Environment(name string) (*EnvironmentStatus, bool) {
	env, ok := m.Environments[name]
	return env, ok
}

// SetEnvironment stores a status record under its environment name.
func (m *ChangeManifest) SetEnvironment(status *EnvironmentStatus) {
	if m.Environments == nil {
		m.Environments = make(map[string]*EnvironmentStatus)
	}
	m.Environments[status.Name] = status
	m.Touch()
}

// EnvironmentNames returns the known environment names, sorted.
func (m *ChangeManifest) EnvironmentNames() []string {
	names := make([]string, 0, len(m.Environments))
	for name := range m.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RequiresTemplateUpdate reports whether pending changes demand template
// regeneration. This holds exactly when PendingChanges is non-empty.
func (m *ChangeManifest) RequiresTemplateUpdate() bool {
	return len(m.PendingChanges) > 0
}

// ClearPendingChanges empties the pending change list. Called only after a
// fully successful update cycle, which is what makes retries safe.
func (m *ChangeManifest) ClearPendingChanges() {
	m.PendingChanges = nil
	m.Touch()
}

// DependencyChain returns the full transitive dependency chain for a
// template, starting with the template itself, in depth-first preorder. The
// walk keeps a visited set, so cyclic template graphs terminate.
func (m *ChangeManifest) DependencyChain(templateName string) []string {
	visited := make(map[string]struct{})
	var chain []string

	stack := []string{templateName}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := visited[name]; ok {
			continue
		}
		visited[name] = struct{}{}
		chain = append(chain, name)

		deps := m.TemplateGraph[name]
		for i := len(deps) - 1; i >= 0; i-- {
			stack = append(stack, deps[i])
		}
	}

	return chain
}

// DetectCircularDependencies finds cycles among template dependencies.
func (m *ChangeManifest) DetectCircularDependencies() [][]string {
	names := make([]string, 0, len(m.TemplateGraph))
	for name := range m.TemplateGraph {
		names = append(names, name)
	}
	sort.Strings(names)

	return graph.Cycles(names, func(name string) []string {
		return m.TemplateGraph[name]
	})
}

// RecordCircularDependencies folds detected template cycles into
// DependencyInfo records, appends them to the manifest's dependency list and
// returns the new records.
func (m *ChangeManifest) RecordCircularDependencies() []DependencyInfo {
	var infos []DependencyInfo
	for _, cycle := range m.DetectCircularDependencies() {
		for i := 0; i+1 < len(cycle); i++ {
			infos = append(infos, DependencyInfo{
				TemplateName:         cycle[i],
				DependencyType:       "circular",
				DependencyPath:       cycle[i+1],
				CircularDependencies: cycle,
			})
		}
	}
	if len(infos) > 0 {
		m.Dependencies = append(m.Dependencies, infos...)
		m.Touch()
	}
	return infos
}

// IncrementVersion bumps the current template version and returns the new
// version string.
func (m *ChangeManifest) IncrementVersion(kind BumpKind) (string, error) {
	next, err := bumpVersion(m.CurrentVersion, kind)
	if err != nil {
		return "", err
	}
	m.CurrentVersion = next
	m.Touch()
	return next, nil
}

// AddTemplateVersion appends a version entry to the history.
func (m *ChangeManifest) AddTemplateVersion(version TemplateVersion) {
	if m.Templates == nil {
		m.Templates = make(map[string]TemplateVersion)
	}
	m.Templates[version.Version] = version
	m.Touch()
}

// CleanupOldChanges removes file and resource changes older than the
// retention window and returns how many were removed. Pending changes are
// never pruned.
func (m *ChangeManifest) CleanupOldChanges(retention time.Duration) int {
	cutoff := time.Now().UTC().Add(-retention)

	keptFiles := m.FileChanges[:0]
	for _, c := range m.FileChanges {
		if c.Timestamp.After(cutoff) {
			keptFiles = append(keptFiles, c)
		}
	}
	keptResources := m.ResourceChanges[:0]
	for _, c := range m.ResourceChanges {
		if c.Timestamp.After(cutoff) {
			keptResources = append(keptResources, c)
		}
	}

	removed := (len(m.FileChanges) - len(keptFiles)) + (len(m.ResourceChanges) - len(keptResources))
	m.FileChanges = keptFiles
	m.ResourceChanges = keptResources
	if removed > 0 {
		m.Touch()
	}
	return removed
}
