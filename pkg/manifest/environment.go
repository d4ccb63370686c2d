package manifest

import "time"

// Deployment and validation status values for an environment.
const (
	StatusUnknown  = "unknown"
	StatusPending  = "pending"
	StatusDeployed = "deployed"
	StatusFailed   = "failed"
)

// EnvironmentStatus tracks template deployment in one named environment.
// Environments are created lazily and mutated by the orchestrator.
type EnvironmentStatus struct {
	Name           string `json:"name"`
	CurrentVersion string `json:"currentVersion"`
	TargetVersion  string `json:"targetVersion,omitempty"`

	LastDeployed     *time.Time `json:"lastDeployed,omitempty"`
	DeploymentStatus string     `json:"deploymentStatus"`
	DeploymentID     string     `json:"deploymentId,omitempty"`

	ValidationStatus   string   `json:"validationStatus"`
	ValidationErrors   []string `json:"validationErrors,omitempty"`
	ValidationWarnings []string `json:"validationWarnings,omitempty"`

	PendingChanges []ResourceChange `json:"pendingChanges,omitempty"`
	RequiresUpdate bool             `json:"requiresUpdate"`
}

// NewEnvironmentStatus creates a status record for a named environment at a
// version, with unknown deployment and validation state.
func NewEnvironmentStatus(name, version string) *EnvironmentStatus {
	return &EnvironmentStatus{
		Name:             name,
		CurrentVersion:   version,
		DeploymentStatus: StatusUnknown,
		ValidationStatus: StatusUnknown,
	}
}

// DependencyInfo records one inter-template dependency, including the full
// cycle of template names when the dependency participates in one.
type DependencyInfo struct {
	TemplateName      string `json:"templateName"`
	DependencyType    string `json:"dependencyType"` // resource, module, parameter, circular
	DependencyPath    string `json:"dependencyPath"`
	Optional          bool   `json:"optional"`
	VersionConstraint string `json:"versionConstraint,omitempty"`

	CircularDependencies []string `json:"circularDependencies,omitempty"`
}
