package manifest

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ChangeType classifies a detected change that can trigger a template update.
type ChangeType string

const (
	ChangeResourceAdded         ChangeType = "resource_added"
	ChangeResourceRemoved       ChangeType = "resource_removed"
	ChangeResourceModified      ChangeType = "resource_modified"
	ChangeDependencyAdded       ChangeType = "dependency_added"
	ChangeDependencyRemoved     ChangeType = "dependency_removed"
	ChangeConfigurationChanged  ChangeType = "configuration_changed"
	ChangeParameterAdded        ChangeType = "parameter_added"
	ChangeParameterRemoved      ChangeType = "parameter_removed"
	ChangeParameterModified     ChangeType = "parameter_modified"
	ChangeOutputAdded           ChangeType = "output_added"
	ChangeOutputRemoved         ChangeType = "output_removed"
	ChangeSecurityPolicyChanged ChangeType = "security_policy_changed"
	ChangeScalingConfigChanged  ChangeType = "scaling_config_changed"
)

// ChangeSeverity grades a change. High and critical changes become pending
// changes that demand a template update.
type ChangeSeverity string

const (
	SeverityLow      ChangeSeverity = "low"
	SeverityMedium   ChangeSeverity = "medium"
	SeverityHigh     ChangeSeverity = "high"
	SeverityCritical ChangeSeverity = "critical"
)

var severityRank = map[ChangeSeverity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// AtLeast reports whether s is as severe as threshold or more.
func (s ChangeSeverity) AtLeast(threshold ChangeSeverity) bool {
	return severityRank[s] >= severityRank[threshold]
}

// ChangeImpact describes the scope a change affects.
type ChangeImpact string

const (
	ImpactLocal     ChangeImpact = "local"
	ImpactRegional  ChangeImpact = "regional"
	ImpactGlobal    ChangeImpact = "global"
	ImpactDependent ChangeImpact = "dependent"
)

// FileChange records a change to a project file that may affect templates.
type FileChange struct {
	Path                 string    `json:"path"`
	ChangeKind           string    `json:"changeKind"` // added, modified, deleted
	Timestamp            time.Time `json:"timestamp"`
	HashBefore           string    `json:"hashBefore,omitempty"`
	HashAfter            string    `json:"hashAfter,omitempty"`
	LinesAdded           int       `json:"linesAdded,omitempty"`
	LinesRemoved         int       `json:"linesRemoved,omitempty"`
	AffectedFunctions    []string  `json:"affectedFunctions,omitempty"`
	AffectedDependencies []string  `json:"affectedDependencies,omitempty"`
}

// When returns the change timestamp.
func (c FileChange) When() time.Time { return c.Timestamp }

// ResourceChange records a change to a resource configuration. Changes are
// produced by the external change detector and read-only to this subsystem.
type ResourceChange struct {
	ResourceType string         `json:"resourceType"`
	ResourceName string         `json:"resourceName"`
	ChangeType   ChangeType     `json:"changeType"`
	Severity     ChangeSeverity `json:"severity"`
	Impact       ChangeImpact   `json:"impact"`

	PropertyPath string `json:"propertyPath,omitempty"`
	OldValue     any    `json:"oldValue,omitempty"`
	NewValue     any    `json:"newValue,omitempty"`

	AffectsResources  []string `json:"affectsResources,omitempty"`
	RequiresResources []string `json:"requiresResources,omitempty"`

	RequiresValidation   bool `json:"requiresValidation"`
	RequiresRedeployment bool `json:"requiresRedeployment"`
	DowntimeExpected     bool `json:"downtimeExpected"`

	Timestamp time.Time `json:"timestamp"`
}

// When returns the change timestamp.
func (c ResourceChange) When() time.Time { return c.Timestamp }

// TimestampedChange is implemented by both change kinds so queries can merge
// them into a single timeline.
type TimestampedChange interface {
	When() time.Time
}

// HashContent fingerprints file content for FileChange records.
func HashContent(data []byte) string {
	return fmt.Sprintf("%x", xxhash.Sum64(data))
}
