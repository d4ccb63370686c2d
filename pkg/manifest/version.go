package manifest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TemplateVersion records one entry in the append-only template version
// history.
type TemplateVersion struct {
	Version     string    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	CommitHash  string    `json:"commitHash,omitempty"`
	Author      string    `json:"author,omitempty"`
	Description string    `json:"description"`

	// ChangeSummary tallies the applied changes by type.
	ChangeSummary map[ChangeType]int `json:"changeSummary,omitempty"`

	// BreakingChanges lists changes that require redeployment.
	BreakingChanges []string `json:"breakingChanges,omitempty"`

	// MigrationNotes carry guidance for moving from the previous version.
	MigrationNotes []string `json:"migrationNotes,omitempty"`
}

// BumpKind selects which semantic version component to increment.
type BumpKind string

const (
	BumpMajor BumpKind = "major"
	BumpMinor BumpKind = "minor"
	BumpPatch BumpKind = "patch"
)

// BumpForSeverity maps the highest applied-change severity to a version bump:
// critical changes bump major, high bump minor, everything else patch.
func BumpForSeverity(severity ChangeSeverity) BumpKind {
	switch severity {
	case SeverityCritical:
		return BumpMajor
	case SeverityHigh:
		return BumpMinor
	}
	return BumpPatch
}

// ParseVersion splits a semantic version string into its numeric components.
func ParseVersion(version string) (major, minor, patch int, err error) {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("version %q must have three components", version)
	}
	nums := make([]int, 3)
	for i, part := range parts {
		n, convErr := strconv.Atoi(part)
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("version %q component %q is not a number", version, part)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}

// bumpVersion applies a bump to a semantic version string. Major resets minor
// and patch; minor resets patch; patch increments alone.
func bumpVersion(version string, kind BumpKind) (string, error) {
	major, minor, patch, err := ParseVersion(version)
	if err != nil {
		return "", err
	}

	switch kind {
	case BumpMajor:
		major++
		minor = 0
		patch = 0
	case BumpMinor:
		minor++
		patch = 0
	default:
		patch++
	}

	return fmt.Sprintf("%d.%d.%d", major, minor, patch), nil
}
