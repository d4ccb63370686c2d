package orchestrator

import (
	"context"

	"github.com/chazu/starbuck/pkg/manifest"
)

// GeneratedTemplate is one template produced by the external generator.
type GeneratedTemplate struct {
	Name       string
	Path       string
	Content    string
	Parameters map[string]any
	Outputs    map[string]any
}

// ValidationResult is the outcome of validating a single template.
type ValidationResult struct {
	// Valid reports structural validity.
	Valid bool

	// Score is a quality score in [0, 1]. Validators that do not score
	// should report 1.
	Score float64

	Errors   []string
	Warnings []string
}

// ChangeDetector inspects a project and appends newly detected file and
// resource changes to the manifest.
type ChangeDetector interface {
	DetectChanges(ctx context.Context, projectRoot string, m *manifest.ChangeManifest) error
}

// TemplateGenerator regenerates templates for the targeted environments.
type TemplateGenerator interface {
	Generate(ctx context.Context, projectRoot string, m *manifest.ChangeManifest, environments []string) ([]GeneratedTemplate, error)
}

// TemplateValidator validates one template's content. Structural and
// best-practices validators are both instances of this interface.
type TemplateValidator interface {
	Validate(ctx context.Context, content string, parameters map[string]any) (ValidationResult, error)
}
