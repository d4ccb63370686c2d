package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/sourcegraph/conc/pool"

	"github.com/chazu/starbuck/pkg/manifest"
	"github.com/chazu/starbuck/pkg/rules"
)

// Config contains configuration for the update orchestrator.
type Config struct {
	// Strategy selects which pending-change severities trigger an update.
	// Default: incremental.
	Strategy manifest.UpdateStrategy

	// BackupEnabled controls whether templates are snapshotted before a
	// high or critical severity update.
	// Default: true.
	BackupEnabled bool

	// BackupDirName is the directory under the project root that holds
	// timestamped backups.
	// Default: "template-backups"
	BackupDirName string

	// TemplateExtension selects which files the backup snapshots.
	// Default: ".bicep"
	TemplateExtension string

	// MaxConcurrentValidations bounds the validation worker pool.
	// Default: 4
	MaxConcurrentValidations int

	// MinBestPracticesScore is the lowest acceptable validation score.
	// Default: 0.7
	MinBestPracticesScore float64

	// ManifestPath is the manifest location, resolved against the project
	// root when relative.
	// Default: "infrastructure/template-manifest.json"
	ManifestPath string
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:                 manifest.StrategyIncremental,
		BackupEnabled:            true,
		BackupDirName:            "template-backups",
		TemplateExtension:        ".bicep",
		MaxConcurrentValidations: 4,
		MinBestPracticesScore:    0.7,
		ManifestPath:             filepath.Join("infrastructure", "template-manifest.json"),
	}
}

// Request describes one update cycle.
type Request struct {
	// ProjectRoot is the project directory the cycle operates on.
	ProjectRoot string

	// ForceUpdate skips the strategy decision and always executes.
	ForceUpdate bool

	// TargetEnvironments limits the update to named environments. Empty
	// means all known environments, falling back to "dev".
	TargetEnvironments []string
}

// Result is the outcome of one update cycle. On failure it carries the last
// valid manifest so callers can inspect what was detected before the abort.
type Result struct {
	CycleID    string
	Phase      Phase
	Manifest   *manifest.ChangeManifest
	NewVersion string
	Messages   []string
	Err        error
}

// Orchestrator coordinates manifest loading, change analysis, planning and
// execution of template updates through external collaborators.
type Orchestrator struct {
	config     Config
	store      *manifest.Store
	detector   ChangeDetector
	generator  TemplateGenerator
	validators []TemplateValidator
	rules      *rules.RuleSet
	log        logr.Logger
}

// New creates an orchestrator. The detector may be nil when change ingestion
// happens elsewhere; the generator is required for any cycle that executes.
func New(detector ChangeDetector, generator TemplateGenerator, validators []TemplateValidator, rs *rules.RuleSet, config Config, log logr.Logger) *Orchestrator {
	return &Orchestrator{
		config:     config,
		store:      manifest.NewStore(log),
		detector:   detector,
		generator:  generator,
		validators: validators,
		rules:      rs,
		log:        log,
	}
}

// Run drives one update cycle to a terminal phase. Collaborator errors are
// caught here and converted into a failure result; nothing propagates past
// this boundary.
func (o *Orchestrator) Run(ctx context.Context, req Request) Result {
	c := newCycle()
	log := o.log.WithValues("cycle", c.id, "project", req.ProjectRoot)

	res := Result{CycleID: c.id}
	fail := func(err error) Result {
		_ = c.advance(PhaseFailed)
		res.Phase = c.phase
		res.Err = err
		res.Messages = append(res.Messages, fmt.Sprintf("template update cycle failed: %v", err))
		log.Error(err, "update cycle failed", "phase", c.phase)
		return res
	}

	m, err := o.loadOrCreate(req.ProjectRoot)
	if err != nil {
		return fail(err)
	}
	if err := c.advance(PhaseLoaded); err != nil {
		return fail(err)
	}
	res.Manifest = m
	res.Messages = append(res.Messages, "loaded change manifest")

	if o.detector != nil {
		if err := o.detector.DetectChanges(ctx, req.ProjectRoot, m); err != nil {
			return fail(fmt.Errorf("change detection failed: %w", err))
		}
	}
	now := time.Now().UTC()
	m.LastAnalysisRun = &now
	if err := c.advance(PhaseAnalyzed); err != nil {
		return fail(err)
	}
	res.Messages = append(res.Messages, fmt.Sprintf("analyzed project: %d pending changes", len(m.PendingChanges)))

	if err := c.advance(PhasePlanDecided); err != nil {
		return fail(err)
	}
	if !req.ForceUpdate && !o.shouldUpdate(m) {
		if err := o.persist(req.ProjectRoot, m); err != nil {
			return fail(err)
		}
		if err := c.advance(PhaseNoUpdateNeeded); err != nil {
			return fail(err)
		}
		res.Phase = c.phase
		res.Messages = append(res.Messages, "no template update required")
		log.V(1).Info("no update needed", "strategy", o.config.Strategy)
		return res
	}

	if err := c.advance(PhasePlanning); err != nil {
		return fail(err)
	}
	plan := o.buildPlan(m, req.TargetEnvironments)
	res.Messages = append(res.Messages, fmt.Sprintf("planned update: %d changes across %d environments", len(plan.Changes), len(plan.Environments)))
	log.Info("planned template update",
		"changes", len(plan.Changes),
		"environments", plan.Environments,
		"resourceOrder", plan.ResourceOrder,
		"validation", plan.ValidationRequired,
		"backup", plan.BackupRequired)

	if err := c.advance(PhaseExecuting); err != nil {
		return fail(err)
	}
	if err := o.execute(ctx, req, m, plan, &res); err != nil {
		return fail(err)
	}

	newVersion, err := m.IncrementVersion(manifest.BumpForSeverity(highestSeverity(plan.Changes)))
	if err != nil {
		return fail(fmt.Errorf("version bump failed: %w", err))
	}
	o.CreateTemplateVersion(m, newVersion,
		fmt.Sprintf("automated update applying %d changes", len(plan.Changes)),
		plan.Changes)

	for _, env := range plan.Environments {
		o.updateEnvironment(m, env, newVersion)
	}
	m.ClearPendingChanges()

	if err := o.persist(req.ProjectRoot, m); err != nil {
		return fail(err)
	}
	if err := c.advance(PhaseSucceeded); err != nil {
		return fail(err)
	}

	res.Phase = c.phase
	res.NewVersion = newVersion
	res.Messages = append(res.Messages, fmt.Sprintf("templates updated to version %s", newVersion))
	log.Info("update cycle succeeded", "version", newVersion)
	return res
}

// loadOrCreate loads the manifest from the configured path, creating a fresh
// one when none exists. A corrupt manifest fails the cycle rather than being
// silently replaced.
func (o *Orchestrator) loadOrCreate(projectRoot string) (*manifest.ChangeManifest, error) {
	path := o.manifestPath(projectRoot)

	m, err := o.store.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return manifest.New(filepath.Base(projectRoot), projectRoot), nil
		}
		return nil, err
	}
	return m, nil
}

func (o *Orchestrator) persist(projectRoot string, m *manifest.ChangeManifest) error {
	return o.store.Save(m, o.manifestPath(projectRoot))
}

func (o *Orchestrator) manifestPath(projectRoot string) string {
	if filepath.IsAbs(o.config.ManifestPath) {
		return o.config.ManifestPath
	}
	return filepath.Join(projectRoot, o.config.ManifestPath)
}

// shouldUpdate applies the configured strategy to the pending changes:
// conservative acts only on critical changes, incremental on medium and
// above, aggressive on anything pending.
func (o *Orchestrator) shouldUpdate(m *manifest.ChangeManifest) bool {
	if len(m.PendingChanges) == 0 {
		return false
	}
	if o.config.Strategy == manifest.StrategyAggressive {
		return true
	}

	threshold := manifest.SeverityMedium
	if o.config.Strategy == manifest.StrategyConservative {
		threshold = manifest.SeverityCritical
	}

	for _, change := range m.PendingChanges {
		if change.Severity.AtLeast(threshold) {
			return true
		}
	}
	return false
}

// execute runs the planned update: backup, generation, validation. Any
// failure aborts the cycle before the manifest is mutated beyond analysis.
func (o *Orchestrator) execute(ctx context.Context, req Request, m *manifest.ChangeManifest, plan Plan, res *Result) error {
	if plan.BackupRequired {
		backupDir, err := o.createBackup(req.ProjectRoot)
		if err != nil {
			return err
		}
		res.Messages = append(res.Messages, fmt.Sprintf("backed up templates to %s", backupDir))
	}

	if o.generator == nil {
		return fmt.Errorf("no template generator configured")
	}
	templates, err := o.generator.Generate(ctx, req.ProjectRoot, m, plan.Environments)
	if err != nil {
		return fmt.Errorf("template generation failed: %w", err)
	}
	res.Messages = append(res.Messages, fmt.Sprintf("generated %d templates", len(templates)))

	if plan.ValidationRequired {
		if err := o.validateTemplates(ctx, templates); err != nil {
			return err
		}
		res.Messages = append(res.Messages, "validated generated templates")
	}

	return nil
}

// validateTemplates runs every configured validator against every generated
// template with bounded concurrency. A template passes when each validator
// reports it valid with a score at or above the configured minimum.
func (o *Orchestrator) validateTemplates(ctx context.Context, templates []GeneratedTemplate) error {
	p := pool.New().WithMaxGoroutines(o.config.MaxConcurrentValidations).WithErrors()

	for _, tmpl := range templates {
		p.Go(func() error {
			for _, validator := range o.validators {
				result, err := validator.Validate(ctx, tmpl.Content, tmpl.Parameters)
				if err != nil {
					return fmt.Errorf("validation of template %s failed: %w", tmpl.Name, err)
				}
				if !result.Valid || result.Score < o.config.MinBestPracticesScore {
					return fmt.Errorf("template %s failed validation: %s", tmpl.Name, strings.Join(result.Errors, "; "))
				}
			}
			return nil
		})
	}

	return p.Wait()
}

// updateEnvironment records the new version on an environment, creating the
// status record when the environment is new. Existing environments get the
// new version as their target and are marked as requiring an update.
func (o *Orchestrator) updateEnvironment(m *manifest.ChangeManifest, name, version string) {
	env, ok := m.Environment(name)
	if !ok {
		m.SetEnvironment(manifest.NewEnvironmentStatus(name, version))
		return
	}

	env.TargetVersion = version
	env.RequiresUpdate = true
	env.PendingChanges = nil
	m.Touch()
}

// highestSeverity returns the most severe change in the list, defaulting to
// low for an empty plan so forced updates bump the patch component.
func highestSeverity(changes []manifest.ResourceChange) manifest.ChangeSeverity {
	highest := manifest.SeverityLow
	for _, change := range changes {
		if change.Severity.AtLeast(highest) {
			highest = change.Severity
		}
	}
	return highest
}
