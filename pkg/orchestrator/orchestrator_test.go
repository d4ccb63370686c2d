package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/chazu/starbuck/pkg/manifest"
	"github.com/chazu/starbuck/pkg/rules"
)

type fakeDetector struct {
	changes []manifest.ResourceChange
	err     error
	calls   int
}

func (d *fakeDetector) DetectChanges(_ context.Context, _ string, m *manifest.ChangeManifest) error {
	d.calls++
	if d.err != nil {
		return d.err
	}
	for _, change := range d.changes {
		m.AddResourceChange(change)
	}
	return nil
}

type fakeGenerator struct {
	templates []GeneratedTemplate
	err       error
	calls     int
}

func (g *fakeGenerator) Generate(_ context.Context, _ string, _ *manifest.ChangeManifest, _ []string) ([]GeneratedTemplate, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.templates, nil
}

type fakeValidator struct {
	result ValidationResult
	err    error
	calls  atomic.Int32
}

func (v *fakeValidator) Validate(_ context.Context, _ string, _ map[string]any) (ValidationResult, error) {
	v.calls.Add(1)
	if v.err != nil {
		return ValidationResult{}, v.err
	}
	return v.result, nil
}

var _ = Describe("Orchestrator", func() {
	var (
		ctx         context.Context
		projectRoot string
		ruleSet     *rules.RuleSet
		detector    *fakeDetector
		generator   *fakeGenerator
		validator   *fakeValidator
		config      Config
	)

	criticalChange := manifest.ResourceChange{
		ResourceType:         "Microsoft.Sql/servers",
		ResourceName:         "shop-db",
		ChangeType:           manifest.ChangeSecurityPolicyChanged,
		Severity:             manifest.SeverityCritical,
		Impact:               manifest.ImpactGlobal,
		RequiresValidation:   true,
		RequiresRedeployment: true,
	}

	newOrchestrator := func() *Orchestrator {
		return New(detector, generator, []TemplateValidator{validator}, ruleSet, config, logr.Discard())
	}

	loadSaved := func() *manifest.ChangeManifest {
		m, err := manifest.NewStore(logr.Discard()).Load(filepath.Join(projectRoot, config.ManifestPath))
		Expect(err).NotTo(HaveOccurred())
		return m
	}

	BeforeEach(func() {
		ctx = context.Background()
		projectRoot = GinkgoT().TempDir()

		var err error
		ruleSet, err = rules.Default()
		Expect(err).NotTo(HaveOccurred())

		detector = &fakeDetector{}
		generator = &fakeGenerator{templates: []GeneratedTemplate{
			{Name: "main", Path: "infrastructure/main.bicep", Content: "resource shopApi ..."},
		}}
		validator = &fakeValidator{result: ValidationResult{Valid: true, Score: 0.9}}
		config = DefaultConfig()
	})

	Context("when a critical change is pending", func() {
		BeforeEach(func() {
			detector.changes = []manifest.ResourceChange{criticalChange}
		})

		It("executes a full update cycle", func() {
			result := newOrchestrator().Run(ctx, Request{ProjectRoot: projectRoot})

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Phase).To(Equal(PhaseSucceeded))
			Expect(result.CycleID).NotTo(BeEmpty())
			Expect(result.NewVersion).To(Equal("2.0.0"))

			Expect(detector.calls).To(Equal(1))
			Expect(generator.calls).To(Equal(1))
			Expect(validator.calls.Load()).To(BeEquivalentTo(1))

			m := result.Manifest
			Expect(m.PendingChanges).To(BeEmpty())
			Expect(m.CurrentVersion).To(Equal("2.0.0"))

			version, ok := m.Templates["2.0.0"]
			Expect(ok).To(BeTrue())
			Expect(version.ChangeSummary).To(HaveKeyWithValue(manifest.ChangeSecurityPolicyChanged, 1))
			Expect(version.BreakingChanges).To(ContainElement("shop-db: security_policy_changed"))

			env, ok := m.Environment("dev")
			Expect(ok).To(BeTrue())
			Expect(env.CurrentVersion).To(Equal("2.0.0"))
		})

		It("persists the manifest on success", func() {
			result := newOrchestrator().Run(ctx, Request{ProjectRoot: projectRoot})
			Expect(result.Phase).To(Equal(PhaseSucceeded))

			saved := loadSaved()
			Expect(saved.CurrentVersion).To(Equal("2.0.0"))
			Expect(saved.PendingChanges).To(BeEmpty())
		})

		It("backs up existing templates before executing", func() {
			Expect(os.MkdirAll(filepath.Join(projectRoot, "infrastructure"), 0o755)).To(Succeed())
			original := filepath.Join(projectRoot, "infrastructure", "main.bicep")
			Expect(os.WriteFile(original, []byte("resource shopApi ..."), 0o644)).To(Succeed())

			result := newOrchestrator().Run(ctx, Request{ProjectRoot: projectRoot})
			Expect(result.Phase).To(Equal(PhaseSucceeded))

			backups, err := filepath.Glob(filepath.Join(projectRoot, config.BackupDirName, "*", "infrastructure", "main.bicep"))
			Expect(err).NotTo(HaveOccurred())
			Expect(backups).To(HaveLen(1))

			data, err := os.ReadFile(backups[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("resource shopApi ..."))
		})

		It("marks existing environments for update instead of replacing them", func() {
			seed := manifest.New(filepath.Base(projectRoot), projectRoot)
			seed.SetEnvironment(manifest.NewEnvironmentStatus("prod", "1.0.0"))
			store := manifest.NewStore(logr.Discard())
			Expect(store.Save(seed, filepath.Join(projectRoot, config.ManifestPath))).To(Succeed())

			result := newOrchestrator().Run(ctx, Request{ProjectRoot: projectRoot, TargetEnvironments: []string{"prod"}})
			Expect(result.Phase).To(Equal(PhaseSucceeded))

			env, ok := result.Manifest.Environment("prod")
			Expect(ok).To(BeTrue())
			Expect(env.CurrentVersion).To(Equal("1.0.0"))
			Expect(env.TargetVersion).To(Equal("2.0.0"))
			Expect(env.RequiresUpdate).To(BeTrue())
		})

		It("fails the cycle when validation rejects a template", func() {
			validator.result = ValidationResult{Valid: false, Errors: []string{"missing required tag"}}

			result := newOrchestrator().Run(ctx, Request{ProjectRoot: projectRoot})

			Expect(result.Phase).To(Equal(PhaseFailed))
			Expect(result.Err).To(MatchError(ContainSubstring("failed validation")))
			Expect(result.Manifest.PendingChanges).To(HaveLen(1))
			Expect(result.Manifest.CurrentVersion).To(Equal("1.0.0"))

			_, err := os.Stat(filepath.Join(projectRoot, config.ManifestPath))
			Expect(err).To(MatchError(os.ErrNotExist))
		})

		It("fails the cycle when the best-practices score is too low", func() {
			validator.result = ValidationResult{Valid: true, Score: 0.4}

			result := newOrchestrator().Run(ctx, Request{ProjectRoot: projectRoot})
			Expect(result.Phase).To(Equal(PhaseFailed))
		})

		It("returns the last valid manifest when generation fails", func() {
			generator.err = errors.New("generator exploded")

			result := newOrchestrator().Run(ctx, Request{ProjectRoot: projectRoot})

			Expect(result.Phase).To(Equal(PhaseFailed))
			Expect(result.Err).To(MatchError(ContainSubstring("generator exploded")))
			Expect(result.Manifest).NotTo(BeNil())
			Expect(result.Manifest.PendingChanges).To(HaveLen(1))
		})

		It("fails the cycle when change detection fails", func() {
			detector.err = errors.New("scan failed")

			result := newOrchestrator().Run(ctx, Request{ProjectRoot: projectRoot})

			Expect(result.Phase).To(Equal(PhaseFailed))
			Expect(generator.calls).To(BeZero())
		})
	})

	Context("with the conservative strategy and only medium pending changes", func() {
		BeforeEach(func() {
			config.Strategy = manifest.StrategyConservative

			seed := manifest.New(filepath.Base(projectRoot), projectRoot)
			seed.PendingChanges = []manifest.ResourceChange{{
				ResourceType: "Microsoft.Web/sites",
				ResourceName: "shop-api",
				ChangeType:   manifest.ChangeConfigurationChanged,
				Severity:     manifest.SeverityMedium,
				Impact:       manifest.ImpactLocal,
			}}
			store := manifest.NewStore(logr.Discard())
			Expect(store.Save(seed, filepath.Join(projectRoot, config.ManifestPath))).To(Succeed())
		})

		It("leaves the version and pending changes untouched", func() {
			result := newOrchestrator().Run(ctx, Request{ProjectRoot: projectRoot})

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Phase).To(Equal(PhaseNoUpdateNeeded))
			Expect(result.Manifest.CurrentVersion).To(Equal("1.0.0"))
			Expect(result.Manifest.PendingChanges).To(HaveLen(1))
			Expect(generator.calls).To(BeZero())
		})
	})

	Context("with a forced update and no pending changes", func() {
		It("executes and bumps the patch version", func() {
			result := newOrchestrator().Run(ctx, Request{ProjectRoot: projectRoot, ForceUpdate: true})

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Phase).To(Equal(PhaseSucceeded))
			Expect(result.NewVersion).To(Equal("1.0.1"))
			Expect(generator.calls).To(Equal(1))
		})
	})

	Context("without pending changes and no force", func() {
		It("finishes as no update needed", func() {
			result := newOrchestrator().Run(ctx, Request{ProjectRoot: projectRoot})

			Expect(result.Phase).To(Equal(PhaseNoUpdateNeeded))
			Expect(generator.calls).To(BeZero())
		})
	})
})

var _ = Describe("cycle phases", func() {
	It("walks the full successful path", func() {
		c := newCycle()
		for _, phase := range []Phase{PhaseLoaded, PhaseAnalyzed, PhasePlanDecided, PhasePlanning, PhaseExecuting, PhaseSucceeded} {
			Expect(c.advance(phase)).To(Succeed())
		}
		Expect(c.phase).To(Equal(PhaseSucceeded))
	})

	It("refuses to execute before planning", func() {
		c := newCycle()
		Expect(c.advance(PhaseLoaded)).To(Succeed())
		Expect(c.advance(PhaseExecuting)).To(MatchError(ContainSubstring("cannot transition")))
	})

	It("treats success as terminal", func() {
		c := newCycle()
		for _, phase := range []Phase{PhaseLoaded, PhaseAnalyzed, PhasePlanDecided, PhaseNoUpdateNeeded} {
			Expect(c.advance(phase)).To(Succeed())
		}
		Expect(c.advance(PhaseFailed)).NotTo(Succeed())
	})

	It("allows failing from any non-terminal phase", func() {
		c := newCycle()
		Expect(c.advance(PhaseLoaded)).To(Succeed())
		Expect(c.advance(PhaseFailed)).To(Succeed())
	})
})
