package orchestrator

import (
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/chazu/starbuck/pkg/manifest"
	"github.com/chazu/starbuck/pkg/rules"
)

var _ = Describe("version management", func() {
	var (
		o *Orchestrator
		m *manifest.ChangeManifest
	)

	BeforeEach(func() {
		ruleSet, err := rules.Default()
		Expect(err).NotTo(HaveOccurred())
		o = New(nil, nil, nil, ruleSet, DefaultConfig(), logr.Discard())
		m = manifest.New("shop", "/tmp/shop")
	})

	Describe("CreateTemplateVersion", func() {
		It("tallies changes and records breaking ones", func() {
			changes := []manifest.ResourceChange{
				{
					ResourceName: "shop-db", ChangeType: manifest.ChangeSecurityPolicyChanged,
					Severity: manifest.SeverityCritical, RequiresRedeployment: true,
				},
				{
					ResourceName: "shop-api", ChangeType: manifest.ChangeResourceModified,
					Severity: manifest.SeverityHigh,
				},
				{
					ResourceName: "shop-web", ChangeType: manifest.ChangeResourceModified,
					Severity: manifest.SeverityMedium,
				},
			}

			version := o.CreateTemplateVersion(m, "2.0.0", "security update", changes)

			Expect(version.ChangeSummary).To(HaveKeyWithValue(manifest.ChangeSecurityPolicyChanged, 1))
			Expect(version.ChangeSummary).To(HaveKeyWithValue(manifest.ChangeResourceModified, 2))
			Expect(version.BreakingChanges).To(ConsistOf("shop-db: security_policy_changed"))
			Expect(m.Templates).To(HaveKey("2.0.0"))
		})
	})

	Describe("VersionHistory", func() {
		BeforeEach(func() {
			base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
			for i, version := range []string{"1.0.0", "1.1.0", "2.0.0"} {
				m.AddTemplateVersion(manifest.TemplateVersion{
					Version:   version,
					Timestamp: base.Add(time.Duration(i) * time.Hour),
				})
			}
		})

		It("returns entries newest first", func() {
			history := o.VersionHistory(m, 0)
			Expect(history).To(HaveLen(3))
			Expect(history[0].Version).To(Equal("2.0.0"))
			Expect(history[2].Version).To(Equal("1.0.0"))
		})

		It("honors the limit", func() {
			history := o.VersionHistory(m, 2)
			Expect(history).To(HaveLen(2))
			Expect(history[0].Version).To(Equal("2.0.0"))
		})
	})

	Describe("CompareVersions", func() {
		It("diffs change tallies and breaking changes", func() {
			base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
			m.AddTemplateVersion(manifest.TemplateVersion{
				Version:         "1.0.0",
				Timestamp:       base,
				ChangeSummary:   map[manifest.ChangeType]int{manifest.ChangeResourceAdded: 2},
				BreakingChanges: []string{"old-db: resource_removed"},
			})
			m.AddTemplateVersion(manifest.TemplateVersion{
				Version:   "2.0.0",
				Timestamp: base.Add(2 * time.Hour),
				ChangeSummary: map[manifest.ChangeType]int{
					manifest.ChangeResourceAdded:         3,
					manifest.ChangeSecurityPolicyChanged: 1,
				},
				BreakingChanges: []string{"shop-db: security_policy_changed"},
			})

			comparison, err := o.CompareVersions(m, "1.0.0", "2.0.0")
			Expect(err).NotTo(HaveOccurred())
			Expect(comparison.TimeDelta).To(Equal(2 * time.Hour))
			Expect(comparison.ChangeDiff).To(HaveKeyWithValue(manifest.ChangeResourceAdded, 1))
			Expect(comparison.ChangeDiff).To(HaveKeyWithValue(manifest.ChangeSecurityPolicyChanged, 1))
			Expect(comparison.BreakingAdded).To(ConsistOf("shop-db: security_policy_changed"))
			Expect(comparison.BreakingRemoved).To(ConsistOf("old-db: resource_removed"))
		})

		It("errors when a version is missing", func() {
			_, err := o.CompareVersions(m, "1.0.0", "9.9.9")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("SynchronizeEnvironments", func() {
		It("schedules targets to the source version", func() {
			m.SetEnvironment(manifest.NewEnvironmentStatus("prod", "3.1.0"))
			m.SetEnvironment(manifest.NewEnvironmentStatus("staging", "2.0.0"))

			results := o.SynchronizeEnvironments(m, "prod", []string{"staging", "dev"})

			Expect(results).To(Equal(map[string]bool{"staging": true, "dev": true}))

			staging, _ := m.Environment("staging")
			Expect(staging.CurrentVersion).To(Equal("2.0.0"))
			Expect(staging.TargetVersion).To(Equal("3.1.0"))
			Expect(staging.RequiresUpdate).To(BeTrue())

			dev, ok := m.Environment("dev")
			Expect(ok).To(BeTrue())
			Expect(dev.CurrentVersion).To(Equal("0.0.0"))
			Expect(dev.TargetVersion).To(Equal("3.1.0"))

			prod, _ := m.Environment("prod")
			Expect(prod.TargetVersion).To(BeEmpty())
			Expect(prod.RequiresUpdate).To(BeFalse())
		})

		It("fails every target when the source is missing", func() {
			results := o.SynchronizeEnvironments(m, "prod", []string{"staging", "dev"})
			Expect(results).To(Equal(map[string]bool{"staging": false, "dev": false}))
		})
	})

	Describe("ResolutionSteps", func() {
		It("describes circular dependencies with remediation guidance", func() {
			steps := o.ResolutionSteps([]manifest.DependencyInfo{
				{
					TemplateName: "app", DependencyType: "circular", DependencyPath: "shared",
					CircularDependencies: []string{"app", "shared", "app"},
				},
				{
					TemplateName: "shared", DependencyType: "circular", DependencyPath: "app",
					CircularDependencies: []string{"app", "shared", "app"},
				},
			})

			Expect(steps[0]).To(Equal("circular dependencies detected:"))
			Expect(steps).To(ContainElement("  app -> shared -> app"))
			Expect(steps).To(ContainElement("recommended actions:"))
			// Identical cycles are reported once.
			Expect(steps).To(HaveLen(5))
		})

		It("returns nothing without circular dependencies", func() {
			steps := o.ResolutionSteps([]manifest.DependencyInfo{
				{TemplateName: "app", DependencyType: "resource", DependencyPath: "shared"},
			})
			Expect(steps).To(BeEmpty())
		})
	})
})
