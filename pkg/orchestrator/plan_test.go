package orchestrator

import (
	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/chazu/starbuck/pkg/manifest"
	"github.com/chazu/starbuck/pkg/rules"
)

var _ = Describe("update plans", func() {
	var o *Orchestrator

	change := func(resourceType string, severity manifest.ChangeSeverity) manifest.ResourceChange {
		return manifest.ResourceChange{
			ResourceType: resourceType,
			ResourceName: "r",
			ChangeType:   manifest.ChangeResourceModified,
			Severity:     severity,
			Impact:       manifest.ImpactLocal,
		}
	}

	BeforeEach(func() {
		ruleSet, err := rules.Default()
		Expect(err).NotTo(HaveOccurred())
		o = New(nil, nil, nil, ruleSet, DefaultConfig(), logr.Discard())
	})

	It("orders changes severity-first", func() {
		m := manifest.New("shop", "/tmp/shop")
		m.PendingChanges = []manifest.ResourceChange{
			change("Microsoft.Web/sites", manifest.SeverityMedium),
			change("Microsoft.Sql/servers", manifest.SeverityCritical),
			change("Microsoft.Storage/storageAccounts", manifest.SeverityHigh),
		}

		plan := o.buildPlan(m, nil)

		Expect(plan.Changes).To(HaveLen(3))
		Expect(plan.Changes[0].Severity).To(Equal(manifest.SeverityCritical))
		Expect(plan.Changes[1].Severity).To(Equal(manifest.SeverityHigh))
		Expect(plan.Changes[2].Severity).To(Equal(manifest.SeverityMedium))
	})

	It("sequences resource types by deployment priority", func() {
		m := manifest.New("shop", "/tmp/shop")
		m.PendingChanges = []manifest.ResourceChange{
			change("Microsoft.Web/sites", manifest.SeverityHigh),
			change("Custom.Provider/widgets", manifest.SeverityHigh),
			change("Microsoft.Network/virtualNetworks", manifest.SeverityHigh),
			change("Microsoft.Storage/storageAccounts", manifest.SeverityHigh),
		}

		plan := o.buildPlan(m, nil)

		Expect(plan.ResourceOrder).To(Equal([]string{
			"Microsoft.Network/virtualNetworks",
			"Microsoft.Storage/storageAccounts",
			"Microsoft.Web/sites",
			"Custom.Provider/widgets",
		}))
	})

	It("requires backup only for high or critical changes", func() {
		m := manifest.New("shop", "/tmp/shop")
		m.PendingChanges = []manifest.ResourceChange{change("Microsoft.Web/sites", manifest.SeverityMedium)}
		Expect(o.buildPlan(m, nil).BackupRequired).To(BeFalse())

		m.PendingChanges = append(m.PendingChanges, change("Microsoft.Sql/servers", manifest.SeverityHigh))
		Expect(o.buildPlan(m, nil).BackupRequired).To(BeTrue())
	})

	It("requires validation when any change demands it", func() {
		m := manifest.New("shop", "/tmp/shop")
		c := change("Microsoft.Web/sites", manifest.SeverityHigh)
		m.PendingChanges = []manifest.ResourceChange{c}
		Expect(o.buildPlan(m, nil).ValidationRequired).To(BeFalse())

		c.RequiresValidation = true
		m.PendingChanges = []manifest.ResourceChange{c}
		Expect(o.buildPlan(m, nil).ValidationRequired).To(BeTrue())
	})

	It("targets known environments when none are requested", func() {
		m := manifest.New("shop", "/tmp/shop")
		m.SetEnvironment(manifest.NewEnvironmentStatus("prod", "1.0.0"))
		m.SetEnvironment(manifest.NewEnvironmentStatus("staging", "1.0.0"))

		plan := o.buildPlan(m, nil)
		Expect(plan.Environments).To(Equal([]string{"prod", "staging"}))
	})

	It("falls back to dev when no environments exist", func() {
		m := manifest.New("shop", "/tmp/shop")
		Expect(o.buildPlan(m, nil).Environments).To(Equal([]string{"dev"}))
	})
})
