package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/chazu/starbuck/pkg/graph"
	"github.com/chazu/starbuck/pkg/manifest"
	"github.com/chazu/starbuck/pkg/orchestrator"
	"github.com/chazu/starbuck/pkg/resolver"
	"github.com/chazu/starbuck/pkg/rules"
)

func main() {
	app := &cli.App{
		Name:  "starbuck",
		Usage: "inspect template change manifests and dependency graphs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "manifest",
				Aliases: []string{"m"},
				Value:   "infrastructure/template-manifest.json",
				Usage:   "path to the change manifest",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "show project identity, version and pending changes",
				Action: runStatus,
			},
			{
				Name:  "history",
				Usage: "show the template version history, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 10,
						Usage: "maximum entries to show (0 for all)",
					},
				},
				Action: runHistory,
			},
			{
				Name:   "order",
				Usage:  "show deployment groups for the template dependency graph",
				Action: runOrder,
			},
			{
				Name:   "dot",
				Usage:  "write the template dependency graph as graphviz DOT",
				Action: runDot,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(c *cli.Context) (logr.Logger, error) {
	cfg := zap.NewProductionConfig()
	if c.Bool("debug") {
		cfg = zap.NewDevelopmentConfig()
	}
	zl, err := cfg.Build()
	if err != nil {
		return logr.Logger{}, fmt.Errorf("failed to build logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}

func loadManifest(c *cli.Context) (*manifest.ChangeManifest, error) {
	log, err := newLogger(c)
	if err != nil {
		return nil, err
	}
	return manifest.NewStore(log).Load(c.String("manifest"))
}

func runStatus(c *cli.Context) error {
	m, err := loadManifest(c)
	if err != nil {
		return err
	}

	fmt.Printf("project:  %s (%s)\n", m.ProjectName, m.ProjectPath)
	fmt.Printf("version:  %s (schema %s)\n", m.CurrentVersion, m.SchemaVersion)
	fmt.Printf("strategy: %s\n", m.UpdateStrategy)
	fmt.Printf("changes:  %d file, %d resource, %d pending\n",
		len(m.FileChanges), len(m.ResourceChanges), len(m.PendingChanges))
	if m.RequiresTemplateUpdate() {
		fmt.Println("status:   template update required")
	} else {
		fmt.Println("status:   up to date")
	}

	if len(m.Environments) > 0 {
		fmt.Println("\nenvironments:")
		for _, name := range m.EnvironmentNames() {
			env, _ := m.Environment(name)
			line := fmt.Sprintf("  %-12s %s", name, env.CurrentVersion)
			if env.TargetVersion != "" && env.TargetVersion != env.CurrentVersion {
				line += " -> " + env.TargetVersion
			}
			if env.RequiresUpdate {
				line += " (update required)"
			}
			fmt.Println(line)
		}
	}
	return nil
}

func runHistory(c *cli.Context) error {
	m, err := loadManifest(c)
	if err != nil {
		return err
	}

	log, err := newLogger(c)
	if err != nil {
		return err
	}
	ruleSet, err := rules.Default()
	if err != nil {
		return err
	}
	o := orchestrator.New(nil, nil, nil, ruleSet, orchestrator.DefaultConfig(), log)

	history := o.VersionHistory(m, c.Int("limit"))
	if len(history) == 0 {
		fmt.Println("no versions recorded")
		return nil
	}

	for _, v := range history {
		fmt.Printf("%-10s %s  %s\n", v.Version, v.Timestamp.Format("2006-01-02 15:04:05"), v.Description)
		for _, breaking := range v.BreakingChanges {
			fmt.Printf("           breaking: %s\n", breaking)
		}
	}
	return nil
}

// templateGraph builds a dependency graph from the manifest's template
// adjacency, treating every inter-template dependency as hard.
func templateGraph(m *manifest.ChangeManifest) *graph.DependencyGraph {
	g := graph.New()

	names := make([]string, 0, len(m.TemplateGraph))
	for name := range m.TemplateGraph {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		g.AddNode(name)
		for _, dep := range m.TemplateGraph[name] {
			g.AddDependency(graph.ResourceDependency{
				Source: name,
				Target: dep,
				Kind:   graph.DependencyHard,
				Reason: "template dependency",
			})
		}
	}
	return g
}

func runOrder(c *cli.Context) error {
	m, err := loadManifest(c)
	if err != nil {
		return err
	}

	log, err := newLogger(c)
	if err != nil {
		return err
	}
	ruleSet, err := rules.Default()
	if err != nil {
		return err
	}
	r, err := resolver.New(ruleSet, log)
	if err != nil {
		return err
	}

	groups := r.DeploymentOrder(templateGraph(m), true)
	if len(groups) == 0 {
		fmt.Println("no templates in the dependency graph")
		return nil
	}

	for i, group := range groups {
		fmt.Printf("group %d: %v\n", i+1, group)
	}
	return nil
}

func runDot(c *cli.Context) error {
	m, err := loadManifest(c)
	if err != nil {
		return err
	}
	return templateGraph(m).DOT(os.Stdout)
}
