package main

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kuitang/storefront-e2e/internal/scenario"
)

// errScenariosFailed is returned by run when at least one scenario failed.
// The report has already been printed, so main only sets the exit code.
var errScenariosFailed = errors.New("scenarios failed")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storefront-e2e",
		Short:         "Browser scenarios for the retail demo storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newListCmd())
	return root
}

// filterFlags select scenarios by actor identity and label.
type filterFlags struct {
	actor string
	run   string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.actor, "actor", "", "only scenarios whose actor identity matches this regexp")
	cmd.Flags().StringVar(&f.run, "run", "", "only scenarios whose label matches this regexp")
}

func (f *filterFlags) apply(all []scenario.Scenario) ([]scenario.Scenario, error) {
	actor, err := compileOptional("--actor", f.actor)
	if err != nil {
		return nil, err
	}
	name, err := compileOptional("--run", f.run)
	if err != nil {
		return nil, err
	}
	return scenario.Filter(all, actor, name), nil
}

func compileOptional(flag, expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid %s pattern: %w", flag, err)
	}
	return re, nil
}

func newListCmd() *cobra.Command {
	var filter filterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the scenario catalog grouped by actor and screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scenarios, err := filter.apply(scenario.Catalog())
			if err != nil {
				return err
			}
			printCatalog(cmd.OutOrStdout(), scenarios)
			return nil
		},
	}
	filter.register(cmd)
	return cmd
}

func printCatalog(w io.Writer, scenarios []scenario.Scenario) {
	type group struct {
		actor  string
		screen scenario.Screen
	}
	groups := make(map[group][]string)
	var order []group
	for _, sc := range scenarios {
		actor := sc.Actor.Identity
		if actor == "" {
			actor = "anonymous"
		}
		g := group{actor, sc.Screen}
		if _, ok := groups[g]; !ok {
			order = append(order, g)
		}
		groups[g] = append(groups[g], sc.Name)
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].actor < order[j].actor })

	for _, g := range order {
		fmt.Fprintf(w, "%s %s\n", headerColor.Sprint(g.actor), faintColor.Sprintf("(%s)", g.screen))
		for _, name := range groups[g] {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
	fmt.Fprintf(w, "\n%d scenarios\n", len(scenarios))
}
