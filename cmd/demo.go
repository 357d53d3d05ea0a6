package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
)

var (
	demoCmd = &cobra.Command{
		Use:   "demo [scenario]",
		Short: "Run a topology scenario",
		Long: `Run one of the demos module's topology scenarios.

When run without arguments, lists the available scenarios. When run with a
scenario name, builds and runs that topology against the public
ProcessingController API.`,
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) != 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			var completions []string
			for _, s := range allScenarios() {
				if strings.HasPrefix(s.Name, toComplete) {
					completions = append(completions, s.Name)
				}
			}
			return completions, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				listCmd.Run(cmd, args)
				return nil
			}
			return runDemoScenario(args[0])
		},
	}
)

// runDemoScenario delegates to the demos module's own runnable binary
// rather than duplicating its topology construction here; cmd/jana2 stays
// a thin runner over the demos module and the ProcessingController it
// drives.
func runDemoScenario(name string) error {
	if _, ok := scenarioByName(name); !ok {
		return fmt.Errorf("unknown scenario: %s\n\nRun 'jana2 list' to see available scenarios", name)
	}

	c := exec.Command("go", "run", "../demos", name)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Stdin = os.Stdin
	if err := c.Run(); err != nil {
		return fmt.Errorf("demo %q failed: %w", name, err)
	}
	return nil
}
