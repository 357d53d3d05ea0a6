package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	rootCmd = &cobra.Command{
		Use:   "jana2",
		Short: "JANA2-style multithreaded event processing engine demos and benchmarks",
		Long: `jana2 is a CLI tool for exploring a multithreaded physics event
processing engine through runnable topology demonstrations and performance
benchmarks.

Run topology scenarios (bounded sources, barrier isolation, queue pressure,
scheduler rebalance, factory caching, arrowkit resilience wrappers) and
measure their throughput.`,
		Version: version,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available topology scenarios",
	Long:  "Display every topology scenario runnable via jana2 demo <name>.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Available scenarios:")
		fmt.Println()
		for _, s := range allScenarios() {
			fmt.Printf("  %-14s %s\n", s.Name, s.Description)
		}
	},
}
