package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
)

var (
	benchAll  bool
	benchCore bool
	benchTime string

	benchCmd = &cobra.Command{
		Use:   "bench [package]",
		Short: "Run performance benchmarks",
		Long: `Run Go benchmarks over the engine.

With no arguments, benchmarks the root jana2 package. --core restricts to
the engine's own _test.go benchmarks (pool, queue, factory, scheduler);
--all covers every package of the root jana2 module, arrowkit included.

Special options:
  --core  Benchmark the engine's pool, queue, factory and scheduler only
  --all   Run benchmarks across every package of the root jana2 module`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg := "../"
			if len(args) > 0 {
				pkg = args[0]
			}
			return runBenchmark(pkg, benchAll, benchCore, benchTime)
		},
	}
)

func init() {
	benchCmd.Flags().BoolVar(&benchAll, "all", false, "Run benchmarks across every package")
	benchCmd.Flags().BoolVar(&benchCore, "core", false, "Run the engine's own benchmarks only")
	benchCmd.Flags().StringVar(&benchTime, "time", "2s", "Benchmark duration per test")
}

func runBenchmark(pkg string, all, core bool, duration string) error {
	if all && core {
		return fmt.Errorf("cannot specify both --all and --core")
	}

	args := []string{"test", "-bench", ".", "-benchtime", duration, "-run", "^$"}

	if core {
		fmt.Println("running engine benchmarks (pool, queue, factory, scheduler)...")
		return runBenchmarkCommand(exec.Command("go", append(args, "../testing/benchmarks")...))
	}

	if all {
		fmt.Println("running benchmarks across jana2 and arrowkit...")
		return runBenchmarkCommand(exec.Command("go", append(args, "../...", "../arrowkit/...")...))
	}

	fmt.Printf("running benchmarks in %s...\n", pkg)
	return runBenchmarkCommand(exec.Command("go", append(args, pkg)...))
}

func runBenchmarkCommand(cmd *exec.Cmd) error {
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}

	fmt.Println(strings.Repeat("-", 40))
	fmt.Println("benchmark run complete")
	return nil
}
