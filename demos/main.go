package main

import (
	"fmt"
	"os"
	"strings"
)

// Demo is one runnable topology scenario.
type Demo struct {
	Name        string
	Description string
	Run         func()
}

var demos []Demo

func init() {
	demos = []Demo{
		{
			Name:        "bounded",
			Description: "Bounded source emitting a fixed count on one thread",
			Run:         runBoundedSourceDemo,
		},
		{
			Name:        "unbounded",
			Description: "Unbounded source stopped manually after a wall-clock window",
			Run:         runUnboundedSourceDemo,
		},
		{
			Name:        "barrier",
			Description: "Sequential (barrier) events draining to isolation every 10th event",
			Run:         runBarrierDemo,
		},
		{
			Name:        "backpressure",
			Description: "Queue pressure capping in-flight events at max_inflight",
			Run:         runQueuePressureDemo,
		},
		{
			Name:        "rebalance",
			Description: "Fixed scheduler round-robin rebalance across arrows",
			Run:         runRebalanceDemo,
		},
		{
			Name:        "factory",
			Description: "Factory caching: shared per-event computation invoked once",
			Run:         runFactoryCachingDemo,
		},
		{
			Name:        "resilient",
			Description: "A Processor stage wrapped with arrowkit retry/circuit-breaker",
			Run:         runResilientSourceDemo,
		},
		{
			Name:        "all",
			Description: "Run every demo in sequence",
			Run:         runAllDemos,
		},
	}
}

func runAllDemos() {
	for _, d := range demos {
		if d.Name == "all" {
			continue
		}
		fmt.Printf("\n=== %s: %s ===\n", d.Name, d.Description)
		d.Run()
	}
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	name := strings.ToLower(os.Args[1])
	for _, d := range demos {
		if d.Name == name {
			d.Run()
			return
		}
	}

	fmt.Fprintf(os.Stderr, "unknown demo %q\n\n", name)
	printUsage()
	os.Exit(1)
}

func printUsage() {
	fmt.Println("usage: demos <name>")
	fmt.Println("\navailable demos:")
	for _, d := range demos {
		fmt.Printf("  %-14s %s\n", d.Name, d.Description)
	}
}
