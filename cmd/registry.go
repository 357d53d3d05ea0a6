package main

// Scenario names a topology scenario exposed by the demos module, for
// listing and shell completion. cmd/jana2 dispatches by name rather than
// constructing topologies itself; the engine semantics live in demos/ and
// in the jana2 package it imports.
type Scenario struct {
	Name        string
	Description string
}

// allScenarios lists every topology scenario runnable via `jana2 demo
// <name>`, mirroring demos.demos in ../demos/main.go.
func allScenarios() []Scenario {
	return []Scenario{
		{Name: "bounded", Description: "Bounded source emitting a fixed count on one thread"},
		{Name: "unbounded", Description: "Unbounded source stopped manually after a wall-clock window"},
		{Name: "barrier", Description: "Sequential (barrier) events draining to isolation every 10th event"},
		{Name: "backpressure", Description: "Queue pressure capping in-flight events at max_inflight"},
		{Name: "rebalance", Description: "Fixed scheduler rebalance shifting a worker between arrows"},
		{Name: "factory", Description: "Factory caching: shared per-event computation invoked once"},
		{Name: "resilient", Description: "A Processor stage wrapped with arrowkit retry/circuit-breaker"},
		{Name: "all", Description: "Run every demo scenario in sequence"},
	}
}

func scenarioByName(name string) (Scenario, bool) {
	for _, s := range allScenarios() {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}
