package netsim

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExampleScenarios verifies that every scenario shipped under examples/
// loads, validates and runs to its horizon.
func TestExampleScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "examples", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no example scenarios found")

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			// GIVEN the example scenario
			sc, err := LoadScenario(path)
			require.NoError(t, err)

			// WHEN it runs
			r := run(t, sc)

			// THEN it reaches the horizon and moves traffic
			assert.Equal(t, sc.Horizon, r.EndTime)
			assert.Positive(t, r.Generated)
			assert.Positive(t, r.Delivered)
			assert.Zero(t, r.RouteErrors)
		})
	}
}

func TestExampleScenarios_PriorityPreemption(t *testing.T) {
	// GIVEN the bottleneck scenario with a preemptive router->dst link
	sc, err := LoadScenario(filepath.Join("..", "..", "examples", "priority-preemption.yaml"))
	require.NoError(t, err)

	// WHEN it runs
	r := run(t, sc)

	// THEN bulk transmissions were preempted by control traffic
	bottleneck := linkStats(t, r, "router->dst")
	assert.Positive(t, bottleneck.Transmission.Preempted)
	assert.Equal(t, bottleneck.Transmission.Released-bottleneck.Transmission.Preempted,
		bottleneck.Transmission.FullyServiced)
}
