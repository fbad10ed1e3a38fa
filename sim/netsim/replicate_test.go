package netsim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qcnsim/qcnsim/sim/traffic"
)

func stochasticScenario() *Scenario {
	sc := lineScenario()
	sc.Horizon = 100
	sc.Generators[0].Config = traffic.Config{Kind: traffic.Exponential, Rate: 0.5, Size: 125}
	return sc
}

func TestRunReplications_MatchesSequentialRuns(t *testing.T) {
	// GIVEN four seeds run two at a time
	sc := stochasticScenario()
	seeds := Seeds(100, 4)

	// WHEN replicated in parallel
	reports, err := RunReplications(context.Background(), sc, seeds, 2)
	require.NoError(t, err)

	// THEN each report equals a sequential run with the same seed
	require.Len(t, reports, 4)
	for i, seed := range seeds {
		one := *sc
		one.Seed = seed
		want := run(t, &one)
		assert.Equal(t, seed, reports[i].Seed)
		assert.Equal(t, want.Generated, reports[i].Generated, "seed %d", seed)
		assert.Equal(t, want.Delivered, reports[i].Delivered, "seed %d", seed)
		assert.Equal(t, want.MeanDelay, reports[i].MeanDelay, "seed %d", seed)
	}
	// AND the caller's scenario is untouched
	assert.Equal(t, int64(42), sc.Seed)
}

func TestRunReplications_Unlimited(t *testing.T) {
	reports, err := RunReplications(context.Background(), stochasticScenario(), Seeds(1, 3), 0)
	require.NoError(t, err)
	assert.Len(t, reports, 3)
}

func TestRunReplications_Errors(t *testing.T) {
	t.Run("no seeds", func(t *testing.T) {
		_, err := RunReplications(context.Background(), stochasticScenario(), nil, 1)
		assert.Error(t, err)
	})
	t.Run("invalid scenario", func(t *testing.T) {
		sc := stochasticScenario()
		sc.Horizon = -1
		_, err := RunReplications(context.Background(), sc, Seeds(1, 2), 1)
		assert.Error(t, err)
	})
	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := RunReplications(ctx, stochasticScenario(), Seeds(1, 2), 1)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSeeds(t *testing.T) {
	assert.Equal(t, []int64{5, 6, 7}, Seeds(5, 3))
	assert.Empty(t, Seeds(5, 0))
}

func TestSummarize_KnownSample(t *testing.T) {
	// GIVEN four runs delivering 1, 2, 3 and 4 PDUs
	var reports []*Report
	for i := 1; i <= 4; i++ {
		reports = append(reports, &Report{Generated: 4, Delivered: uint64(i), MeanDelay: 2})
	}

	// WHEN summarized
	s := Summarize(reports)

	// THEN the interval uses the sample std-dev and t(0.975, 3) = 3.182446
	assert.Equal(t, 4, s.Runs)
	assert.Equal(t, 0.95, s.Confidence)
	assert.InDelta(t, 2.5, s.Delivered.Mean, 1e-12)
	assert.InDelta(t, 1.290994, s.Delivered.StdDev, 1e-6)
	assert.InDelta(t, 2.054246, s.Delivered.HalfWidth, 1e-4)
	assert.InDelta(t, s.Delivered.Mean-s.Delivered.HalfWidth, s.Delivered.Lower, 1e-12)
	assert.InDelta(t, 0.625, s.DeliveryRatio.Mean, 1e-12)
	// AND a constant quantity has a zero-width interval
	assert.Equal(t, 2.0, s.MeanDelay.Mean)
	assert.Zero(t, s.MeanDelay.HalfWidth)
}

func TestSummarize_SingleRun_ZeroWidth(t *testing.T) {
	s := Summarize([]*Report{{Delivered: 9}})
	assert.Equal(t, Estimate{Mean: 9, Lower: 9, Upper: 9}, s.Delivered)
	assert.Zero(t, s.DeliveryRatio.Mean)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Runs)
	assert.Equal(t, Estimate{}, s.Delivered)
}
