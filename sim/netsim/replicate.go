package netsim

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Confidence is the two-sided level of the intervals in a Summary.
const Confidence = 0.95

// RunReplications runs sc once per seed, at most parallelism runs at a time
// (no limit when parallelism < 1). Each run builds its own simulator, so runs
// share nothing but the read-only scenario. Reports come back in seed order.
// The first failing run cancels the others.
func RunReplications(ctx context.Context, sc *Scenario, seeds []int64, parallelism int) ([]*Report, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("no seeds to replicate")
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	reports := make([]*Report, len(seeds))
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, seed := range seeds {
		g.Go(func() error {
			run := *sc
			run.Seed = seed
			s, err := NewSimulator(&run)
			if err != nil {
				return fmt.Errorf("replication %d (seed %d): %w", i, seed, err)
			}
			r, err := s.Run(ctx)
			if err != nil {
				return fmt.Errorf("replication %d (seed %d): %w", i, seed, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logrus.Infof("%d replications complete", len(reports))
	return reports, nil
}

// Seeds returns n consecutive seeds starting at base.
func Seeds(base int64, n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = base + int64(i)
	}
	return seeds
}

// Estimate is a sample mean with a Student-t confidence interval.
type Estimate struct {
	Mean      float64 `yaml:"mean"`
	StdDev    float64 `yaml:"stddev"`
	HalfWidth float64 `yaml:"half_width"`
	Lower     float64 `yaml:"lower"`
	Upper     float64 `yaml:"upper"`
}

// Summary aggregates a set of replications.
type Summary struct {
	Runs            int      `yaml:"runs"`
	Confidence      float64  `yaml:"confidence"`
	Delivered       Estimate `yaml:"delivered"`
	DeliveryRatio   Estimate `yaml:"delivery_ratio"`
	MeanDelay       Estimate `yaml:"mean_delay"`
	LinkUtilization Estimate `yaml:"link_utilization"`
}

// Summarize computes across-replication estimates. A single replication has
// a zero-width interval.
func Summarize(reports []*Report) Summary {
	n := len(reports)
	delivered := make([]float64, n)
	ratio := make([]float64, n)
	delay := make([]float64, n)
	util := make([]float64, n)
	for i, r := range reports {
		delivered[i] = float64(r.Delivered)
		if r.Generated > 0 {
			ratio[i] = float64(r.Delivered) / float64(r.Generated)
		}
		delay[i] = r.MeanDelay
		util[i] = r.MeanLinkUtilization
	}
	return Summary{
		Runs:            n,
		Confidence:      Confidence,
		Delivered:       estimate(delivered),
		DeliveryRatio:   estimate(ratio),
		MeanDelay:       estimate(delay),
		LinkUtilization: estimate(util),
	}
}

func estimate(xs []float64) Estimate {
	switch len(xs) {
	case 0:
		return Estimate{}
	case 1:
		return Estimate{Mean: xs[0], Lower: xs[0], Upper: xs[0]}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	n := float64(len(xs))
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}.Quantile(1 - (1-Confidence)/2)
	hw := t * std / math.Sqrt(n)
	return Estimate{Mean: mean, StdDev: std, HalfWidth: hw, Lower: mean - hw, Upper: mean + hw}
}
