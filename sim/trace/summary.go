package trace

import "github.com/qcnsim/qcnsim/sim"

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions      int            `yaml:"total_decisions"`
	AdmittedCount       int            `yaml:"admitted"`
	RejectedCount       int            `yaml:"rejected"`
	TotalForwardings    int            `yaml:"total_forwardings"`
	DeliveredCount      int            `yaml:"delivered"`
	TTLDropCount        int            `yaml:"ttl_dropped"`
	UniqueNodes         int            `yaml:"unique_nodes"`
	NodeDistribution    map[string]int `yaml:"node_distribution"`    // node -> items forwarded
	OutcomeDistribution map[string]int `yaml:"outcome_distribution"` // result name -> count
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		NodeDistribution:    make(map[string]int),
		OutcomeDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDecisions = len(st.Admissions)
	for _, a := range st.Admissions {
		if a.Admitted {
			summary.AdmittedCount++
		} else {
			summary.RejectedCount++
		}
		summary.OutcomeDistribution[a.Outcome]++
	}

	summary.TotalForwardings = len(st.Forwardings)
	for _, f := range st.Forwardings {
		summary.OutcomeDistribution[f.Outcome]++
		switch f.Outcome {
		case OutcomeRouteUpdated:
			summary.NodeDistribution[f.Node]++
		case OutcomeFinalDestination:
			summary.DeliveredCount++
		case OutcomeTTLExceeded:
			summary.TTLDropCount++
		}
	}

	summary.UniqueNodes = len(summary.NodeDistribution)

	return summary
}

// Node outcomes the summary counts separately, as the driver records them.
var (
	OutcomeRouteUpdated     = sim.NodeRouteUpdated.String()
	OutcomeFinalDestination = sim.NodeFinalDestination.String()
	OutcomeTTLExceeded      = sim.NodeTTLExceeded.String()
)
