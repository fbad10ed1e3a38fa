package netsim

import (
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/qcnsim/qcnsim/sim"
	"github.com/qcnsim/qcnsim/sim/link"
	"github.com/qcnsim/qcnsim/sim/metrics"
	"github.com/qcnsim/qcnsim/sim/trace"
	"github.com/qcnsim/qcnsim/sim/traffic"
)

// Report is the outcome of one run. Busy periods still open at the end of
// the run are not part of the facility statistics.
type Report struct {
	Seed          int64   `yaml:"seed"`
	StartTime     float64 `yaml:"start_time"`
	EndTime       float64 `yaml:"end_time"`
	Events        uint64  `yaml:"events"`
	PendingEvents int     `yaml:"pending_events"`

	Generated           uint64  `yaml:"generated"`
	Delivered           uint64  `yaml:"delivered"`
	TTLDropped          uint64  `yaml:"ttl_dropped"`
	RouteErrors         uint64  `yaml:"route_errors"`
	LinkDropped         uint64  `yaml:"link_dropped"`
	MeanDelay           float64 `yaml:"mean_delay"` // generation to delivery
	MeanLinkUtilization float64 `yaml:"mean_link_utilization"`

	Generators []GeneratorStats    `yaml:"generators"`
	Nodes      []sim.NodeStats     `yaml:"nodes"`
	Links      []link.Stats        `yaml:"links"`
	Trace      *trace.TraceSummary `yaml:"trace,omitempty"`
}

// GeneratorStats is the reportable state of one traffic generator.
type GeneratorStats struct {
	ID          int          `yaml:"id"`
	Kind        traffic.Kind `yaml:"kind"`
	Source      string       `yaml:"source"`
	Destination string       `yaml:"destination"`
	Generated   uint64       `yaml:"generated"`
}

// Report snapshots the run as it stands.
func (ns *Simulator) Report() *Report {
	r := &Report{
		Seed:          ns.scenario.Seed,
		StartTime:     ns.globals.StartTime(),
		EndTime:       ns.scheduler.Now(),
		Events:        ns.events,
		PendingEvents: ns.scheduler.ChainSize(),
		Delivered:     ns.delivered,
		TTLDropped:    ns.ttlDropped,
		RouteErrors:   ns.routeErrors,
	}
	if ns.delivered > 0 {
		r.MeanDelay = ns.deliveredTime / float64(ns.delivered)
	}

	for _, g := range ns.generators {
		r.Generated += g.Generated()
		r.Generators = append(r.Generators, GeneratorStats{
			ID:          g.ID(),
			Kind:        g.Config().Kind,
			Source:      g.Source().Name(),
			Destination: g.Destination().Name(),
			Generated:   g.Generated(),
		})
	}
	for _, n := range ns.topology.Nodes() {
		r.Nodes = append(r.Nodes, n.Stats())
	}

	links := ns.topology.Links()
	utilization := make([]float64, 0, len(links))
	for _, l := range links {
		st := l.Stats()
		r.Links = append(r.Links, st)
		r.LinkDropped += st.DroppedTotal
		utilization = append(utilization, st.Transmission.Utilization)
	}
	if len(utilization) > 0 {
		r.MeanLinkUtilization = stat.Mean(utilization, nil)
	}

	if ns.trace != nil {
		r.Trace = trace.Summarize(ns.trace)
	}
	return r
}

// WriteYAML encodes the report as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}

// SaveYAML writes the report to path.
func (r *Report) SaveYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// Export sets the collector's gauges from the report.
func (r *Report) Export(c *metrics.Collector) {
	for _, l := range r.Links {
		c.ObserveFacility(l.Transmission)
	}
	for _, n := range r.Nodes {
		c.ObserveNode(n)
	}
	c.ObserveRun(r.EndTime, r.PendingEvents, r.Generated, r.Delivered)
}
