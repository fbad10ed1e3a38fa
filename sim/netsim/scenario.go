package netsim

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/qcnsim/qcnsim/sim"
	"github.com/qcnsim/qcnsim/sim/trace"
	"github.com/qcnsim/qcnsim/sim/traffic"
)

// Scenario describes one network simulation: the topology, the traffic
// offered to it and the failures injected into its links.
type Scenario struct {
	Seed       int64             `mapstructure:"seed" yaml:"seed"`
	Horizon    float64           `mapstructure:"horizon" yaml:"horizon"`
	Warmup     float64           `mapstructure:"warmup" yaml:"warmup"` // traffic starts and statistics are observed from here
	TraceLevel string            `mapstructure:"trace_level" yaml:"trace_level"`
	Nodes      []string          `mapstructure:"nodes" yaml:"nodes"`
	Links      []LinkConfig      `mapstructure:"links" yaml:"links"`
	Generators []GeneratorConfig `mapstructure:"generators" yaml:"generators"`
	Failures   []FailureConfig   `mapstructure:"failures" yaml:"failures,omitempty"`
}

// LinkConfig connects two nodes. Duplex links are two simplex links sharing
// the same parameters.
type LinkConfig struct {
	From       string  `mapstructure:"from" yaml:"from"`
	To         string  `mapstructure:"to" yaml:"to"`
	Bandwidth  float64 `mapstructure:"bandwidth" yaml:"bandwidth"` // bits per time unit
	Delay      float64 `mapstructure:"delay" yaml:"delay"`
	Duplex     bool    `mapstructure:"duplex" yaml:"duplex"`
	QueueLimit uint32  `mapstructure:"queue_limit" yaml:"queue_limit,omitempty"` // 0 means unbounded
	Preemption string  `mapstructure:"preemption" yaml:"preemption,omitempty"`
}

// GeneratorConfig places a traffic generator between two nodes. Without an
// explicit route the shortest path is used.
type GeneratorConfig struct {
	traffic.Config `mapstructure:",squash" yaml:",inline"`

	Source      string   `mapstructure:"source" yaml:"source"`
	Destination string   `mapstructure:"destination" yaml:"destination"`
	Route       []string `mapstructure:"route" yaml:"route,omitempty"`
}

// FailureConfig takes a link down. Either a fixed outage (Down, optionally
// followed by Up) or an alternating failure process with exponentially
// distributed times between failures and repair times.
type FailureConfig struct {
	Link string  `mapstructure:"link" yaml:"link"` // link name, "from->to"
	Down float64 `mapstructure:"down" yaml:"down,omitempty"`
	Up   float64 `mapstructure:"up" yaml:"up,omitempty"` // 0 keeps the link down
	MTBF float64 `mapstructure:"mtbf" yaml:"mtbf,omitempty"`
	MTTR float64 `mapstructure:"mttr" yaml:"mttr,omitempty"`
}

// Random reports whether the failure is driven by MTBF/MTTR draws.
func (f FailureConfig) Random() bool {
	return f.MTBF > 0
}

// LinkName returns the name the topology gives the simplex link from->to.
func LinkName(from, to string) string {
	return from + "->" + to
}

// LoadScenario loads a scenario in priority order:
// 1. Default values
// 2. Scenario file
// 3. Environment variables (QCNSIM_ prefix, e.g. QCNSIM_SEED)
func LoadScenario(path string) (*Scenario, error) {
	v := viper.New()

	setDefaults(v)

	if err := loadScenarioFile(v, path); err != nil {
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}

	v.SetEnvPrefix("QCNSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var sc Scenario
	if err := v.Unmarshal(&sc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenario: %w", err)
	}

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario validation failed: %w", err)
	}
	return &sc, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("seed", 42)
	v.SetDefault("horizon", 1000.0)
	v.SetDefault("warmup", 0.0)
	v.SetDefault("trace_level", string(trace.TraceLevelNone))
}

func loadScenarioFile(v *viper.Viper, path string) error {
	if path == "" {
		return fmt.Errorf("scenario path cannot be empty")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("scenario file does not exist: %s", path)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	return nil
}

// Validate checks everything that can be checked without building the
// network. Link existence along explicit routes and failure targets is
// checked when the simulator is built.
func (sc *Scenario) Validate() error {
	if !(sc.Horizon > 0) || math.IsInf(sc.Horizon, 0) {
		return fmt.Errorf("horizon must be a finite value > 0, got %v", sc.Horizon)
	}
	if math.IsNaN(sc.Warmup) || sc.Warmup < 0 || sc.Warmup >= sc.Horizon {
		return fmt.Errorf("warmup must be in [0, horizon), got %v", sc.Warmup)
	}
	if !trace.IsValidTraceLevel(sc.TraceLevel) {
		return fmt.Errorf("unknown trace level %q; valid options: none, decisions", sc.TraceLevel)
	}
	if len(sc.Nodes) == 0 {
		return fmt.Errorf("scenario has no nodes")
	}

	nodes := make(map[string]bool, len(sc.Nodes))
	for _, n := range sc.Nodes {
		if n == "" {
			return fmt.Errorf("node names must not be empty")
		}
		if nodes[n] {
			return fmt.Errorf("duplicate node %q", n)
		}
		nodes[n] = true
	}

	for i, l := range sc.Links {
		if !nodes[l.From] || !nodes[l.To] {
			return fmt.Errorf("links[%d]: unknown node in %s", i, LinkName(l.From, l.To))
		}
		if !(l.Bandwidth > 0) {
			return fmt.Errorf("links[%d]: bandwidth must be > 0, got %v", i, l.Bandwidth)
		}
		if math.IsNaN(l.Delay) || l.Delay < 0 {
			return fmt.Errorf("links[%d]: delay must be >= 0, got %v", i, l.Delay)
		}
		if _, err := sim.ParsePreemptionPolicy(l.Preemption); err != nil {
			return fmt.Errorf("links[%d]: %w", i, err)
		}
	}

	for i, g := range sc.Generators {
		if err := g.Config.Validate(); err != nil {
			return fmt.Errorf("generators[%d]: %w", i, err)
		}
		if !nodes[g.Source] || !nodes[g.Destination] {
			return fmt.Errorf("generators[%d]: unknown source %q or destination %q", i, g.Source, g.Destination)
		}
		if g.Source == g.Destination {
			return fmt.Errorf("generators[%d]: source and destination are both %q", i, g.Source)
		}
		if len(g.Route) == 0 {
			continue
		}
		for _, hop := range g.Route {
			if !nodes[hop] {
				return fmt.Errorf("generators[%d]: route names unknown node %q", i, hop)
			}
		}
		if g.Route[0] != g.Source || g.Route[len(g.Route)-1] != g.Destination {
			return fmt.Errorf("generators[%d]: route must run from %s to %s", i, g.Source, g.Destination)
		}
	}

	for i, f := range sc.Failures {
		if f.Link == "" {
			return fmt.Errorf("failures[%d]: link is required", i)
		}
		if anyNaN(f.Down, f.Up, f.MTBF, f.MTTR) {
			return fmt.Errorf("failures[%d]: times must be numbers", i)
		}
		if f.Random() {
			if !(f.MTTR > 0) {
				return fmt.Errorf("failures[%d]: mttr must be > 0 with mtbf set", i)
			}
			continue
		}
		if f.Down < 0 {
			return fmt.Errorf("failures[%d]: down must be >= 0, got %v", i, f.Down)
		}
		if f.Up != 0 && f.Up <= f.Down {
			return fmt.Errorf("failures[%d]: up (%v) must come after down (%v)", i, f.Up, f.Down)
		}
	}
	return nil
}

func anyNaN(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}
