package traffic

import (
	"fmt"
	"math"
)

// Kind selects the inter-arrival distribution of a generator.
type Kind string

const (
	Exponential Kind = "exponential"
	Normal      Kind = "normal"
	Weibull     Kind = "weibull"
	Constant    Kind = "constant"
)

var validKinds = map[Kind]bool{
	Exponential: true,
	Normal:      true,
	Weibull:     true,
	Constant:    true,
}

// IsValidKind returns true if name is a recognized generator kind.
func IsValidKind(name string) bool {
	return validKinds[Kind(name)]
}

// Config describes what a generator emits and how often.
type Config struct {
	Kind Kind `mapstructure:"kind" yaml:"kind"`

	Rate     float64 `mapstructure:"rate" yaml:"rate,omitempty"`         // exponential: arrivals per time unit
	Mean     float64 `mapstructure:"mean" yaml:"mean,omitempty"`         // normal
	StdDev   float64 `mapstructure:"stddev" yaml:"stddev,omitempty"`     // normal
	Shape    float64 `mapstructure:"shape" yaml:"shape,omitempty"`       // weibull k
	Scale    float64 `mapstructure:"scale" yaml:"scale,omitempty"`       // weibull lambda
	Interval float64 `mapstructure:"interval" yaml:"interval,omitempty"` // constant

	Priority    int     `mapstructure:"priority" yaml:"priority"`
	Size        uint32  `mapstructure:"size" yaml:"size"`
	SizeStdDev  float64 `mapstructure:"size_stddev" yaml:"size_stddev,omitempty"`
	TTL         uint16  `mapstructure:"ttl" yaml:"ttl,omitempty"` // 0 means sim.DefaultTTL
	RecordRoute bool    `mapstructure:"record_route" yaml:"record_route"`
}

// Validate checks that the parameters required by Kind are usable.
func (c Config) Validate() error {
	positive := func(name string, v float64) error {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s generator: %s must be a finite value > 0, got %v", c.Kind, name, v)
		}
		return nil
	}
	switch c.Kind {
	case Exponential:
		if err := positive("rate", c.Rate); err != nil {
			return err
		}
	case Normal:
		if err := positive("mean", c.Mean); err != nil {
			return err
		}
		if c.StdDev < 0 {
			return fmt.Errorf("normal generator: stddev must be >= 0, got %v", c.StdDev)
		}
	case Weibull:
		if err := positive("shape", c.Shape); err != nil {
			return err
		}
		if err := positive("scale", c.Scale); err != nil {
			return err
		}
	case Constant:
		if err := positive("interval", c.Interval); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown generator kind %q; valid options: exponential, normal, weibull, constant", c.Kind)
	}
	if c.Size == 0 {
		return fmt.Errorf("%s generator: size must be > 0", c.Kind)
	}
	if c.SizeStdDev < 0 {
		return fmt.Errorf("%s generator: size_stddev must be >= 0, got %v", c.Kind, c.SizeStdDev)
	}
	return nil
}
