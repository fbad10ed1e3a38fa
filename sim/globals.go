package sim

import "fmt"

// Globals holds the state shared by every kernel object of one simulation
// run: the clock, the warm-up boundary, the token id counter and the RNG.
// A run owns exactly one Globals; independent runs never share one.
type Globals struct {
	now       float64
	startTime float64
	lastID    uint64
	rng       *PartitionedRNG
}

// NewGlobals creates run state with the clock at zero.
func NewGlobals(key SimulationKey) *Globals {
	return &Globals{rng: NewPartitionedRNG(key)}
}

// Now returns the current simulation time.
func (g *Globals) Now() float64 {
	return g.now
}

// SetNow moves the clock to t. The clock never runs backwards.
func (g *Globals) SetNow(t float64) {
	if t < g.now {
		panic(fmt.Sprintf("SetNow: clock went backwards (%g -> %g)", g.now, t))
	}
	g.now = t
}

// StartTime returns the statistics start time (end of warm-up).
func (g *Globals) StartTime() float64 {
	return g.startTime
}

// SetStartTime moves the statistics start time, typically to Now() once the
// warm-up period is over.
func (g *Globals) SetStartTime(t float64) {
	g.startTime = t
}

// Duration returns the observed interval Now() - StartTime().
func (g *Globals) Duration() float64 {
	return g.now - g.startTime
}

// NextTokenID hands out token ids starting at 1.
func (g *Globals) NextTokenID() uint64 {
	g.lastID++
	return g.lastID
}

// RNG returns the run's partitioned random number generator.
func (g *Globals) RNG() *PartitionedRNG {
	return g.rng
}
