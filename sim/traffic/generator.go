// Package traffic provides PDU sources with configurable inter-arrival
// distributions, drawn from gonum/stat/distuv on the run's RNG streams.
package traffic

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/qcnsim/qcnsim/sim"
)

// sampler is the part of a gonum distribution the generator needs.
type sampler interface {
	Rand() float64
}

type constant float64

func (c constant) Rand() float64 { return float64(c) }

// clamped truncates negative draws to zero.
type clamped struct{ sampler }

func (c clamped) Rand() float64 { return math.Max(0, c.sampler.Rand()) }

// Generator emits PDUs from a source node towards a destination along an
// explicit route. Arrival events carry the generator's handle as payload.
type Generator struct {
	id          int
	cfg         Config
	handle      *sim.Message
	scheduler   *sim.Scheduler
	source      *sim.Node
	destination *sim.Node
	route       []sim.Entity

	interArrival sampler
	size         sampler

	on        bool
	generated uint64
}

// New builds a generator. Its random draws come from the run's
// SubsystemGenerator(id) stream. The generator starts switched on.
func New(id int, cfg Config, source, destination *sim.Node, route []sim.Entity, s *sim.Scheduler) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	src := s.Globals().RNG().ForSubsystem(sim.SubsystemGenerator(id))

	var inter sampler
	switch cfg.Kind {
	case Exponential:
		inter = distuv.Exponential{Rate: cfg.Rate, Src: src}
	case Normal:
		inter = clamped{distuv.Normal{Mu: cfg.Mean, Sigma: cfg.StdDev, Src: src}}
	case Weibull:
		inter = distuv.Weibull{K: cfg.Shape, Lambda: cfg.Scale, Src: src}
	case Constant:
		inter = constant(cfg.Interval)
	}

	var size sampler = constant(cfg.Size)
	if cfg.SizeStdDev > 0 {
		size = distuv.Normal{Mu: float64(cfg.Size), Sigma: cfg.SizeStdDev, Src: src}
	}

	return &Generator{
		id:           id,
		cfg:          cfg,
		handle:       sim.NewMessage(fmt.Sprintf("generator_%d", id)),
		scheduler:    s,
		source:       source,
		destination:  destination,
		route:        append([]sim.Entity(nil), route...),
		interArrival: inter,
		size:         size,
		on:           true,
	}, nil
}

func (g *Generator) ID() int                { return g.id }
func (g *Generator) Config() Config         { return g.cfg }
func (g *Generator) Handle() *sim.Message   { return g.handle }
func (g *Generator) Source() *sim.Node      { return g.source }
func (g *Generator) Destination() *sim.Node { return g.destination }
func (g *Generator) Generated() uint64      { return g.generated }
func (g *Generator) IsOn() bool             { return g.on }
func (g *Generator) TurnOn()                { g.on = true }
func (g *Generator) TurnOff()               { g.on = false }
func (g *Generator) Route() []sim.Entity    { return append([]sim.Entity(nil), g.route...) }

// Start schedules the first arrival one inter-arrival time from now.
func (g *Generator) Start() {
	g.scheduleNext()
}

// Arrive handles one arrival event. It returns the new PDU, or nil when the
// generator is off, and schedules the next arrival while the generator is on.
func (g *Generator) Arrive() *sim.PDU {
	if !g.on {
		return nil
	}
	pdu := g.NewPDU()
	g.scheduleNext()
	return pdu
}

// NewPDU creates a PDU at the source without touching the event chain.
// Its previous and next hops are both the source node, so the source is the
// first node to process it.
func (g *Generator) NewPDU() *sim.PDU {
	opts := []sim.TokenOption{
		sim.WithHops(g.source, g.source),
		sim.WithExplicitRoute(g.route),
	}
	if g.cfg.RecordRoute {
		opts = append(opts, sim.WithRouteRecording())
	}
	pdu := g.scheduler.Globals().NewPDU(g.cfg.Priority, g.handle, g.source, g.destination, g.drawSize(), opts...)
	if g.cfg.TTL > 0 {
		pdu.SetTTL(g.cfg.TTL)
	}
	g.generated++
	logrus.Debugf("[t=%g] generator %d: %s", g.scheduler.Now(), g.id, pdu)
	return pdu
}

func (g *Generator) scheduleNext() {
	g.scheduler.Schedule(sim.NewEvent(g.interArrival.Rand(), sim.EventTrafficGeneratorArrival, g.handle))
}

func (g *Generator) drawSize() uint32 {
	v := math.Round(g.size.Rand())
	if v < 1 {
		return 1
	}
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
