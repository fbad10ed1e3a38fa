// Package netsim runs network scenarios on the simulation kernel: it builds
// the topology and traffic from a Scenario, drives the event chain to the
// horizon and reports what happened.
package netsim

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/qcnsim/qcnsim/sim"
	"github.com/qcnsim/qcnsim/sim/link"
	"github.com/qcnsim/qcnsim/sim/topology"
	"github.com/qcnsim/qcnsim/sim/trace"
	"github.com/qcnsim/qcnsim/sim/traffic"
)

// failureProcess alternates a link between up and down with exponential
// holding times.
type failureProcess struct {
	timeToFailure distuv.Exponential
	timeToRepair  distuv.Exponential
}

// Simulator owns one isolated run: its own clock, event chain and RNG.
// It is not safe for concurrent use; run replications on separate
// simulators.
type Simulator struct {
	scenario  *Scenario
	globals   *sim.Globals
	scheduler *sim.Scheduler
	topology  *topology.Topology
	trace     *trace.SimulationTrace

	generators []*traffic.Generator
	byHandle   map[*sim.Message]*traffic.Generator
	byFacility map[*sim.Facility]*link.Link
	processes  map[*sim.Facility]*failureProcess

	marker *sim.Message // payload of begin/end simulation events

	delivered     uint64
	deliveredTime float64
	ttlDropped    uint64
	routeErrors   uint64
	events        uint64
	done          bool
}

// NewSimulator builds the network, generators and failure schedule of sc.
// The END_SIMULATION event is placed at the horizon and traffic starts at
// the warm-up time.
func NewSimulator(sc *Scenario) (*Simulator, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	g := sim.NewGlobals(sim.NewSimulationKey(sc.Seed))
	s := sim.NewScheduler(g)

	ns := &Simulator{
		scenario:   sc,
		globals:    g,
		scheduler:  s,
		topology:   topology.New(s),
		byHandle:   make(map[*sim.Message]*traffic.Generator),
		byFacility: make(map[*sim.Facility]*link.Link),
		processes:  make(map[*sim.Facility]*failureProcess),
		marker:     sim.NewMessage("simulation"),
	}
	if cfg := (trace.TraceConfig{Level: trace.TraceLevel(sc.TraceLevel)}); cfg.Enabled() {
		ns.trace = trace.NewSimulationTrace(cfg)
	}

	if err := ns.buildTopology(); err != nil {
		return nil, err
	}
	if err := ns.buildGenerators(); err != nil {
		return nil, err
	}
	if err := ns.scheduleFailures(); err != nil {
		return nil, err
	}

	s.Schedule(sim.NewEvent(sc.Warmup, sim.EventBeginSimulation, ns.marker))
	s.Schedule(sim.NewEvent(sc.Horizon, sim.EventEndSimulation, ns.marker))
	return ns, nil
}

func (ns *Simulator) buildTopology() error {
	for _, name := range ns.scenario.Nodes {
		if _, err := ns.topology.AddNode(name); err != nil {
			return err
		}
	}
	for i, lc := range ns.scenario.Links {
		from, _ := ns.topology.Lookup(lc.From)
		to, _ := ns.topology.Lookup(lc.To)
		links, err := ns.topology.Connect(from, to, lc.Bandwidth, lc.Delay, lc.Duplex)
		if err != nil {
			return fmt.Errorf("links[%d]: %w", i, err)
		}
		policy, _ := sim.ParsePreemptionPolicy(lc.Preemption)
		for _, l := range links {
			if lc.QueueLimit > 0 {
				l.SetQueueSizeLimit(lc.QueueLimit)
			}
			l.SetPreemptionPolicy(policy)
			ns.byFacility[l.Transmission()] = l
		}
	}
	return nil
}

func (ns *Simulator) buildGenerators() error {
	for i, gc := range ns.scenario.Generators {
		src, _ := ns.topology.Lookup(gc.Source)
		dst, _ := ns.topology.Lookup(gc.Destination)

		var route []sim.Entity
		if len(gc.Route) == 0 {
			r, err := ns.topology.Route(src, dst)
			if err != nil {
				return fmt.Errorf("generators[%d]: %w", i, err)
			}
			route = r
		} else {
			for j, name := range gc.Route {
				id, _ := ns.topology.Lookup(name)
				route = append(route, ns.topology.Node(id))
				if j == 0 {
					continue
				}
				if _, ok := ns.topology.LinkBetween(route[j-1], route[j]); !ok {
					return fmt.Errorf("generators[%d]: no link %s", i, LinkName(gc.Route[j-1], name))
				}
			}
		}

		gen, err := traffic.New(i, gc.Config, ns.topology.Node(src), ns.topology.Node(dst), route, ns.scheduler)
		if err != nil {
			return fmt.Errorf("generators[%d]: %w", i, err)
		}
		ns.generators = append(ns.generators, gen)
		ns.byHandle[gen.Handle()] = gen
	}
	return nil
}

func (ns *Simulator) scheduleFailures() error {
	rng := ns.globals.RNG().ForSubsystem(sim.SubsystemFailures)
	for i, fc := range ns.scenario.Failures {
		l, ok := ns.topology.LinkByName(fc.Link)
		if !ok {
			return fmt.Errorf("failures[%d]: unknown link %q", i, fc.Link)
		}
		f := l.Transmission()
		if fc.Random() {
			p := &failureProcess{
				timeToFailure: distuv.Exponential{Rate: 1 / fc.MTBF, Src: rng},
				timeToRepair:  distuv.Exponential{Rate: 1 / fc.MTTR, Src: rng},
			}
			ns.processes[f] = p
			ns.scheduler.Schedule(sim.NewEvent(ns.scenario.Warmup+p.timeToFailure.Rand(), sim.EventFacilityDown, f))
			continue
		}
		ns.scheduler.Schedule(sim.NewEvent(fc.Down, sim.EventFacilityDown, f))
		if fc.Up > 0 {
			ns.scheduler.Schedule(sim.NewEvent(fc.Up, sim.EventFacilityUp, f))
		}
	}
	return nil
}

// Topology exposes the network under simulation.
func (ns *Simulator) Topology() *topology.Topology { return ns.topology }

// Generators returns the traffic generators in scenario order.
func (ns *Simulator) Generators() []*traffic.Generator { return ns.generators }

// Scheduler exposes the run's event chain.
func (ns *Simulator) Scheduler() *sim.Scheduler { return ns.scheduler }

// Trace returns the decision trace, or nil when tracing is off.
func (ns *Simulator) Trace() *trace.SimulationTrace { return ns.trace }

// Run causes events until END_SIMULATION and returns the run report. An
// empty chain before the horizon or an inconsistency inside a handler ends
// the run with an error. ctx is checked between events.
func (ns *Simulator) Run(ctx context.Context) (*Report, error) {
	if ns.done {
		return nil, fmt.Errorf("simulation with seed %d already ran", ns.scenario.Seed)
	}
	ns.done = true
	logrus.Infof("[t=%g] simulation starting: %d nodes, %d links, %d generators, seed %d",
		ns.scheduler.Now(), len(ns.scenario.Nodes), len(ns.topology.Links()), len(ns.generators), ns.scenario.Seed)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev, err := ns.scheduler.Cause()
		if err != nil {
			return nil, fmt.Errorf("simulation stopped at t=%g: %w", ns.scheduler.Now(), err)
		}
		ns.events++
		if ev.Kind() == sim.EventEndSimulation {
			break
		}
		if err := ns.dispatch(ev); err != nil {
			return nil, fmt.Errorf("t=%g %s: %w", ns.scheduler.Now(), ev, err)
		}
	}

	logrus.Infof("[t=%g] simulation ended: %d events, %d delivered", ns.scheduler.Now(), ns.events, ns.delivered)
	return ns.Report(), nil
}

func (ns *Simulator) dispatch(ev sim.Event) error {
	switch ev.Kind() {
	case sim.EventBeginSimulation:
		ns.begin()
		return nil
	case sim.EventTrafficGeneratorArrival:
		return ns.arrival(ev.Payload())
	case sim.EventRequestServiceAtNode:
		pdu, err := payloadPDU(ev)
		if err != nil {
			return err
		}
		return ns.atNode(pdu)
	case sim.EventRequestServiceAtFacility:
		pdu, err := payloadPDU(ev)
		if err != nil {
			return err
		}
		return ns.transmit(pdu)
	case sim.EventReleaseFromFacility:
		pdu, err := payloadPDU(ev)
		if err != nil {
			return err
		}
		return ns.endTransmission(pdu)
	case sim.EventEndPropagation:
		pdu, err := payloadPDU(ev)
		if err != nil {
			return err
		}
		l, err := ns.linkOf(pdu)
		if err != nil {
			return err
		}
		l.EndPropagation(pdu)
		return ns.atNode(pdu)
	case sim.EventFacilityDown, sim.EventFacilityUp:
		return ns.failure(ev)
	}
	return fmt.Errorf("no handler for event kind %s", ev.Kind())
}

func payloadPDU(ev sim.Event) (*sim.PDU, error) {
	pdu, ok := ev.Payload().(*sim.PDU)
	if !ok {
		return nil, fmt.Errorf("%s event carries %s, want a PDU", ev.Kind(), sim.EntityName(ev.Payload()))
	}
	return pdu, nil
}

func (ns *Simulator) begin() {
	ns.globals.SetStartTime(ns.scheduler.Now())
	for _, g := range ns.generators {
		g.Start()
	}
	logrus.Debugf("[t=%g] observation window opened, %d generators started", ns.scheduler.Now(), len(ns.generators))
}

func (ns *Simulator) arrival(payload sim.Entity) error {
	h, _ := payload.(*sim.Message)
	g, ok := ns.byHandle[h]
	if !ok {
		return fmt.Errorf("arrival for unknown generator %s", sim.EntityName(payload))
	}
	if pdu := g.Arrive(); pdu != nil {
		ns.scheduler.Schedule(sim.NewEvent(0, sim.EventRequestServiceAtNode, pdu))
	}
	return nil
}

// atNode hands pdu to the node it has reached and, when it is forwarded,
// to the link towards its next hop.
func (ns *Simulator) atNode(pdu *sim.PDU) error {
	node, ok := pdu.Next.(*sim.Node)
	if !ok {
		return fmt.Errorf("%s is not headed for a node", pdu)
	}
	res, err := node.ProcessAndForward(pdu)
	ns.recordForwarding(node, pdu, res)

	switch res {
	case sim.NodeFinalDestination:
		ns.delivered++
		ns.deliveredTime += ns.scheduler.Now() - pdu.GenerationTime()
		return nil
	case sim.NodeTTLExceeded:
		ns.ttlDropped++
		return nil
	case sim.NodeRouteNotFound, sim.NodeRouteInconsistent:
		// the node already logged it; the PDU goes no further
		ns.routeErrors++
		logrus.Debugf("[t=%g] %s discarded: %v", ns.scheduler.Now(), pdu, err)
		return nil
	}
	return ns.transmit(pdu)
}

func (ns *Simulator) transmit(pdu *sim.PDU) error {
	l, err := ns.linkOf(pdu)
	if err != nil {
		return err
	}
	res, err := l.Transmit(pdu, sim.EventRequestServiceAtFacility, sim.EventReleaseFromFacility)
	ns.trace.RecordAdmission(trace.AdmissionRecord{
		Facility: l.Name(),
		ItemID:   pdu.ID,
		Clock:    ns.scheduler.Now(),
		Admitted: res == link.InTransmission || res == link.Enqueued,
		Outcome:  res.String(),
	})
	return err
}

func (ns *Simulator) endTransmission(pdu *sim.PDU) error {
	l, err := ns.linkOf(pdu)
	if err != nil {
		return err
	}
	_, err = l.Propagate(pdu, sim.EventEndPropagation)
	return err
}

func (ns *Simulator) linkOf(pdu *sim.PDU) (*link.Link, error) {
	l, ok := ns.topology.LinkBetween(pdu.Previous, pdu.Next)
	if !ok {
		return nil, fmt.Errorf("no link from %s to %s for %s",
			sim.EntityName(pdu.Previous), sim.EntityName(pdu.Next), pdu)
	}
	return l, nil
}

func (ns *Simulator) failure(ev sim.Event) error {
	f, _ := ev.Payload().(*sim.Facility)
	l, ok := ns.byFacility[f]
	if !ok {
		return fmt.Errorf("failure event for unknown facility %s", sim.EntityName(ev.Payload()))
	}
	p := ns.processes[f]

	if ev.Kind() == sim.EventFacilityDown {
		if !l.IsUp() {
			return nil
		}
		dropped := l.SetDown()
		logrus.Infof("[t=%g] link %s down, %d PDUs lost", ns.scheduler.Now(), l.Name(), dropped)
		if p != nil {
			ns.scheduler.Schedule(sim.NewEvent(p.timeToRepair.Rand(), sim.EventFacilityUp, f))
		}
		return nil
	}

	if l.IsUp() {
		return nil
	}
	l.SetUp()
	logrus.Infof("[t=%g] link %s up", ns.scheduler.Now(), l.Name())
	if p != nil {
		ns.scheduler.Schedule(sim.NewEvent(p.timeToFailure.Rand(), sim.EventFacilityDown, f))
	}
	return nil
}

func (ns *Simulator) recordForwarding(node *sim.Node, pdu *sim.PDU, res sim.NodeResult) {
	if ns.trace == nil {
		return
	}
	rec := trace.ForwardingRecord{
		Node:    node.Name(),
		ItemID:  pdu.ID,
		Clock:   ns.scheduler.Now(),
		Outcome: res.String(),
		TTL:     int(pdu.TTL()),
	}
	if res == sim.NodeRouteUpdated {
		rec.NextHop = sim.EntityName(pdu.Next)
	}
	ns.trace.RecordForwarding(rec)
}
