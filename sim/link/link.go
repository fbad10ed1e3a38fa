// Package link models simplex network links: a transmission facility
// that serializes PDUs onto the medium followed by a fixed propagation delay.
package link

import (
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/qcnsim/qcnsim/sim"
)

// ErrDoesNotConnect is returned when a PDU's previous and next hops are not
// the two ends of the link it is handed to.
var ErrDoesNotConnect = errors.New("link does not connect the PDU's hops")

// Result is the outcome of a link operation.
type Result int

const (
	InTransmission Result = iota
	Enqueued
	Down
	QueueFullDropped
	InTransit
	Propagated
	DoesNotConnect
	NotImplemented
)

var resultNames = map[Result]string{
	InTransmission:   "PDU_IN_TRANSMISSION",
	Enqueued:         "LINK_BUSY_PDU_ENQUEUED",
	Down:             "LINK_DOWN_PDU_DROPPED",
	QueueFullDropped: "LINK_BUSY_QUEUE_FULL_PDU_DROPPED",
	InTransit:        "PDU_IN_TRANSIT",
	Propagated:       "PDU_PROPAGATED",
	DoesNotConnect:   "LINK_DOES_NOT_CONNECT_NODES",
	NotImplemented:   "NOT_IMPLEMENTED",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}

// Link carries PDUs from one node to another. Duplex connections are built
// from two links.
type Link struct {
	name             string
	from, to         *sim.Node
	bandwidth        float64 // bits per time unit
	propagationDelay float64
	scheduler        *sim.Scheduler
	transmission     *sim.Facility
	inTransit        []*sim.PDU
	droppedMedium    uint64
	propagated       uint64
}

// New creates an up link with a single-server transmission facility and an
// unbounded transmission queue.
func New(name string, from, to *sim.Node, bandwidth, propagationDelay float64, s *sim.Scheduler) *Link {
	if bandwidth <= 0 {
		panic(fmt.Sprintf("link.New(%s): bandwidth must be > 0, got %g", name, bandwidth))
	}
	return &Link{
		name:             name,
		from:             from,
		to:               to,
		bandwidth:        bandwidth,
		propagationDelay: propagationDelay,
		scheduler:        s,
		transmission:     sim.NewFacility(name, 1, s),
	}
}

func (l *Link) Name() string              { return l.name }
func (l *Link) From() *sim.Node           { return l.from }
func (l *Link) To() *sim.Node             { return l.to }
func (l *Link) Bandwidth() float64        { return l.bandwidth }
func (l *Link) PropagationDelay() float64 { return l.propagationDelay }

// Transmission exposes the transmission facility, e.g. as a fault-injection target.
func (l *Link) Transmission() *sim.Facility { return l.transmission }

// TransmissionTime is the time to serialize size bytes onto the link.
func (l *Link) TransmissionTime(size uint32) float64 {
	return float64(size) * 8.0 / l.bandwidth
}

// Transmit requests the transmission facility for pdu. transmitKind is the
// event replayed if the PDU waits in the queue; endKind is scheduled when
// transmission starts and fires once the PDU is on the medium.
func (l *Link) Transmit(pdu *sim.PDU, transmitKind, endKind sim.EventKind) (Result, error) {
	if pdu.Previous != sim.Entity(l.from) || pdu.Next != sim.Entity(l.to) {
		return DoesNotConnect, fmt.Errorf("link %s: %s travels %s->%s: %w", l.name, pdu,
			sim.EntityName(pdu.Previous), sim.EntityName(pdu.Next), ErrDoesNotConnect)
	}

	var res sim.FacilityResult
	if l.transmission.PreemptionPolicy() == sim.PreemptionResume {
		var err error
		if res, err = l.transmission.Preempt(pdu, transmitKind); err != nil {
			return NotImplemented, fmt.Errorf("link %s: %w", l.name, err)
		}
	} else {
		res = l.transmission.Request(pdu, transmitKind)
	}

	switch res {
	case sim.FacilityPutInService:
		l.scheduler.Schedule(sim.NewEvent(l.TransmissionTime(pdu.Size()), endKind, pdu))
		return InTransmission, nil
	case sim.FacilityEnqueued:
		return Enqueued, nil
	case sim.FacilityQueueFullDropped:
		logrus.Debugf("[t=%g] link %s: queue full, %s dropped", l.scheduler.Now(), l.name, pdu)
		return QueueFullDropped, nil
	case sim.FacilityDown:
		logrus.Debugf("[t=%g] link %s: down, %s dropped", l.scheduler.Now(), l.name, pdu)
		return Down, nil
	}
	return NotImplemented, fmt.Errorf("link %s: unexpected facility result %s", l.name, res)
}

// Propagate ends the transmission of pdu and puts it on the medium. nextKind
// is scheduled after the propagation delay unless the link is down, in which
// case the PDU is lost.
func (l *Link) Propagate(pdu *sim.PDU, nextKind sim.EventKind) (Result, error) {
	_, err := l.transmission.Release(pdu)
	if !l.transmission.IsUp() {
		l.droppedMedium++
		return Down, nil
	}
	if err != nil {
		return NotImplemented, fmt.Errorf("link %s: %w", l.name, err)
	}
	l.inTransit = append(l.inTransit, pdu)
	l.scheduler.Schedule(sim.NewEvent(l.propagationDelay, nextKind, pdu))
	return InTransit, nil
}

// EndPropagation takes pdu off the medium.
func (l *Link) EndPropagation(pdu *sim.PDU) Result {
	if i := slices.Index(l.inTransit, pdu); i >= 0 {
		l.inTransit = slices.Delete(l.inTransit, i, i+1)
		l.propagated++
	}
	return Propagated
}

// SetDown takes the link down. PDUs in transmission, queued and on the
// medium are dropped; the count is returned.
func (l *Link) SetDown() int {
	return l.transmission.SetDown() + l.purgeMedium()
}

// SetUp brings the link back up.
func (l *Link) SetUp() {
	l.transmission.SetUp()
}

func (l *Link) IsUp() bool { return l.transmission.IsUp() }

// SetQueueSizeLimit bounds the transmission queue.
func (l *Link) SetQueueSizeLimit(limit uint32) {
	l.transmission.SetQueueSizeLimit(limit)
}

// SetPreemptionPolicy lets higher-priority PDUs take over the transmitter.
func (l *Link) SetPreemptionPolicy(p sim.PreemptionPolicy) {
	l.transmission.SetPreemptionPolicy(p)
}

func (l *Link) InTransitCount() int { return len(l.inTransit) }

func (l *Link) purgeMedium() int {
	n := len(l.inTransit)
	for _, pdu := range l.inTransit {
		l.scheduler.RemoveEvents(pdu)
	}
	l.inTransit = nil
	l.droppedMedium += uint64(n)
	return n
}

// Stats is the reportable state of a link.
type Stats struct {
	Name                string            `yaml:"name"`
	From                string            `yaml:"from"`
	To                  string            `yaml:"to"`
	Up                  bool              `yaml:"up"`
	InTransit           int               `yaml:"in_transit"`
	Propagated          uint64            `yaml:"propagated"`
	DroppedTransmission uint64            `yaml:"dropped_transmission"`
	DroppedMedium       uint64            `yaml:"dropped_medium"`
	DroppedTotal        uint64            `yaml:"dropped_total"`
	Transmission        sim.FacilityStats `yaml:"transmission"`
}

// Stats returns a snapshot of the link and its transmission facility.
func (l *Link) Stats() Stats {
	tx := l.transmission.Stats()
	return Stats{
		Name:                l.name,
		From:                l.from.Name(),
		To:                  l.to.Name(),
		Up:                  l.IsUp(),
		InTransit:           len(l.inTransit),
		Propagated:          l.propagated,
		DroppedTransmission: tx.Dropped,
		DroppedMedium:       l.droppedMedium,
		DroppedTotal:        tx.Dropped + l.droppedMedium,
		Transmission:        tx,
	}
}
