package sim

import (
	"fmt"
	"math"
)

// EventKind is the closed set of event types the kernel and its
// collaborators exchange.
type EventKind int

const (
	EventBeginSimulation EventKind = iota
	EventRequestServiceAtFacility
	EventReleaseFromFacility
	EventRequestServiceAtNode
	EventTrafficGeneratorArrival
	EventEndPropagation
	EventFacilityDown
	EventFacilityUp
	EventEndSimulation
)

var eventKindNames = map[EventKind]string{
	EventBeginSimulation:          "BEGIN_SIMULATION",
	EventRequestServiceAtFacility: "REQUEST_SERVICE_AT_FACILITY",
	EventReleaseFromFacility:      "RELEASE_FROM_FACILITY",
	EventRequestServiceAtNode:     "REQUEST_SERVICE_AT_NODE",
	EventTrafficGeneratorArrival:  "TRAFFIC_GENERATOR_ARRIVAL",
	EventEndPropagation:           "END_PROPAGATION",
	EventFacilityDown:             "FACILITY_DOWN",
	EventFacilityUp:               "FACILITY_UP",
	EventEndSimulation:            "END_SIMULATION",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is an immutable (delay, kind, payload) triple. The delay is
// relative to the time the event is handed to the Scheduler.
type Event struct {
	delay   float64
	kind    EventKind
	payload Entity
}

// NewEvent builds an event. Negative or NaN delays are programming errors.
func NewEvent(delay float64, kind EventKind, payload Entity) Event {
	if delay < 0 || math.IsNaN(delay) {
		panic(fmt.Sprintf("NewEvent: delay must be >= 0, got %g", delay))
	}
	return Event{delay: delay, kind: kind, payload: payload}
}

// Delay is the time from scheduling until the event occurs.
func (e Event) Delay() float64 { return e.delay }

// Kind tells the driver how to handle the event.
func (e Event) Kind() EventKind { return e.kind }

// Payload is the entity the event concerns. It may be nil.
func (e Event) Payload() Entity { return e.payload }

// Equal reports whether both events have the same delay, kind and the
// same payload identity.
func (e Event) Equal(o Event) bool {
	return e.delay == o.delay && e.kind == o.kind && e.payload == o.payload
}

func (e Event) String() string {
	return fmt.Sprintf("%s(+%g, %s)", e.kind, e.delay, EntityName(e.payload))
}

// ChainElement is an event placed on the chain at an absolute time.
type ChainElement struct {
	OccurAt float64
	Event   Event
}

// Before orders chain elements by occurrence time only.
func (c ChainElement) Before(o ChainElement) bool {
	return c.OccurAt < o.OccurAt
}
