package sim

import "fmt"

// EntityKind identifies the concrete type behind an Entity.
type EntityKind int

const (
	KindToken EntityKind = iota
	KindPDU
	KindFacility
	KindNode
	KindMessage
)

var entityKindNames = map[EntityKind]string{
	KindToken:    "Token",
	KindPDU:      "PDU",
	KindFacility: "Facility",
	KindNode:     "Node",
	KindMessage:  "Message",
}

func (k EntityKind) String() string {
	if name, ok := entityKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Entity is anything an Event can carry or a route can name as a hop.
// Entities are compared by pointer identity. The set of implementations
// is closed to this package.
type Entity interface {
	Kind() EntityKind
	entity()
}

// Routable is an Entity that travels through facilities and nodes.
// Both *Token and *PDU implement it; Base exposes the shared token state.
type Routable interface {
	Entity
	Base() *Token
}

// Message is an opaque entity used as an event handle, e.g. to identify
// the traffic generator an arrival event belongs to.
type Message struct {
	Text string
}

// NewMessage creates a message handle.
func NewMessage(text string) *Message {
	return &Message{Text: text}
}

func (*Message) Kind() EntityKind { return KindMessage }
func (*Message) entity()          {}

func (m *Message) String() string {
	return m.Text
}

// EntityName renders an entity for logs and traces.
func EntityName(e Entity) string {
	if e == nil {
		return "<none>"
	}
	if s, ok := e.(fmt.Stringer); ok {
		return s.String()
	}
	return e.Kind().String()
}
