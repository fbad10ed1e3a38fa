package sim

import (
	"fmt"
	"math"
)

// InvalidGenerationTime marks a token whose creation time is unknown.
const InvalidGenerationTime = math.MaxFloat64

// Token is the unit of work that moves through facilities and nodes.
// Hop fields name the entities the token came from and goes to.
type Token struct {
	ID          uint64
	Priority    int
	Associated  Entity
	Source      Entity
	Destination Entity
	Previous    Entity
	Next        Entity

	generationTime float64
	route          Route
	recordRoute    bool
}

// TokenOption customizes a token at construction.
type TokenOption func(*Token)

// WithHops sets the previous and next hop.
func WithHops(previous, next Entity) TokenOption {
	return func(t *Token) {
		t.Previous = previous
		t.Next = next
	}
}

// WithExplicitRoute installs path as the token's explicit route.
func WithExplicitRoute(path []Entity) TokenOption {
	return func(t *Token) {
		t.SetExplicitRoute(path)
	}
}

// WithRouteRecording turns route recording on.
func WithRouteRecording() TokenOption {
	return func(t *Token) {
		t.recordRoute = true
	}
}

// NewToken creates a token with an explicit id. Its generation time is
// unknown; use Globals.NewToken for tokens born in the simulation.
func NewToken(id uint64, priority int, associated, source, destination Entity, opts ...TokenOption) *Token {
	t := &Token{
		ID:             id,
		Priority:       priority,
		Associated:     associated,
		Source:         source,
		Destination:    destination,
		generationTime: InvalidGenerationTime,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewToken creates a token with the next free id, stamped with the current time.
func (g *Globals) NewToken(priority int, associated, source, destination Entity, opts ...TokenOption) *Token {
	t := NewToken(g.NextTokenID(), priority, associated, source, destination, opts...)
	t.generationTime = g.Now()
	return t
}

func (*Token) Kind() EntityKind { return KindToken }
func (*Token) entity()          {}

// Base returns the token itself.
func (t *Token) Base() *Token { return t }

// GenerationTime returns the creation time, or InvalidGenerationTime.
func (t *Token) GenerationTime() float64 {
	return t.generationTime
}

// SetExplicitRoute replaces the route. The cursor and the recorded hops are reset.
func (t *Token) SetExplicitRoute(path []Entity) {
	t.route = NewRoute(path)
}

// ExplicitRoute returns a copy of the explicit hop list.
func (t *Token) ExplicitRoute() []Entity {
	return t.route.Explicit()
}

// RecordedRoute returns a copy of the hops visited so far.
func (t *Token) RecordedRoute() []Entity {
	return t.route.Recorded()
}

// RecordRoute turns route recording on.
func (t *Token) RecordRoute() {
	t.recordRoute = true
}

// StopRecordingRoute turns route recording off. Already recorded hops stay.
func (t *Token) StopRecordingRoute() {
	t.recordRoute = false
}

// IsRouteRecorded reports whether hops are being recorded.
func (t *Token) IsRouteRecorded() bool {
	return t.recordRoute
}

// AddHopToRecordedRoute appends hop if recording is on.
func (t *Token) AddHopToRecordedRoute(hop Entity) {
	if !t.recordRoute {
		return
	}
	t.route.recorded = append(t.route.recorded, hop)
}

// UpdateHopsFromExplicitRoute moves the token one hop forward: current
// becomes the previous hop and the route supplies the next one.
func (t *Token) UpdateHopsFromExplicitRoute(current Entity) {
	t.Previous = current
	t.Next = t.route.NextHop()
}

// Equal compares field by field. Entity fields compare by identity.
func (t *Token) Equal(o *Token) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.ID == o.ID &&
		t.Priority == o.Priority &&
		t.Associated == o.Associated &&
		t.Source == o.Source &&
		t.Destination == o.Destination &&
		t.Previous == o.Previous &&
		t.Next == o.Next &&
		t.generationTime == o.generationTime
}

func (t *Token) String() string {
	return fmt.Sprintf("Token#%d(prio=%d)", t.ID, t.Priority)
}
