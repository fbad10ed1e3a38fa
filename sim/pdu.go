package sim

import "fmt"

// DefaultTTL is the hop budget of a fresh PDU.
const DefaultTTL uint16 = 128

// PDU is a token with a payload size and a time-to-live.
type PDU struct {
	Token
	ttl  uint16
	size uint32
}

// NewPDU wraps a copy of tok's state. The explicit route is copied with a
// fresh cursor and an empty recorded route.
func NewPDU(tok *Token, size uint32) *PDU {
	p := &PDU{
		Token: Token{
			ID:             tok.ID,
			Priority:       tok.Priority,
			Associated:     tok.Associated,
			Source:         tok.Source,
			Destination:    tok.Destination,
			Previous:       tok.Previous,
			Next:           tok.Next,
			generationTime: tok.generationTime,
			recordRoute:    tok.recordRoute,
		},
		ttl:  DefaultTTL,
		size: size,
	}
	p.SetExplicitRoute(tok.route.explicit)
	return p
}

// NewPDU creates a PDU with the next free id, stamped with the current time.
func (g *Globals) NewPDU(priority int, associated, source, destination Entity, size uint32, opts ...TokenOption) *PDU {
	return NewPDU(g.NewToken(priority, associated, source, destination, opts...), size)
}

func (*PDU) Kind() EntityKind { return KindPDU }

// TTL is the remaining hop budget.
func (p *PDU) TTL() uint16 { return p.ttl }

// SetTTL replaces the hop budget.
func (p *PDU) SetTTL(ttl uint16) { p.ttl = ttl }

// Size is the PDU length in bytes.
func (p *PDU) Size() uint32 { return p.size }

// SetSize replaces the PDU length in bytes.
func (p *PDU) SetSize(size uint32) { p.size = size }

// DecrementTTL consumes one hop of the budget. It stops at zero.
func (p *PDU) DecrementTTL() {
	if p.ttl > 0 {
		p.ttl--
	}
}

func (p *PDU) String() string {
	return fmt.Sprintf("PDU#%d(prio=%d, size=%d, ttl=%d)", p.ID, p.Priority, p.size, p.ttl)
}
