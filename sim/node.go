package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Node is a routing point. It delivers items addressed to it and forwards
// everything else along the item's explicit route.
type Node struct {
	name    string
	globals *Globals
	stats   NodeStats
}

// NodeStats holds the arrival and forwarding counters of a node.
type NodeStats struct {
	Name           string  `yaml:"name"`
	Received       uint64  `yaml:"received"`
	ReceivedBytes  uint64  `yaml:"received_bytes"`
	Forwarded      uint64  `yaml:"forwarded"`
	ForwardedBytes uint64  `yaml:"forwarded_bytes"`
	Dropped        uint64  `yaml:"dropped"`
	LastDelay      float64 `yaml:"last_delay"`
	PreviousDelay  float64 `yaml:"previous_delay"`
	SumDelay       float64 `yaml:"sum_delay"`
	MeanDelay      float64 `yaml:"mean_delay"`
	LastJitter     float64 `yaml:"last_jitter"`
	SumJitter      float64 `yaml:"sum_jitter"`
	MeanJitter     float64 `yaml:"mean_jitter"`
}

// NewNode creates a node bound to the run state g.
func NewNode(name string, g *Globals) *Node {
	return &Node{name: name, globals: g, stats: NodeStats{Name: name}}
}

func (*Node) Kind() EntityKind { return KindNode }
func (*Node) entity()          {}

func (n *Node) Name() string   { return n.name }
func (n *Node) String() string { return n.name }

// Stats returns a copy of the node's counters.
func (n *Node) Stats() NodeStats {
	return n.stats
}

// ProcessAndForward handles item at this node:
//   - a PDU without TTL left is dropped (NodeTTLExceeded)
//   - an item addressed here is delivered (NodeFinalDestination); a repeated
//     delivery of an item already marked as arrived changes nothing
//   - anything else gets its hops advanced along its explicit route
//     (NodeRouteUpdated)
//
// A route that yields no next hop or keeps pointing back at this node is an
// error; statistics are left untouched in that case.
func (n *Node) ProcessAndForward(item Routable) (NodeResult, error) {
	if item == nil {
		panic("ProcessAndForward: item must not be nil")
	}
	tok := item.Base()
	pdu, isPDU := item.(*PDU)

	if isPDU && pdu.TTL() == 0 {
		if tok.route.lastRecorded() != Entity(n) {
			tok.AddHopToRecordedRoute(n)
		}
		n.stats.Dropped++
		logrus.Debugf("[t=%g] %s: %s dropped, TTL exceeded", n.globals.Now(), n.name, EntityName(item))
		return NodeTTLExceeded, nil
	}

	if tok.Destination == Entity(n) {
		if tok.Previous != Entity(n) {
			tok.AddHopToRecordedRoute(n)
			n.recordArrival(item)
			tok.Previous = n
		}
		return NodeFinalDestination, nil
	}

	tok.AddHopToRecordedRoute(n)
	if res, err := n.advanceHops(tok); err != nil {
		logrus.Warnf("[t=%g] %s: cannot forward %s: %v", n.globals.Now(), n.name, EntityName(item), err)
		return res, err
	}
	if isPDU {
		pdu.DecrementTTL()
	}
	n.recordArrival(item)
	n.recordForwarding(item)
	return NodeRouteUpdated, nil
}

// advanceHops moves tok past this node. Hops naming this node are skipped;
// the route can only do so Len() times before its cursor is exhausted.
func (n *Node) advanceHops(tok *Token) (NodeResult, error) {
	if tok.Next != nil && tok.Next == tok.Destination {
		return NodeRouteInconsistent, fmt.Errorf("node %s: next hop %s is already the destination: %w",
			n.name, EntityName(tok.Next), ErrRouteInconsistent)
	}
	for skipped := 0; ; skipped++ {
		tok.UpdateHopsFromExplicitRoute(n)
		if tok.Next == nil {
			return NodeRouteNotFound, fmt.Errorf("node %s: %w", n.name, ErrRouteNotFound)
		}
		if tok.Next != Entity(n) {
			return NodeRouteUpdated, nil
		}
		if skipped >= tok.route.Len() {
			return NodeRouteInconsistent, fmt.Errorf("node %s: route keeps returning to this node: %w",
				n.name, ErrRouteInconsistent)
		}
	}
}

func (n *Node) recordArrival(item Routable) {
	s := &n.stats
	s.PreviousDelay = s.LastDelay
	s.Received++
	if pdu, ok := item.(*PDU); ok {
		s.ReceivedBytes += uint64(pdu.Size())
	}
	s.LastDelay = n.globals.Now() - item.Base().GenerationTime()
	s.SumDelay += s.LastDelay
	s.MeanDelay = s.SumDelay / float64(s.Received)
	if s.Received > 1 {
		s.LastJitter = s.LastDelay - s.PreviousDelay
		s.SumJitter += s.LastJitter
		s.MeanJitter = s.SumJitter / float64(s.Received-1)
	}
}

func (n *Node) recordForwarding(item Routable) {
	n.stats.Forwarded++
	if pdu, ok := item.(*PDU); ok {
		n.stats.ForwardedBytes += uint64(pdu.Size())
	}
}
