// Package topology keeps the nodes and links of a network and computes
// explicit routes over them.
//
// Routes minimize the hop count. Distances come from gonum's Dijkstra; the
// path itself is rebuilt by walking back from the destination through the
// lowest-numbered predecessor on a shortest path, so equal-cost routes are
// chosen the same way on every run.
package topology

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/qcnsim/qcnsim/sim"
	"github.com/qcnsim/qcnsim/sim/link"
)

var (
	ErrDuplicateNode = errors.New("duplicate node")
	ErrUnknownNode   = errors.New("unknown node")
	ErrDuplicateLink = errors.New("duplicate link")
	ErrNoPath        = errors.New("no path")
)

// NodeID is the stable handle of a node: its index in the arena.
type NodeID int

type linkKey struct{ from, to NodeID }

// Topology owns the nodes and links of one simulation run.
type Topology struct {
	scheduler *sim.Scheduler
	nodes     []*sim.Node
	byName    map[string]NodeID
	byNode    map[*sim.Node]NodeID
	links     map[linkKey]*link.Link
	linkOrder []*link.Link

	graph   *simple.WeightedDirectedGraph
	spCache map[NodeID]path.Shortest
}

// New creates an empty topology whose links post events into s.
func New(s *sim.Scheduler) *Topology {
	return &Topology{
		scheduler: s,
		byName:    make(map[string]NodeID),
		byNode:    make(map[*sim.Node]NodeID),
		links:     make(map[linkKey]*link.Link),
		graph:     simple.NewWeightedDirectedGraph(0, math.Inf(1)),
		spCache:   make(map[NodeID]path.Shortest),
	}
}

// AddNode creates a node. Names must be unique.
func (t *Topology) AddNode(name string) (NodeID, error) {
	if _, ok := t.byName[name]; ok {
		return 0, fmt.Errorf("add node %q: %w", name, ErrDuplicateNode)
	}
	id := NodeID(len(t.nodes))
	n := sim.NewNode(name, t.scheduler.Globals())
	t.nodes = append(t.nodes, n)
	t.byName[name] = id
	t.byNode[n] = id
	t.graph.AddNode(simple.Node(id))
	return id, nil
}

// Node returns the node behind id, or nil for an unknown handle.
func (t *Topology) Node(id NodeID) *sim.Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// Lookup resolves a node name.
func (t *Topology) Lookup(name string) (NodeID, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Nodes returns the nodes in creation order.
func (t *Topology) Nodes() []*sim.Node {
	return slices.Clone(t.nodes)
}

// Connect adds a simplex link a->b, plus b->a when duplex is set.
func (t *Topology) Connect(a, b NodeID, bandwidth, propagationDelay float64, duplex bool) ([]*link.Link, error) {
	na, nb := t.Node(a), t.Node(b)
	if na == nil || nb == nil {
		return nil, fmt.Errorf("connect %d->%d: %w", a, b, ErrUnknownNode)
	}
	if a == b {
		return nil, fmt.Errorf("connect %s to itself: %w", na.Name(), ErrDuplicateLink)
	}
	pairs := []linkKey{{a, b}}
	if duplex {
		pairs = append(pairs, linkKey{b, a})
	}
	for _, k := range pairs {
		if _, ok := t.links[k]; ok {
			return nil, fmt.Errorf("connect %s->%s: %w", t.nodes[k.from].Name(), t.nodes[k.to].Name(), ErrDuplicateLink)
		}
	}

	created := make([]*link.Link, 0, len(pairs))
	for _, k := range pairs {
		from, to := t.nodes[k.from], t.nodes[k.to]
		l := link.New(from.Name()+"->"+to.Name(), from, to, bandwidth, propagationDelay, t.scheduler)
		t.links[k] = l
		t.linkOrder = append(t.linkOrder, l)
		t.graph.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(k.from), T: simple.Node(k.to), W: 1})
		created = append(created, l)
	}
	clear(t.spCache)
	return created, nil
}

// LinkBetween returns the link from one node entity to another.
func (t *Topology) LinkBetween(from, to sim.Entity) (*link.Link, bool) {
	nf, ok1 := from.(*sim.Node)
	nt, ok2 := to.(*sim.Node)
	if !ok1 || !ok2 {
		return nil, false
	}
	a, ok1 := t.byNode[nf]
	b, ok2 := t.byNode[nt]
	if !ok1 || !ok2 {
		return nil, false
	}
	l, ok := t.links[linkKey{a, b}]
	return l, ok
}

// LinkByName finds a link by its "from->to" name.
func (t *Topology) LinkByName(name string) (*link.Link, bool) {
	for _, l := range t.linkOrder {
		if l.Name() == name {
			return l, true
		}
	}
	return nil, false
}

// Links returns the links in creation order.
func (t *Topology) Links() []*link.Link {
	return slices.Clone(t.linkOrder)
}

// Route returns a minimum-hop explicit route from src to dst. The route
// starts with src itself and ends with dst.
func (t *Topology) Route(src, dst NodeID) ([]sim.Entity, error) {
	if t.Node(src) == nil || t.Node(dst) == nil {
		return nil, fmt.Errorf("route %d->%d: %w", src, dst, ErrUnknownNode)
	}
	sp := t.shortestFrom(src)
	if math.IsInf(sp.WeightTo(int64(dst)), 1) {
		return nil, fmt.Errorf("route %s->%s: %w", t.nodes[src].Name(), t.nodes[dst].Name(), ErrNoPath)
	}

	hops := []NodeID{dst}
	for cur := dst; cur != src; {
		cur = t.predecessor(sp, cur)
		hops = append(hops, cur)
	}
	slices.Reverse(hops)

	route := make([]sim.Entity, len(hops))
	for i, id := range hops {
		route[i] = t.nodes[id]
	}
	return route, nil
}

// predecessor picks the lowest-numbered node one hop before cur on a shortest path.
func (t *Topology) predecessor(sp path.Shortest, cur NodeID) NodeID {
	want := sp.WeightTo(int64(cur)) - 1
	var ids []int64
	for _, n := range graph.NodesOf(t.graph.To(int64(cur))) {
		ids = append(ids, n.ID())
	}
	slices.Sort(ids)
	for _, id := range ids {
		if sp.WeightTo(id) == want {
			return NodeID(id)
		}
	}
	panic(fmt.Sprintf("topology: no shortest-path predecessor for %s", t.nodes[cur].Name()))
}

func (t *Topology) shortestFrom(src NodeID) path.Shortest {
	if sp, ok := t.spCache[src]; ok {
		return sp
	}
	sp := path.DijkstraFrom(simple.Node(src), t.graph)
	t.spCache[src] = sp
	return sp
}
