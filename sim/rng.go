package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// SimulationKey is the master seed of a run. Equal keys over an equal
// scenario replay the same event sequence.
type SimulationKey int64

func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Stream names handed to PartitionedRNG.ForSubsystem.
const (
	SubsystemTraffic  = "traffic"
	SubsystemFailures = "failures"
)

// SubsystemGenerator names the private stream of traffic generator id, so
// adding a generator never shifts the samples drawn by the others.
func SubsystemGenerator(id int) string {
	return fmt.Sprintf("generator_%d", id)
}

// PartitionedRNG hands out one PCG stream per named subsystem. A stream is
// seeded with (key, fnv64a(name)) except SubsystemTraffic, whose first seed
// word is the key itself. Streams are created lazily and reused; the type
// is owned by a single run and is not safe for concurrent use.
//
// *rand.Rand satisfies rand.Source, which is what gonum's distuv expects
// in its Src field.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: map[string]*rand.Rand{}}
}

// ForSubsystem returns the stream for name, creating it on first use.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	r, ok := p.streams[name]
	if !ok {
		r = rand.New(rand.NewPCG(p.seedFor(name), hashName(name)))
		p.streams[name] = r
	}
	return r
}

func (p *PartitionedRNG) Key() SimulationKey { return p.key }

func (p *PartitionedRNG) seedFor(name string) uint64 {
	if name == SubsystemTraffic {
		return uint64(p.key)
	}
	return uint64(p.key) ^ hashName(name)
}

func hashName(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
