package link

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qcnsim/qcnsim/sim"
)

const (
	transmitKind = sim.EventRequestServiceAtFacility
	endKind      = sim.EventReleaseFromFacility
	arriveKind   = sim.EventEndPropagation
)

type fixture struct {
	s    *sim.Scheduler
	a, b *sim.Node
	link *Link
}

// newFixture builds a->b at 1000 bits per time unit with delay 0.5.
func newFixture() fixture {
	s := sim.NewScheduler(sim.NewGlobals(sim.NewSimulationKey(1)))
	g := s.Globals()
	a, b := sim.NewNode("a", g), sim.NewNode("b", g)
	return fixture{s: s, a: a, b: b, link: New("a->b", a, b, 1000, 0.5, s)}
}

func (f fixture) pdu(size uint32, priority int) *sim.PDU {
	return f.s.Globals().NewPDU(priority, nil, f.a, f.b, size, sim.WithHops(f.a, f.b))
}

func TestLink_TransmitPropagate_Lifecycle(t *testing.T) {
	// GIVEN a 100-byte PDU on a 1000 bit/s link
	f := newFixture()
	pdu := f.pdu(100, 0)

	// WHEN it is transmitted
	res, err := f.link.Transmit(pdu, transmitKind, endKind)
	require.NoError(t, err)
	assert.Equal(t, InTransmission, res)

	// THEN transmission ends after 0.8 and propagation after another 0.5
	ev := f.s.MustCause()
	assert.Equal(t, endKind, ev.Kind())
	assert.InDelta(t, 0.8, f.s.Now(), 1e-12)
	res, err = f.link.Propagate(pdu, arriveKind)
	require.NoError(t, err)
	assert.Equal(t, InTransit, res)
	assert.Equal(t, 1, f.link.InTransitCount())

	ev = f.s.MustCause()
	assert.Equal(t, arriveKind, ev.Kind())
	assert.InDelta(t, 1.3, f.s.Now(), 1e-12)
	assert.Equal(t, Propagated, f.link.EndPropagation(pdu))
	assert.Equal(t, 0, f.link.InTransitCount())
	assert.Equal(t, uint64(1), f.link.Stats().Propagated)
}

func TestLink_Transmit_WrongHops(t *testing.T) {
	f := newFixture()
	pdu := f.s.Globals().NewPDU(0, nil, f.b, f.a, 10, sim.WithHops(f.b, f.a))

	res, err := f.link.Transmit(pdu, transmitKind, endKind)

	assert.Equal(t, DoesNotConnect, res)
	assert.True(t, errors.Is(err, ErrDoesNotConnect))
	assert.Equal(t, 0, f.s.ChainSize())
}

func TestLink_Transmit_QueuesThenReplaysTransmitEvent(t *testing.T) {
	// GIVEN one PDU in transmission and one waiting
	f := newFixture()
	first, second := f.pdu(100, 0), f.pdu(100, 0)
	_, err := f.link.Transmit(first, transmitKind, endKind)
	require.NoError(t, err)
	res, err := f.link.Transmit(second, transmitKind, endKind)
	require.NoError(t, err)
	assert.Equal(t, Enqueued, res)

	// WHEN the first leaves the transmitter
	f.s.MustCause()
	_, err = f.link.Propagate(first, arriveKind)
	require.NoError(t, err)

	// THEN the waiting PDU's transmit event is next
	ev := f.s.MustCause()
	assert.Equal(t, transmitKind, ev.Kind())
	assert.Same(t, second, ev.Payload())
	res, err = f.link.Transmit(second, transmitKind, endKind)
	require.NoError(t, err)
	assert.Equal(t, InTransmission, res)
}

func TestLink_QueueLimit_Drops(t *testing.T) {
	f := newFixture()
	f.link.SetQueueSizeLimit(1)

	var results []Result
	for i := 0; i < 3; i++ {
		res, err := f.link.Transmit(f.pdu(10, 0), transmitKind, endKind)
		require.NoError(t, err)
		results = append(results, res)
	}

	assert.Equal(t, []Result{InTransmission, Enqueued, QueueFullDropped}, results)
	assert.Equal(t, uint64(1), f.link.Stats().DroppedTransmission)
}

func TestLink_SetDown_DropsEverywhere(t *testing.T) {
	// GIVEN one PDU on the medium, one in transmission and one queued
	f := newFixture()
	onMedium, inTx, queued := f.pdu(100, 0), f.pdu(100, 0), f.pdu(100, 0)
	_, err := f.link.Transmit(onMedium, transmitKind, endKind)
	require.NoError(t, err)
	f.s.MustCause()
	_, err = f.link.Propagate(onMedium, arriveKind)
	require.NoError(t, err)
	_, err = f.link.Transmit(inTx, transmitKind, endKind)
	require.NoError(t, err)
	_, err = f.link.Transmit(queued, transmitKind, endKind)
	require.NoError(t, err)

	// WHEN the link goes down
	dropped := f.link.SetDown()

	// THEN all three are gone and no events remain
	assert.Equal(t, 3, dropped)
	assert.Equal(t, 0, f.s.ChainSize())
	stats := f.link.Stats()
	assert.False(t, stats.Up)
	assert.Equal(t, uint64(3), stats.DroppedTotal)
	assert.Equal(t, uint64(1), stats.DroppedMedium)

	// AND new PDUs are refused until it is back up
	res, err := f.link.Transmit(f.pdu(1, 0), transmitKind, endKind)
	require.NoError(t, err)
	assert.Equal(t, Down, res)
	f.link.SetUp()
	assert.True(t, f.link.IsUp())
}

func TestLink_Propagate_AfterDown_LosesPDU(t *testing.T) {
	// GIVEN a PDU whose transmission was cut by a link failure
	f := newFixture()
	pdu := f.pdu(100, 0)
	_, err := f.link.Transmit(pdu, transmitKind, endKind)
	require.NoError(t, err)
	f.link.SetDown()

	// WHEN a stale end-of-transmission is processed
	res, err := f.link.Propagate(pdu, arriveKind)

	// THEN the PDU is counted as lost on the medium
	require.NoError(t, err)
	assert.Equal(t, Down, res)
	assert.Equal(t, 0, f.link.InTransitCount())
	assert.Equal(t, uint64(1), f.link.Stats().DroppedMedium)
}

func TestLink_Preemption_HigherPriorityTakesTransmitter(t *testing.T) {
	// GIVEN a preemptive link transmitting a low-priority PDU
	f := newFixture()
	f.link.SetPreemptionPolicy(sim.PreemptionResume)
	low, high := f.pdu(100, 0), f.pdu(50, 5)
	_, err := f.link.Transmit(low, transmitKind, endKind)
	require.NoError(t, err)

	// WHEN a high-priority PDU arrives at t=0.2
	f.s.Globals().SetNow(0.2)
	res, err := f.link.Transmit(high, transmitKind, endKind)
	require.NoError(t, err)

	// THEN it transmits first and the low one resumes with 0.6 left
	assert.Equal(t, InTransmission, res)
	ev := f.s.MustCause()
	assert.Same(t, high, ev.Payload())
	assert.InDelta(t, 0.6, f.s.Now(), 1e-12)
	_, err = f.link.Propagate(high, arriveKind)
	require.NoError(t, err)

	// high reaches b at 1.1, low finishes transmission at 1.2
	ev = f.s.MustCause()
	assert.Same(t, high, ev.Payload())
	assert.Equal(t, arriveKind, ev.Kind())
	ev = f.s.MustCause()
	assert.Same(t, low, ev.Payload())
	assert.Equal(t, endKind, ev.Kind())
	assert.InDelta(t, 1.2, f.s.Now(), 1e-12)
	assert.Equal(t, uint64(1), f.link.Stats().Transmission.Preempted)
}

func TestLink_TransmissionTime(t *testing.T) {
	f := newFixture()
	assert.Equal(t, 12.0, f.link.TransmissionTime(1500))
	assert.Equal(t, "a->b", f.link.Name())
	assert.Same(t, f.a, f.link.From())
	assert.Same(t, f.b, f.link.To())
	assert.Equal(t, "PDU_IN_TRANSIT", InTransit.String())
}
