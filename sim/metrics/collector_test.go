package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qcnsim/qcnsim/sim"
)

func TestCollector_ObserveFacility_SetsLabeledGauges(t *testing.T) {
	// GIVEN a collector on a private registry
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	// WHEN a facility snapshot is observed
	c.ObserveFacility(sim.FacilityStats{
		Name:                 "a->b",
		Utilization:          0.75,
		MeanQueueLength:      1.5,
		MaxRecordedQueueSize: 4,
		Released:             10,
		Dropped:              2,
		Preempted:            1,
	})

	// THEN each gauge carries the facility label
	assert.InDelta(t, 0.75, testutil.ToFloat64(c.FacilityUtilization.WithLabelValues("a->b")), 1e-12)
	assert.InDelta(t, 1.5, testutil.ToFloat64(c.FacilityMeanQueueLength.WithLabelValues("a->b")), 1e-12)
	assert.Equal(t, 4.0, testutil.ToFloat64(c.FacilityMaxQueueSize.WithLabelValues("a->b")))
	assert.Equal(t, 10.0, testutil.ToFloat64(c.FacilityReleased.WithLabelValues("a->b")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.FacilityDropped.WithLabelValues("a->b")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FacilityPreempted.WithLabelValues("a->b")))
}

func TestCollector_ObserveNode_SetsLabeledGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveNode(sim.NodeStats{Name: "b", Received: 7, Forwarded: 5, Dropped: 1, MeanDelay: 0.25, MeanJitter: 0.01})

	assert.Equal(t, 7.0, testutil.ToFloat64(c.NodeReceived.WithLabelValues("b")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.NodeForwarded.WithLabelValues("b")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NodeDropped.WithLabelValues("b")))
	assert.InDelta(t, 0.25, testutil.ToFloat64(c.NodeMeanDelay.WithLabelValues("b")), 1e-12)
	assert.InDelta(t, 0.01, testutil.ToFloat64(c.NodeMeanJitter.WithLabelValues("b")), 1e-12)
}

func TestCollector_ObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveRun(100, 3, 42, 40)

	assert.Equal(t, 100.0, testutil.ToFloat64(c.SimulatedTime))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.PendingEvents))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.GeneratedPDUs))
	assert.Equal(t, 40.0, testutil.ToFloat64(c.DeliveredPDUs))
}

func TestNewCollector_SameRegistryTwice_ReusesCollectors(t *testing.T) {
	// GIVEN a collector already registered
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	require.NoError(t, err)
	first.ObserveNode(sim.NodeStats{Name: "a", Received: 3})

	// WHEN a second collector registers against the same registry
	second, err := NewCollector(reg)

	// THEN it succeeds and shares the existing vectors
	require.NoError(t, err)
	assert.Equal(t, 3.0, testutil.ToFloat64(second.NodeReceived.WithLabelValues("a")))
}

func TestCollector_Gatherer_ExposesRegisteredFamilies(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.ObserveFacility(sim.FacilityStats{Name: "x"})

	families, err := c.Gatherer().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["qcnsim_facility_utilization"])
	assert.True(t, names["qcnsim_simulated_time"])
}

func TestCollector_NilReceiver_IsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveFacility(sim.FacilityStats{Name: "x"})
		c.ObserveNode(sim.NodeStats{Name: "x"})
		c.ObserveRun(1, 0, 0, 0)
	})
}
