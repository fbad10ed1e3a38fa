// Package metrics exports facility, node and run statistics as Prometheus
// gauges. Values are set from snapshots; nothing here touches the kernel
// while a simulation is running.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/qcnsim/qcnsim/sim"
)

// Collector holds the registered gauges of one simulation run.
type Collector struct {
	gatherer prometheus.Gatherer

	FacilityUtilization     *prometheus.GaugeVec
	FacilityMeanQueueLength *prometheus.GaugeVec
	FacilityMaxQueueSize    *prometheus.GaugeVec
	FacilityReleased        *prometheus.GaugeVec
	FacilityDropped         *prometheus.GaugeVec
	FacilityPreempted       *prometheus.GaugeVec

	NodeReceived   *prometheus.GaugeVec
	NodeForwarded  *prometheus.GaugeVec
	NodeDropped    *prometheus.GaugeVec
	NodeMeanDelay  *prometheus.GaugeVec
	NodeMeanJitter *prometheus.GaugeVec

	SimulatedTime prometheus.Gauge
	PendingEvents prometheus.Gauge
	DeliveredPDUs prometheus.Gauge
	GeneratedPDUs prometheus.Gauge
}

// NewCollector registers the simulation gauges against reg. A nil reg means
// the default registerer. Registering twice on the same registry reuses the
// existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	c := &Collector{gatherer: gatherer}

	facilityGauges := []struct {
		dst  **prometheus.GaugeVec
		name string
		help string
	}{
		{&c.FacilityUtilization, "qcnsim_facility_utilization", "Busy time summed over servers divided by the observed duration."},
		{&c.FacilityMeanQueueLength, "qcnsim_facility_mean_queue_length", "Time-weighted mean queue length."},
		{&c.FacilityMaxQueueSize, "qcnsim_facility_max_queue_size", "Largest queue length recorded."},
		{&c.FacilityReleased, "qcnsim_facility_released", "Items released from service, preemptions included."},
		{&c.FacilityDropped, "qcnsim_facility_dropped", "Items dropped by the facility."},
		{&c.FacilityPreempted, "qcnsim_facility_preempted", "Items preempted out of service."},
	}
	for _, fg := range facilityGauges {
		vec, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: fg.name,
			Help: fg.help,
		}, []string{"facility"}), fg.name)
		if err != nil {
			return nil, err
		}
		*fg.dst = vec
	}

	nodeGauges := []struct {
		dst  **prometheus.GaugeVec
		name string
		help string
	}{
		{&c.NodeReceived, "qcnsim_node_received", "Items that arrived at the node."},
		{&c.NodeForwarded, "qcnsim_node_forwarded", "Items forwarded by the node."},
		{&c.NodeDropped, "qcnsim_node_dropped", "PDUs dropped at the node for lack of TTL."},
		{&c.NodeMeanDelay, "qcnsim_node_mean_delay", "Mean time from generation to arrival at the node."},
		{&c.NodeMeanJitter, "qcnsim_node_mean_jitter", "Mean difference between consecutive arrival delays."},
	}
	for _, ng := range nodeGauges {
		vec, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: ng.name,
			Help: ng.help,
		}, []string{"node"}), ng.name)
		if err != nil {
			return nil, err
		}
		*ng.dst = vec
	}

	runGauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.SimulatedTime, "qcnsim_simulated_time", "Simulation clock at the time of the snapshot."},
		{&c.PendingEvents, "qcnsim_pending_events", "Events left on the chain."},
		{&c.DeliveredPDUs, "qcnsim_delivered_pdus", "PDUs that reached their destination."},
		{&c.GeneratedPDUs, "qcnsim_generated_pdus", "PDUs emitted by traffic generators."},
	}
	for _, rg := range runGauges {
		gauge, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: rg.name,
			Help: rg.help,
		}), rg.name)
		if err != nil {
			return nil, err
		}
		*rg.dst = gauge
	}

	return c, nil
}

// Gatherer returns the gatherer matching the registerer used at construction.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.gatherer
}

// ObserveFacility sets the facility gauges from a snapshot.
func (c *Collector) ObserveFacility(s sim.FacilityStats) {
	if c == nil {
		return
	}
	c.FacilityUtilization.WithLabelValues(s.Name).Set(s.Utilization)
	c.FacilityMeanQueueLength.WithLabelValues(s.Name).Set(s.MeanQueueLength)
	c.FacilityMaxQueueSize.WithLabelValues(s.Name).Set(float64(s.MaxRecordedQueueSize))
	c.FacilityReleased.WithLabelValues(s.Name).Set(float64(s.Released))
	c.FacilityDropped.WithLabelValues(s.Name).Set(float64(s.Dropped))
	c.FacilityPreempted.WithLabelValues(s.Name).Set(float64(s.Preempted))
}

// ObserveNode sets the node gauges from a snapshot.
func (c *Collector) ObserveNode(s sim.NodeStats) {
	if c == nil {
		return
	}
	c.NodeReceived.WithLabelValues(s.Name).Set(float64(s.Received))
	c.NodeForwarded.WithLabelValues(s.Name).Set(float64(s.Forwarded))
	c.NodeDropped.WithLabelValues(s.Name).Set(float64(s.Dropped))
	c.NodeMeanDelay.WithLabelValues(s.Name).Set(s.MeanDelay)
	c.NodeMeanJitter.WithLabelValues(s.Name).Set(s.MeanJitter)
}

// ObserveRun sets the run-level gauges.
func (c *Collector) ObserveRun(now float64, pending int, generated, delivered uint64) {
	if c == nil {
		return
	}
	c.SimulatedTime.Set(now)
	c.PendingEvents.Set(float64(pending))
	c.GeneratedPDUs.Set(float64(generated))
	c.DeliveredPDUs.Set(float64(delivered))
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
