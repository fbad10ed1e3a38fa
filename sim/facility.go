package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// minResumeTime is the service time left to a victim preempted at the very
// instant its service would have ended.
const minResumeTime = 1e-12

// PreemptionPolicy selects what Preempt does when every server is busy.
type PreemptionPolicy int

const (
	// PreemptionDisabled rejects every Preempt call with ErrNotImplemented.
	PreemptionDisabled PreemptionPolicy = iota
	// PreemptionResume takes the server from the lowest-priority item in
	// service and requeues that item with its remaining service time.
	PreemptionResume
)

var preemptionPolicyNames = map[PreemptionPolicy]string{
	PreemptionDisabled: "none",
	PreemptionResume:   "resume",
}

func (p PreemptionPolicy) String() string {
	if name, ok := preemptionPolicyNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePreemptionPolicy maps a configuration string to a policy.
// The empty string means PreemptionDisabled.
func ParsePreemptionPolicy(s string) (PreemptionPolicy, error) {
	switch s {
	case "", "none":
		return PreemptionDisabled, nil
	case "resume":
		return PreemptionResume, nil
	}
	return PreemptionDisabled, fmt.Errorf("unknown preemption policy %q; valid options: none, resume", s)
}

type facilityServer struct {
	item        Routable
	busy        bool
	startTime   float64
	sumBusyTime float64
	released    uint64
}

// ServerStats is a snapshot of one server.
type ServerStats struct {
	Busy        bool    `yaml:"busy"`
	SumBusyTime float64 `yaml:"sum_busy_time"`
	Released    uint64  `yaml:"released"`
}

// Facility is a resource with a fixed number of identical servers and a
// priority queue in front of them. It can be taken down and brought back up.
type Facility struct {
	name      string
	scheduler *Scheduler
	globals   *Globals
	servers   []facilityServer
	queue     FacilityQueue

	up             bool
	queueSizeLimit uint32
	policy         PreemptionPolicy

	requestCount   uint64
	releasedCount  uint64
	preemptedCount uint64
	dequeuedCount  uint64
	droppedCount   uint64

	sumBusyTime          float64
	sumQueueLengthTime   float64
	lastQueueChangeTime  float64
	maxRecordedQueueSize int
}

// NewFacility creates an up facility with the given number of servers and
// an unbounded queue.
func NewFacility(name string, servers int, s *Scheduler) *Facility {
	if servers < 1 {
		panic(fmt.Sprintf("NewFacility(%s): servers must be >= 1, got %d", name, servers))
	}
	return &Facility{
		name:                name,
		scheduler:           s,
		globals:             s.Globals(),
		servers:             make([]facilityServer, servers),
		up:                  true,
		queueSizeLimit:      math.MaxUint32,
		lastQueueChangeTime: s.Now(),
	}
}

func (*Facility) Kind() EntityKind { return KindFacility }
func (*Facility) entity()          {}

// Name is the label the facility was created with.
func (f *Facility) Name() string { return f.name }

func (f *Facility) String() string { return f.name }

// SetQueueSizeLimit bounds the number of waiting items.
func (f *Facility) SetQueueSizeLimit(limit uint32) {
	f.queueSizeLimit = limit
}

// QueueSizeLimit returns the queue bound.
func (f *Facility) QueueSizeLimit() uint32 {
	return f.queueSizeLimit
}

// SetPreemptionPolicy selects the behavior of Preempt.
func (f *Facility) SetPreemptionPolicy(p PreemptionPolicy) {
	f.policy = p
}

// PreemptionPolicy returns the active policy.
func (f *Facility) PreemptionPolicy() PreemptionPolicy {
	return f.policy
}

// Request asks for a server on behalf of item. kind is the event to replay
// once the item leaves the queue. The caller schedules the end of service.
func (f *Facility) Request(item Routable, kind EventKind) FacilityResult {
	if item == nil {
		panic("Request: item must not be nil")
	}
	f.requestCount++
	if !f.up {
		f.droppedCount++
		return FacilityDown
	}
	if srv := f.freeServer(); srv != nil {
		f.seize(srv, item)
		return FacilityPutInService
	}
	return f.enqueue(QueueElement{Item: item, EventKind: kind}, false)
}

// Preempt is Request with the right to displace a lower-priority item in
// service. It fails with ErrNotImplemented unless a preemption policy is set.
func (f *Facility) Preempt(item Routable, kind EventKind) (FacilityResult, error) {
	if item == nil {
		panic("Preempt: item must not be nil")
	}
	f.requestCount++
	if f.policy == PreemptionDisabled {
		return FacilityNotImplemented, fmt.Errorf("preempt on facility %s: %w", f.name, ErrNotImplemented)
	}
	if !f.up {
		f.droppedCount++
		return FacilityDown, nil
	}
	if srv := f.freeServer(); srv != nil {
		f.seize(srv, item)
		return FacilityPutInService, nil
	}

	victim := f.lowestPriorityServer(item.Base().Priority)
	if victim == nil {
		return f.enqueue(QueueElement{Item: item, EventKind: kind}, false), nil
	}

	pending, ok := f.scheduler.Suspend(victim.item)
	if !ok {
		return FacilityTokenNotFound, fmt.Errorf("preempt on facility %s: %s has no pending event: %w",
			f.name, EntityName(victim.item), ErrTokenNotFound)
	}
	now := f.globals.Now()
	remaining := pending.OccurAt - now
	if remaining <= 0 {
		remaining = minResumeTime
	}

	displaced := victim.item
	f.vacate(victim)
	f.releasedCount++
	f.preemptedCount++
	logrus.Debugf("[t=%g] %s: %s preempts %s (%g left)", now, f.name,
		EntityName(item), EntityName(displaced), remaining)

	f.enqueue(QueueElement{
		Item:                 displaced,
		EventKind:            pending.Event.Kind(),
		RemainingServiceTime: remaining,
	}, true)
	f.seize(victim, item)
	return FacilityPutInService, nil
}

// Release frees the server held by item and hands it to the head of the
// queue, if any. The dequeued item's event is scheduled at the front of
// the chain; a preempted item resumes in service directly.
func (f *Facility) Release(item Routable) (FacilityResult, error) {
	for i := range f.servers {
		srv := &f.servers[i]
		if !srv.busy || srv.item != item {
			continue
		}
		f.vacate(srv)
		f.releasedCount++
		if f.dequeue(srv) {
			return FacilityReleasedDequeued, nil
		}
		return FacilityReleasedQueueEmpty, nil
	}
	logrus.Warnf("[t=%g] %s: release of %s which is not in service", f.globals.Now(), f.name, EntityName(item))
	return FacilityTokenNotFound, fmt.Errorf("release on facility %s: %w", f.name, ErrTokenNotFound)
}

// SetDown takes the facility out of operation. Items in service lose their
// pending events, queued items are discarded. Returns how many were dropped.
func (f *Facility) SetDown() int {
	f.up = false
	dropped := f.dropInService() + f.purgeQueue()
	logrus.Debugf("[t=%g] %s: down, %d dropped", f.globals.Now(), f.name, dropped)
	return dropped
}

// SetUp puts the facility back into operation.
func (f *Facility) SetUp() {
	f.up = true
}

// IsUp reports whether the facility accepts requests.
func (f *Facility) IsUp() bool { return f.up }

// IsBusy reports whether every server is occupied.
func (f *Facility) IsBusy() bool {
	return f.freeServer() == nil
}

// BusyServers returns the number of occupied servers.
func (f *Facility) BusyServers() int {
	n := 0
	for i := range f.servers {
		if f.servers[i].busy {
			n++
		}
	}
	return n
}

// InService returns the items currently holding a server.
func (f *Facility) InService() []Routable {
	var out []Routable
	for i := range f.servers {
		if f.servers[i].busy {
			out = append(out, f.servers[i].item)
		}
	}
	return out
}

// ServerCount is the number of parallel servers.
func (f *Facility) ServerCount() int { return len(f.servers) }

// QueueLength is the number of waiting items.
func (f *Facility) QueueLength() int { return f.queue.Len() }

// Queue returns a copy of the waiting elements in service order.
func (f *Facility) Queue() []QueueElement { return f.queue.Items() }

// RequestCount counts calls to Request and Preempt.
func (f *Facility) RequestCount() uint64 { return f.requestCount }

// ReleasedCount counts releases, preemptions included.
func (f *Facility) ReleasedCount() uint64 { return f.releasedCount }

// PreemptedCount counts items removed from service by Preempt.
func (f *Facility) PreemptedCount() uint64 { return f.preemptedCount }

// DequeuedCount counts items taken from the queue into service.
func (f *Facility) DequeuedCount() uint64 { return f.dequeuedCount }

// DroppedCount counts items lost to a full queue or to SetDown.
func (f *Facility) DroppedCount() uint64 { return f.droppedCount }

// FullyServicedCount counts releases that were not preemptions.
func (f *Facility) FullyServicedCount() uint64 {
	return f.releasedCount - f.preemptedCount
}

// SumBusyTime is the busy time summed over all servers.
func (f *Facility) SumBusyTime() float64 { return f.sumBusyTime }

// MaxRecordedQueueSize is the longest the queue has been.
func (f *Facility) MaxRecordedQueueSize() int { return f.maxRecordedQueueSize }

// LastQueueChangeTime is when the queue length last changed.
func (f *Facility) LastQueueChangeTime() float64 { return f.lastQueueChangeTime }

// SumQueueLengthTime is the integral of queue length over time.
func (f *Facility) SumQueueLengthTime() float64 { return f.sumQueueLengthTime }

// Utilization is the busy time summed over servers divided by the observed
// duration. It is zero before any time has passed.
func (f *Facility) Utilization() float64 {
	d := f.globals.Duration()
	if d <= 0 {
		return 0
	}
	return f.sumBusyTime / d
}

// MeanBusyPeriod is the busy time per release.
func (f *Facility) MeanBusyPeriod() float64 {
	if f.releasedCount == 0 {
		return f.sumBusyTime
	}
	return f.sumBusyTime / float64(f.releasedCount)
}

// MeanBusyPeriodFullyServiced is the busy time per non-preempted release.
func (f *Facility) MeanBusyPeriodFullyServiced() float64 {
	n := f.FullyServicedCount()
	if n == 0 {
		return f.sumBusyTime
	}
	return f.sumBusyTime / float64(n)
}

// MeanQueueLength is the time-weighted average queue length up to the last
// queue change.
func (f *Facility) MeanQueueLength() float64 {
	d := f.globals.Duration()
	if d <= 0 {
		return 0
	}
	return f.sumQueueLengthTime / d
}

// MeanServiceRate is the number of fully serviced items per unit of busy time.
func (f *Facility) MeanServiceRate() float64 {
	if f.sumBusyTime <= 0 {
		return 0
	}
	return float64(f.FullyServicedCount()) / f.sumBusyTime
}

// Stats returns a snapshot of the facility's counters and derived statistics.
func (f *Facility) Stats() FacilityStats {
	servers := make([]ServerStats, len(f.servers))
	for i, srv := range f.servers {
		servers[i] = ServerStats{Busy: srv.busy, SumBusyTime: srv.sumBusyTime, Released: srv.released}
	}
	return FacilityStats{
		Name:                        f.name,
		Up:                          f.up,
		Servers:                     servers,
		QueueLength:                 f.queue.Len(),
		MaxRecordedQueueSize:        f.maxRecordedQueueSize,
		Requests:                    f.requestCount,
		Released:                    f.releasedCount,
		Preempted:                   f.preemptedCount,
		FullyServiced:               f.FullyServicedCount(),
		Dequeued:                    f.dequeuedCount,
		Dropped:                     f.droppedCount,
		SumBusyTime:                 f.sumBusyTime,
		Utilization:                 f.Utilization(),
		MeanBusyPeriod:              f.MeanBusyPeriod(),
		MeanBusyPeriodFullyServiced: f.MeanBusyPeriodFullyServiced(),
		MeanQueueLength:             f.MeanQueueLength(),
		MeanServiceRate:             f.MeanServiceRate(),
	}
}

// FacilityStats is the reportable state of a facility.
type FacilityStats struct {
	Name                        string        `yaml:"name"`
	Up                          bool          `yaml:"up"`
	Servers                     []ServerStats `yaml:"servers"`
	QueueLength                 int           `yaml:"queue_length"`
	MaxRecordedQueueSize        int           `yaml:"max_recorded_queue_size"`
	Requests                    uint64        `yaml:"requests"`
	Released                    uint64        `yaml:"released"`
	Preempted                   uint64        `yaml:"preempted"`
	FullyServiced               uint64        `yaml:"fully_serviced"`
	Dequeued                    uint64        `yaml:"dequeued"`
	Dropped                     uint64        `yaml:"dropped"`
	SumBusyTime                 float64       `yaml:"sum_busy_time"`
	Utilization                 float64       `yaml:"utilization"`
	MeanBusyPeriod              float64       `yaml:"mean_busy_period"`
	MeanBusyPeriodFullyServiced float64       `yaml:"mean_busy_period_fully_serviced"`
	MeanQueueLength             float64       `yaml:"mean_queue_length"`
	MeanServiceRate             float64       `yaml:"mean_service_rate"`
}

func (f *Facility) freeServer() *facilityServer {
	for i := range f.servers {
		if !f.servers[i].busy {
			return &f.servers[i]
		}
	}
	return nil
}

// lowestPriorityServer returns the busy server whose item has the lowest
// priority strictly below p, or nil.
func (f *Facility) lowestPriorityServer(p int) *facilityServer {
	var victim *facilityServer
	for i := range f.servers {
		srv := &f.servers[i]
		if !srv.busy {
			continue
		}
		prio := srv.item.Base().Priority
		if prio >= p {
			continue
		}
		if victim == nil || prio < victim.item.Base().Priority {
			victim = srv
		}
	}
	return victim
}

func (f *Facility) seize(srv *facilityServer, item Routable) {
	srv.item = item
	srv.busy = true
	srv.startTime = f.globals.Now()
}

// vacate ends the busy period of srv and accumulates its busy time.
func (f *Facility) vacate(srv *facilityServer) {
	busy := f.globals.Now() - srv.startTime
	srv.sumBusyTime += busy
	srv.released++
	srv.busy = false
	srv.item = nil
	f.sumBusyTime += busy
}

// enqueue admits el if the queue has room, otherwise drops it.
func (f *Facility) enqueue(el QueueElement, preempted bool) FacilityResult {
	if uint64(f.queue.Len()) >= uint64(f.queueSizeLimit) {
		f.droppedCount++
		return FacilityQueueFullDropped
	}
	f.updateQueueStats()
	if preempted {
		f.queue.EnqueuePreempted(el)
	} else {
		f.queue.Enqueue(el)
	}
	if f.queue.Len() > f.maxRecordedQueueSize {
		f.maxRecordedQueueSize = f.queue.Len()
	}
	return FacilityEnqueued
}

// dequeue hands srv to the head of the queue. Reports whether anything was dequeued.
func (f *Facility) dequeue(srv *facilityServer) bool {
	if f.queue.Len() == 0 {
		return false
	}
	f.updateQueueStats()
	el, _ := f.queue.Dequeue()
	f.dequeuedCount++
	if el.Preempted() {
		f.seize(srv, el.Item)
		f.scheduler.Schedule(NewEvent(el.RemainingServiceTime, el.EventKind, el.Item))
		return true
	}
	f.scheduler.ScheduleFront(NewEvent(0, el.EventKind, el.Item))
	return true
}

func (f *Facility) dropInService() int {
	dropped := 0
	for i := range f.servers {
		srv := &f.servers[i]
		if !srv.busy {
			continue
		}
		f.scheduler.RemoveEvents(srv.item)
		busy := f.globals.Now() - srv.startTime
		srv.sumBusyTime += busy
		f.sumBusyTime += busy
		srv.busy = false
		srv.item = nil
		f.droppedCount++
		dropped++
	}
	return dropped
}

func (f *Facility) purgeQueue() int {
	if f.queue.Len() == 0 {
		return 0
	}
	f.updateQueueStats()
	n := f.queue.Clear()
	f.droppedCount += uint64(n)
	return n
}

// updateQueueStats adds the area under the queue-length curve since the last
// change. Must run before every queue mutation.
func (f *Facility) updateQueueStats() {
	now := f.globals.Now()
	f.sumQueueLengthTime += float64(f.queue.Len()) * (now - f.lastQueueChangeTime)
	f.lastQueueChangeTime = now
}
