package sim

import (
	"container/list"

	"github.com/sirupsen/logrus"
)

// Scheduler owns the event chain of one simulation run. The chain is kept
// sorted by occurrence time; events with equal times keep insertion order.
// Scheduling is linear in the chain length, which keeps cancellation and
// suspension by payload identity straightforward.
type Scheduler struct {
	globals *Globals
	chain   *list.List // of ChainElement
}

// NewScheduler creates an empty chain bound to the given run state.
func NewScheduler(g *Globals) *Scheduler {
	return &Scheduler{globals: g, chain: list.New()}
}

// Globals returns the run state the scheduler advances.
func (s *Scheduler) Globals() *Globals {
	return s.globals
}

// Now is shorthand for Globals().Now().
func (s *Scheduler) Now() float64 {
	return s.globals.Now()
}

// Schedule places ev at Now()+ev.Delay(), after every element that occurs
// at or before that time.
func (s *Scheduler) Schedule(ev Event) {
	elem := ChainElement{OccurAt: s.globals.Now() + ev.Delay(), Event: ev}
	for e := s.chain.Front(); e != nil; e = e.Next() {
		if elem.Before(e.Value.(ChainElement)) {
			s.chain.InsertBefore(elem, e)
			return
		}
	}
	s.chain.PushBack(elem)
}

// ScheduleFront places ev at the head of the chain at the current time,
// ahead of anything else due now. The event's delay is ignored.
func (s *Scheduler) ScheduleFront(ev Event) {
	s.chain.PushFront(ChainElement{OccurAt: s.globals.Now(), Event: ev})
}

// Cause removes the head of the chain, advances the clock to its time and
// returns its event.
func (s *Scheduler) Cause() (Event, error) {
	front := s.chain.Front()
	if front == nil {
		return Event{}, ErrEmptyChain
	}
	elem := s.chain.Remove(front).(ChainElement)
	s.globals.SetNow(elem.OccurAt)
	logrus.Debugf("[t=%g] cause %s", elem.OccurAt, elem.Event)
	return elem.Event, nil
}

// MustCause is Cause for callers that know the chain is not empty.
func (s *Scheduler) MustCause() Event {
	ev, err := s.Cause()
	if err != nil {
		panic("MustCause: " + err.Error())
	}
	return ev
}

// Peek returns the head of the chain without removing it.
func (s *Scheduler) Peek() (ChainElement, bool) {
	front := s.chain.Front()
	if front == nil {
		return ChainElement{}, false
	}
	return front.Value.(ChainElement), true
}

// RemoveEvents cancels every pending event whose payload is e and returns
// how many were removed.
func (s *Scheduler) RemoveEvents(e Entity) int {
	removed := 0
	for el := s.chain.Front(); el != nil; {
		next := el.Next()
		if el.Value.(ChainElement).Event.Payload() == e {
			s.chain.Remove(el)
			removed++
		}
		el = next
	}
	return removed
}

// Suspend removes the earliest pending event carrying e and returns it,
// so a preempting facility can resume it later with its remaining time.
func (s *Scheduler) Suspend(e Entity) (ChainElement, bool) {
	for el := s.chain.Front(); el != nil; el = el.Next() {
		elem := el.Value.(ChainElement)
		if elem.Event.Payload() == e {
			s.chain.Remove(el)
			return elem, true
		}
	}
	return ChainElement{}, false
}

// ChainSize returns the number of pending events.
func (s *Scheduler) ChainSize() int {
	return s.chain.Len()
}

// Pending returns a snapshot of the chain in firing order.
func (s *Scheduler) Pending() []ChainElement {
	out := make([]ChainElement, 0, s.chain.Len())
	for el := s.chain.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(ChainElement))
	}
	return out
}
