// Implements the FacilityQueue, which holds items waiting for a free server.
// Items are ordered by priority, highest first, and FIFO within a priority.

package sim

import (
	"fmt"
	"strings"
)

// QueueElement is a waiting item together with the event kind to replay
// when it is dequeued. A positive RemainingServiceTime marks an item that
// was preempted out of service.
type QueueElement struct {
	Item                 Routable
	EventKind            EventKind
	RemainingServiceTime float64
}

// Preempted reports whether the element was taken out of service.
func (e QueueElement) Preempted() bool {
	return e.RemainingServiceTime > 0
}

func (e QueueElement) priority() int {
	return e.Item.Base().Priority
}

// FacilityQueue is the priority queue of a facility.
type FacilityQueue struct {
	queue []QueueElement
}

// Enqueue inserts el behind every element of equal or higher priority.
func (fq *FacilityQueue) Enqueue(el QueueElement) {
	if el.Item == nil {
		panic("Enqueue: item must not be nil")
	}
	p := el.priority()
	i := len(fq.queue)
	for j, cur := range fq.queue {
		if cur.priority() < p {
			i = j
			break
		}
	}
	fq.insertAt(i, el)
}

// EnqueuePreempted inserts el ahead of every element of equal priority, so
// an item pushed out of service is the next of its class to resume.
func (fq *FacilityQueue) EnqueuePreempted(el QueueElement) {
	if el.Item == nil {
		panic("EnqueuePreempted: item must not be nil")
	}
	p := el.priority()
	i := len(fq.queue)
	for j, cur := range fq.queue {
		if cur.priority() <= p {
			i = j
			break
		}
	}
	fq.insertAt(i, el)
}

func (fq *FacilityQueue) insertAt(i int, el QueueElement) {
	fq.queue = append(fq.queue, QueueElement{})
	copy(fq.queue[i+1:], fq.queue[i:])
	fq.queue[i] = el
}

// Peek returns the head without removing it.
func (fq *FacilityQueue) Peek() (QueueElement, bool) {
	if len(fq.queue) == 0 {
		return QueueElement{}, false
	}
	return fq.queue[0], true
}

// Dequeue removes and returns the head.
func (fq *FacilityQueue) Dequeue() (QueueElement, bool) {
	el, ok := fq.Peek()
	if !ok {
		return el, false
	}
	fq.queue[0] = QueueElement{}
	fq.queue = fq.queue[1:]
	return el, true
}

// Clear empties the queue and returns how many elements it held.
func (fq *FacilityQueue) Clear() int {
	n := len(fq.queue)
	fq.queue = nil
	return n
}

// Len returns the number of waiting elements.
func (fq *FacilityQueue) Len() int {
	return len(fq.queue)
}

// Items returns a copy of the queue in service order.
func (fq *FacilityQueue) Items() []QueueElement {
	return append([]QueueElement(nil), fq.queue...)
}

func (fq *FacilityQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, el := range fq.queue {
		sb.WriteString(fmt.Sprint(el.Item))
		if i < len(fq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
