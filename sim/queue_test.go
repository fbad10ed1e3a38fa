package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func queueIDs(fq *FacilityQueue) []uint64 {
	var ids []uint64
	for _, el := range fq.Items() {
		ids = append(ids, el.Item.Base().ID)
	}
	return ids
}

func TestFacilityQueue_Enqueue_PriorityThenFIFO(t *testing.T) {
	// GIVEN tokens 1..9 with priorities 1,2,3,1,1,2,2,3,4
	_, tokens := newPriorityTokens()
	fq := &FacilityQueue{}

	// WHEN they are enqueued in id order
	for _, tok := range tokens {
		fq.Enqueue(QueueElement{Item: tok, EventKind: reqKind})
	}

	// THEN the queue is ordered by priority, FIFO within a priority
	assert.Equal(t, []uint64{9, 3, 8, 2, 6, 7, 1, 4, 5}, queueIDs(fq))
}

func TestFacilityQueue_EnqueuePreempted_AheadOfSamePriority(t *testing.T) {
	fq := &FacilityQueue{}
	fq.Enqueue(QueueElement{Item: NewToken(1, 3, nil, nil, nil)})
	fq.Enqueue(QueueElement{Item: NewToken(2, 2, nil, nil, nil)})
	fq.Enqueue(QueueElement{Item: NewToken(3, 2, nil, nil, nil)})

	fq.EnqueuePreempted(QueueElement{Item: NewToken(4, 2, nil, nil, nil), RemainingServiceTime: 1})

	assert.Equal(t, []uint64{1, 4, 2, 3}, queueIDs(fq))
}

func TestFacilityQueue_DequeueAndClear(t *testing.T) {
	fq := &FacilityQueue{}
	_, ok := fq.Dequeue()
	assert.False(t, ok, "Dequeue on empty queue")

	a := NewToken(1, 1, nil, nil, nil)
	b := NewToken(2, 1, nil, nil, nil)
	fq.Enqueue(QueueElement{Item: a})
	fq.Enqueue(QueueElement{Item: b})

	head, ok := fq.Peek()
	assert.True(t, ok)
	assert.Same(t, a, head.Item)
	assert.Equal(t, 2, fq.Len(), "Peek must not remove")

	el, _ := fq.Dequeue()
	assert.Same(t, a, el.Item)
	assert.Equal(t, "[Token#2(prio=1)]", fq.String())
	assert.Equal(t, 1, fq.Clear())
	assert.Equal(t, 0, fq.Len())
}

func TestFacilityQueue_Enqueue_NilPanics(t *testing.T) {
	fq := &FacilityQueue{}
	assert.Panics(t, func() { fq.Enqueue(QueueElement{}) })
}
