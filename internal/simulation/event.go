package simulation

import (
	"container/heap"
	"time"
)

// SubmissionEvent is a single synthetic submission scheduled on the contest
// timeline. Events are immutable once generated; Seq is a generation-order
// counter used strictly to break ties between events with equal Time.
type SubmissionEvent struct {
	Time         time.Time
	Seq          uint64
	TeamID       string
	ProblemID    string
	LanguageID   string
	ArtifactPath string
}

// EventQueue is a min-ordered queue of submission events keyed by
// (Time, Seq) ascending. It is populated once before the drain starts and
// afterwards mutated only by Pop; it is not safe for concurrent use.
type EventQueue struct {
	h eventHeap
}

// NewEventQueue builds a queue from the given events in O(n).
func NewEventQueue(events []SubmissionEvent) *EventQueue {
	q := &EventQueue{h: make(eventHeap, len(events))}
	copy(q.h, events)
	heap.Init(&q.h)
	return q
}

// Len returns the number of events remaining in the queue.
func (q *EventQueue) Len() int {
	return len(q.h)
}

// Peek returns the earliest event without removing it. The second return
// value is false when the queue is empty.
func (q *EventQueue) Peek() (SubmissionEvent, bool) {
	if len(q.h) == 0 {
		return SubmissionEvent{}, false
	}
	return q.h[0], true
}

// Pop removes and returns the earliest event. The second return value is
// false when the queue is empty.
func (q *EventQueue) Pop() (SubmissionEvent, bool) {
	if len(q.h) == 0 {
		return SubmissionEvent{}, false
	}
	ev := heap.Pop(&q.h).(SubmissionEvent)
	return ev, true
}

type eventHeap []SubmissionEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time.Equal(h[j].Time) {
		return h[i].Seq < h[j].Seq
	}
	return h[i].Time.Before(h[j].Time)
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(SubmissionEvent))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	ev := old[n-1]
	*h = old[:n-1]
	return ev
}
