// Package sched implements the runnable queue: an intrusive,
// doubly-linked list over the fixed-size process table, the Go
// analogue of original_source/kern/env.c's env_sched_list and its
// TAILQ_INSERT_HEAD/TAILQ_REMOVE/TAILQ_FOREACH usage. No node is
// heap-allocated — next/prev links live in parallel arrays indexed by
// process-table slot, exactly as a BSD TAILQ's links live inside the
// struct itself rather than in a separate container. Slots enter only
// at the head (InsertHead), so First reports the most recently
// inserted slot still linked; there is no tail insertion.
package sched

const none = -1

// Queue is the runnable list. The zero value is not usable; construct
// with NewQueue sized to the process table.
type Queue struct {
	next []int32
	prev []int32
	head int32
	tail int32
	n    int
}

// NewQueue allocates link arrays for size process-table slots.
func NewQueue(size int) *Queue {
	q := &Queue{
		next: make([]int32, size),
		prev: make([]int32, size),
		head: none,
		tail: none,
	}
	for i := range q.next {
		q.next[i] = none
		q.prev[i] = none
	}
	return q
}

// InsertHead pushes idx onto the front of the queue, the
// TAILQ_INSERT_HEAD collaborator env_create uses for a freshly
// runnable env. idx must not already be linked.
func (q *Queue) InsertHead(idx int) {
	i := int32(idx)
	q.next[i] = q.head
	q.prev[i] = none
	if q.head != none {
		q.prev[q.head] = i
	} else {
		q.tail = i
	}
	q.head = i
	q.n++
}

// Remove unlinks idx from wherever it sits in the queue, the
// TAILQ_REMOVE collaborator env_destroy uses when a running or
// runnable env is torn down before reaching the front of the queue.
// A no-op if idx is not currently linked (e.g. an env that was
// allocated but never made runnable), since a blind unlink would
// otherwise mistake "never linked" for "is the head" and corrupt the
// queue.
func (q *Queue) Remove(idx int) {
	i := int32(idx)
	if q.prev[i] == none && q.next[i] == none && q.head != i {
		return
	}
	if q.prev[i] != none {
		q.next[q.prev[i]] = q.next[i]
	} else {
		q.head = q.next[i]
	}
	if q.next[i] != none {
		q.prev[q.next[i]] = q.prev[i]
	} else {
		q.tail = q.prev[i]
	}
	q.next[i] = none
	q.prev[i] = none
	q.n--
}

// First reports the slot at the head of the queue, the TAILQ_FIRST
// collaborator. ok is false on an empty queue.
func (q *Queue) First() (idx int, ok bool) {
	if q.head == none {
		return 0, false
	}
	return int(q.head), true
}

// Len reports the number of linked slots.
func (q *Queue) Len() int { return q.n }

// ForEach walks the queue head to tail, the TAILQ_FOREACH collaborator
// diagnostics.DumpSched uses.
func (q *Queue) ForEach(fn func(idx int)) {
	for i := q.head; i != none; i = q.next[i] {
		fn(int(i))
	}
}
