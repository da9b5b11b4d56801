// Package queue provides a generic FIFO queue.
//
// The simulation uses the same queue type for two things: the frontier of a
// breadth-first search and the ordered population of humans or zombies. Both
// need ordered append, ordered pop and a non-destructive forward traversal.
package queue

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrEmptyQueue is returned when dequeuing from an empty queue
var ErrEmptyQueue = errors.New("dequeue from empty queue")

// compactThreshold is the head offset after which consumed slots are reclaimed
const compactThreshold = 32

// Queue is a FIFO sequence. The zero value is an empty queue ready to use.
// A Queue is not safe for concurrent use.
type Queue[T any] struct {
	items []T
	head  int
}

// New creates a queue holding items in the given order
func New[T any](items ...T) *Queue[T] {
	q := &Queue[T]{}
	for _, item := range items {
		q.Enqueue(item)
	}
	return q
}

// Enqueue appends an item to the tail
func (q *Queue[T]) Enqueue(item T) {
	q.items = append(q.items, item)
}

// Dequeue removes and returns the head item
func (q *Queue[T]) Dequeue() (T, error) {
	var zero T
	if q.Len() == 0 {
		return zero, ErrEmptyQueue
	}

	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= compactThreshold && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	return item, nil
}

// Peek returns the head item without removing it
func (q *Queue[T]) Peek() (T, bool) {
	if q.Len() == 0 {
		var zero T
		return zero, false
	}
	return q.items[q.head], true
}

// Len returns the number of queued items
func (q *Queue[T]) Len() int {
	return len(q.items) - q.head
}

// Clear removes every item
func (q *Queue[T]) Clear() {
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
}

// All returns a forward traversal from the current head to the tail.
// Each range over the result starts again at the head at that moment and
// never modifies the queue. Mutating the queue during a traversal is
// undefined.
func (q *Queue[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := q.head; i < len(q.items); i++ {
			if !yield(q.items[i]) {
				return
			}
		}
	}
}

// Slice returns a copy of the queued items in order
func (q *Queue[T]) Slice() []T {
	out := make([]T, q.Len())
	copy(out, q.items[q.head:])
	return out
}

func (q *Queue[T]) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range q.items[q.head:] {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(fmt.Sprint(val))
	}
	sb.WriteString("]")
	return sb.String()
}
