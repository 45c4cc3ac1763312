package pipeline

import "sync"

// Queue is a FIFO buffer drained by a single worker. Push signals the
// worker through a one-slot wake channel, so pushing while the worker is
// mid-drain neither blocks nor loses the signal: the worker re-checks the
// queue after every pop and the pending wake at most triggers one extra
// empty drain.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	wake  chan struct{}
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{wake: make(chan struct{}, 1)}
}

func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	q.items = q.items[1:]
	return item, true
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Wake exposes the wake channel for the drain worker's select loop.
func (q *Queue[T]) Wake() <-chan struct{} {
	return q.wake
}
