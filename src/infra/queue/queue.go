package queue

import "sync"

// Unbounded is a FIFO queue of paths with a non-blocking producer side and
// a channel consumer side. Producers are the event router and the stability
// detector; consumers block on Out until an item arrives.
type Unbounded struct {
	mu     sync.Mutex
	items  []string
	closed bool
	notify chan struct{}
	out    chan string
}

// NewUnbounded creates a new queue and starts its pump goroutine.
func NewUnbounded() *Unbounded {
	q := &Unbounded{
		notify: make(chan struct{}, 1),
		out:    make(chan string),
	}
	go q.pump()
	return q
}

// Put enqueues a path. It never blocks.
func (q *Unbounded) Put(path string) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, path)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Out returns the consumer channel. It is closed after Close once the
// backlog has drained.
func (q *Unbounded) Out() <-chan string {
	return q.out
}

// Len returns the number of items not yet handed to a consumer.
func (q *Unbounded) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops the queue. Items already enqueued are still delivered.
func (q *Unbounded) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pump moves items from the backlog to the consumer channel, preserving
// FIFO order. Only this goroutine sends on out.
func (q *Unbounded) pump() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			if q.closed {
				q.mu.Unlock()
				close(q.out)
				return
			}
			q.mu.Unlock()
			<-q.notify
			continue
		}
		item := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()
		q.out <- item
	}
}
