package crawler

import (
	"context"
	"sync"
	"time"
)

// Item is a unit of crawl work: a canonical URL and its link distance from
// the start URL.
type Item struct {
	URL   string
	Depth int
}

// Frontier is a FIFO work queue shared by all workers of one crawl.
//
// Every pushed item is pending until a worker that popped it calls Done.
// The frontier is drained when no item is pending, meaning the queue is
// empty and no worker can still produce new items. Drained is final.
type Frontier struct {
	mu      sync.Mutex
	items   []Item
	pending int

	// ready holds at most one wake-up token for a waiting Pop.
	ready chan struct{}

	// drained is closed when pending drops to zero.
	drained   chan struct{}
	drainOnce sync.Once
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		items:   make([]Item, 0),
		ready:   make(chan struct{}, 1),
		drained: make(chan struct{}),
	}
}

// Push appends item to the queue. Pushing to a drained frontier is a no-op
// and returns false.
func (f *Frontier) Push(item Item) bool {
	f.mu.Lock()
	if f.Drained() {
		f.mu.Unlock()
		return false
	}
	f.items = append(f.items, item)
	f.pending++
	f.mu.Unlock()

	select {
	case f.ready <- struct{}{}:
	default:
	}
	return true
}

// Pop removes the oldest item, waiting up to wait for one to arrive.
// It returns false when the wait elapses, the frontier drains or ctx is done.
// Each successful Pop must be paired with a call to Done.
func (f *Frontier) Pop(ctx context.Context, wait time.Duration) (Item, bool) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		f.mu.Lock()
		if len(f.items) > 0 {
			item := f.items[0]
			f.items[0] = Item{}
			f.items = f.items[1:]
			remaining := len(f.items)
			f.mu.Unlock()

			// Pass the token on so another waiter picks up the rest.
			if remaining > 0 {
				select {
				case f.ready <- struct{}{}:
				default:
				}
			}
			return item, true
		}
		f.mu.Unlock()

		select {
		case <-f.ready:
		case <-f.drained:
			return Item{}, false
		case <-timer.C:
			return Item{}, false
		case <-ctx.Done():
			return Item{}, false
		}
	}
}

// Done marks one popped item as fully processed.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pending > 0 {
		f.pending--
	}
	if f.pending == 0 {
		f.drainOnce.Do(func() { close(f.drained) })
	}
}

// Drained reports whether every pushed item has been processed.
func (f *Frontier) Drained() bool {
	select {
	case <-f.drained:
		return true
	default:
		return false
	}
}

// DrainedCh returns a channel closed when the frontier drains.
func (f *Frontier) DrainedCh() <-chan struct{} {
	return f.drained
}

// Len returns the number of queued (not yet popped) items.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Pending returns the number of queued plus in-flight items.
func (f *Frontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}
