package crawler

import (
	"fmt"
	"sync"
	"time"
)

// EventKind identifies what an Event reports.
type EventKind int

const (
	// EventClaimed is emitted once per URL when a worker claims it for fetching.
	EventClaimed EventKind = iota

	// EventFetchError is emitted when fetching a claimed URL failed.
	EventFetchError

	// EventStoreError is emitted when persisting a page or its forms failed.
	EventStoreError

	// EventFinished is emitted once when every worker has exited.
	EventFinished
)

// String returns the tag used in progress lines.
func (k EventKind) String() string {
	switch k {
	case EventClaimed:
		return "CRAWL"
	case EventFetchError:
		return "ERROR"
	case EventStoreError:
		return "STORE"
	case EventFinished:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Event is a progress notification from a running crawl.
type Event struct {
	Kind  EventKind
	URL   string
	Depth int
	Err   error

	// Pages is the number of claimed URLs; set on EventFinished.
	Pages int

	// Stopped is set on EventFinished when the crawl ended by Stop or
	// cancellation rather than by draining.
	Stopped bool

	Time time.Time
}

// String renders the event as a single progress line.
func (e Event) String() string {
	switch e.Kind {
	case EventClaimed:
		return fmt.Sprintf("[CRAWL] depth=%d %s", e.Depth, e.URL)
	case EventFetchError:
		return fmt.Sprintf("[ERROR] GET %s -> %v", e.URL, e.Err)
	case EventStoreError:
		return fmt.Sprintf("[STORE] %s -> %v", e.URL, e.Err)
	case EventFinished:
		if e.Stopped {
			return fmt.Sprintf("[DONE] Stopped after %d pages.", e.Pages)
		}
		return fmt.Sprintf("[DONE] Crawled %d pages.", e.Pages)
	default:
		return fmt.Sprintf("[%s] %s", e.Kind, e.URL)
	}
}

// LineSink wraps a text callback so that concurrent workers never
// interleave partial lines. Each event reaches fn as one complete line.
func LineSink(fn func(line string)) func(Event) {
	var mu sync.Mutex
	return func(ev Event) {
		line := ev.String()
		mu.Lock()
		defer mu.Unlock()
		fn(line)
	}
}
