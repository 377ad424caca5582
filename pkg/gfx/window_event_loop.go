package gfx

import (
	"context"
	"runtime"
	"time"

	"github.com/kjkrol/beamview/internal/platform"
)

// EventSource is the blocking half of a platform display.
type EventSource interface {
	NextEventTimeout(timeoutMs int) platform.Event
}

// Waker is implemented by sources whose blocking wait can be interrupted from
// another goroutine. Wake must be safe for concurrent use.
type Waker interface {
	Wake()
}

// IdleHandler is driven by EventLoop. WaitTimeout is asked before every wait;
// a negative duration blocks until the next event.
type IdleHandler interface {
	HandleEvent(Event) error
	Idle() error
	WaitTimeout() time.Duration
	Done() bool
}

type EventLoop struct {
	source   EventSource
	strategy EventsConsumerStrategy
}

func NewEventLoop(source EventSource, strategy EventsConsumerStrategy) *EventLoop {
	if strategy == nil {
		strategy = DrainAll()
	}
	return &EventLoop{source: source, strategy: strategy}
}

func (el *EventLoop) poll(timeoutMs int) (Event, bool) {
	platformEvent := el.source.NextEventTimeout(timeoutMs)
	if _, ok := platformEvent.(platform.TimeoutEvent); ok {
		return nil, false
	}
	return convert(platformEvent), true
}

// Run handles queued events in arrival order and gives the handler one idle
// tick after each drain. It returns the first handler error, nil once the
// handler is done or ctx is cancelled. Cancellation is noticed between waits;
// a source implementing Waker is woken so a blocking wait ends too.
func (el *EventLoop) Run(ctx context.Context, h IdleHandler) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if w, ok := el.source.(Waker); ok && ctx.Done() != nil {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-ctx.Done():
				select {
				case <-stop:
				default:
					w.Wake()
				}
			case <-stop:
			}
		}()
	}

	for {
		if ctx.Err() != nil || h.Done() {
			return nil
		}

		var handleErr error
		el.strategy.Consume(el.poll, func(event Event) {
			if handleErr == nil {
				handleErr = h.HandleEvent(event)
			}
		}, timeoutMillis(h.WaitTimeout()))
		if handleErr != nil {
			return handleErr
		}
		if h.Done() {
			return nil
		}

		if err := h.Idle(); err != nil {
			return err
		}
	}
}

func timeoutMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := int(d / time.Millisecond)
	if d > 0 && ms == 0 {
		ms = 1
	}
	return ms
}
