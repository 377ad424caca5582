package gfx

// EventPoller waits up to timeoutMs (forever when negative) for one event and
// reports false on timeout.
type EventPoller func(timeoutMs int) (Event, bool)

// EventsConsumerStrategy decides how many queued events are handled before the
// loop gets back to idle work. Only the first poll may wait.
type EventsConsumerStrategy interface {
	Consume(poll EventPoller, handle func(Event), timeoutMs int) int
}

type DrainAllStrategy struct{}

func (DrainAllStrategy) Consume(poll EventPoller, handle func(Event), timeoutMs int) int {
	return drain(poll, handle, timeoutMs, -1)
}

type DrainMaxStrategy struct {
	Max int
}

func (s DrainMaxStrategy) Consume(poll EventPoller, handle func(Event), timeoutMs int) int {
	max := s.Max
	if max <= 0 {
		max = 1
	}
	return drain(poll, handle, timeoutMs, max)
}

func drain(poll EventPoller, handle func(Event), timeoutMs, max int) int {
	count := 0
	event, ok := poll(timeoutMs)
	for ok {
		handle(event)
		count++
		if max > 0 && count >= max {
			break
		}
		event, ok = poll(0)
	}
	return count
}

func DrainAll() EventsConsumerStrategy {
	return DrainAllStrategy{}
}

func DrainMax(max int) EventsConsumerStrategy {
	return DrainMaxStrategy{Max: max}
}
