// internal/keyboard/event.go
package keyboard

import (
	"context"
	"time"
)

// Kind classifies a key press.
type Kind int

const (
	KindOther Kind = iota
	KindChar
	KindEnter
)

// Event is one key press from the ambient key stream.
type Event struct {
	Kind Kind
	Rune rune
	At   time.Time
}

// Source delivers key events in order to handle until ctx is canceled or the stream ends.
type Source interface {
	Listen(ctx context.Context, handle func(Event)) error
}

// ReplaySource plays back a fixed sequence of events. Timestamps are kept as recorded.
type ReplaySource struct {
	Events []Event
}

func (r ReplaySource) Listen(ctx context.Context, handle func(Event)) error {
	for _, ev := range r.Events {
		if err := ctx.Err(); err != nil {
			return err
		}
		handle(ev)
	}
	return nil
}

// Typed builds the events for typing text followed by Enter, one key every gap starting
// at start.
func Typed(text string, start time.Time, gap time.Duration) []Event {
	events := make([]Event, 0, len(text)+1)
	at := start
	for _, r := range text {
		events = append(events, Event{Kind: KindChar, Rune: r, At: at})
		at = at.Add(gap)
	}
	return append(events, Event{Kind: KindEnter, At: at})
}
