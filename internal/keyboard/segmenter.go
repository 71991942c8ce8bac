// internal/keyboard/segmenter.go
package keyboard

import (
	"context"
	"strings"
	"time"

	"scantrack/internal/intake"
	"scantrack/pkg/logger"
)

const (
	// ReclaimAfter discards a partial buffer when typing pauses this long.
	ReclaimAfter = 1000 * time.Millisecond
	// BurstGap is the maximum inter-key gap of scanner-speed input.
	BurstGap = 100 * time.Millisecond
	// BurstResetGap ends a burst.
	BurstResetGap = 500 * time.Millisecond

	minBurstLen = 2
)

type sessionClock interface {
	Expire(ctx context.Context, at time.Time) bool
}

type tokenSink interface {
	Accept(ctx context.Context, tok intake.Token) (intake.Outcome, error)
}

// Segmenter turns the key stream into barcode tokens. It is driven by a single goroutine
// and keeps its buffer state unlocked.
type Segmenter struct {
	session sessionClock
	sink    tokenSink
	logg    *logger.Logger

	buf      []rune
	lastChar time.Time
	burst    bool
}

func NewSegmenter(session sessionClock, sink tokenSink, logg *logger.Logger) *Segmenter {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Segmenter{session: session, sink: sink, logg: logg}
}

// Run feeds events from src into the segmenter until the source stops.
func (s *Segmenter) Run(ctx context.Context, src Source) error {
	return src.Listen(ctx, func(ev Event) {
		s.Handle(ctx, ev)
	})
}

// Handle processes one key event.
func (s *Segmenter) Handle(ctx context.Context, ev Event) {
	if len(s.buf) > 0 && ev.At.Sub(s.lastChar) > ReclaimAfter {
		s.buf = s.buf[:0]
		s.burst = false
	}

	s.session.Expire(ctx, ev.At)

	switch ev.Kind {
	case KindEnter:
		s.terminate(ctx, ev.At)
	case KindChar:
		gap := ev.At.Sub(s.lastChar)
		if gap < BurstGap && len(s.buf) > minBurstLen {
			s.burst = true
		}
		s.buf = append(s.buf, ev.Rune)
		s.lastChar = ev.At
		if gap > BurstResetGap {
			s.burst = false
		}
	}
}

func (s *Segmenter) terminate(ctx context.Context, at time.Time) {
	candidate := strings.TrimSpace(string(s.buf))
	s.buf = s.buf[:0]
	if candidate == "" {
		return
	}
	burst := s.burst
	s.burst = false

	_, err := s.sink.Accept(ctx, intake.Token{
		Value:  candidate,
		Source: intake.SourceKeyboard,
		Burst:  burst,
		At:     at,
	})
	if err != nil {
		s.logg.Error(s.logg.WithBarcode(ctx, candidate), "keyboard scan failed", err)
	}
}

// Pending returns the buffered characters. Used by diagnostics and tests.
func (s *Segmenter) Pending() string {
	return string(s.buf)
}

// Burst reports the current burst flag.
func (s *Segmenter) Burst() bool {
	return s.burst
}
