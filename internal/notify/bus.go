// internal/notify/bus.go
package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"scantrack/pkg/logger"
)

const defaultSubscriberBuffer = 64

// Bus fans notifications out to sinks and channel subscribers. Subscribers that fall
// behind lose messages rather than stalling the publisher.
type Bus struct {
	logg *logger.Logger
	now  func() time.Time

	mu      sync.RWMutex
	sinks   []Notifier
	subs    map[int]chan Notification
	nextSub int

	dropped atomic.Int64
}

func NewBus(logg *logger.Logger, sinks ...Notifier) *Bus {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Bus{
		logg:  logg,
		now:   time.Now,
		sinks: sinks,
		subs:  make(map[int]chan Notification),
	}
}

// AddSink registers another downstream notifier.
func (b *Bus) AddSink(sink Notifier) {
	if sink == nil {
		return
	}
	b.mu.Lock()
	b.sinks = append(b.sinks, sink)
	b.mu.Unlock()
}

// Subscribe returns a buffered channel of notifications and a cancel func that closes it.
func (b *Bus) Subscribe(buffer int) (<-chan Notification, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan Notification, buffer)

	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) Notify(ctx context.Context, n Notification) {
	if n.At.IsZero() {
		n.At = b.now()
	}

	b.mu.RLock()
	sinks := append([]Notifier(nil), b.sinks...)
	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
			b.dropped.Add(1)
		}
	}
	b.mu.RUnlock()

	for _, sink := range sinks {
		sink.Notify(ctx, n)
	}

	b.logg.Debug(b.logg.WithField(ctx, "topic", string(n.Topic)), "notification published")
}

// Dropped reports how many subscriber deliveries were skipped because a buffer was full.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}
