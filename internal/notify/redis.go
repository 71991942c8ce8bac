// internal/notify/redis.go
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"scantrack/pkg/logger"
)

const (
	publishTimeout    = 2 * time.Second
	defaultRedisQueue  = 256
)

type publisher interface {
	Publish(ctx context.Context, channel string, payload any) (int64, error)
}

type queued struct {
	ctx context.Context
	n   Notification
}

// RedisSink relays notifications as JSON on a Redis pub/sub channel so other
// workstations and dashboards can follow the scanner. Notify only enqueues; a single
// goroutine publishes, so an unreachable Redis never stalls the input paths. When the
// queue is full the notification is dropped.
type RedisSink struct {
	client  publisher
	channel string
	logg    *logger.Logger

	queue     chan queued
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	dropped   atomic.Int64
}

func NewRedisSink(client publisher, channel string, logg *logger.Logger) *RedisSink {
	if logg == nil {
		logg = logger.Nop()
	}
	s := &RedisSink{
		client:  client,
		channel: channel,
		logg:    logg,
		queue:   make(chan queued, defaultRedisQueue),
		done:    make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *RedisSink) Notify(ctx context.Context, n Notification) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- queued{ctx: context.WithoutCancel(ctx), n: n}:
	default:
		s.dropped.Add(1)
		s.logg.Warn(s.logg.WithField(ctx, "topic", string(n.Topic)), "redis relay queue full, notification dropped")
	}
}

// Dropped reports how many notifications were discarded because the queue was full.
func (s *RedisSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops accepting notifications and waits until the queued ones are published.
func (s *RedisSink) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()
	})
	<-s.done
}

func (s *RedisSink) drain() {
	defer close(s.done)
	for q := range s.queue {
		s.publish(q.ctx, q.n)
	}
}

func (s *RedisSink) publish(ctx context.Context, n Notification) {
	body, err := json.Marshal(n)
	if err != nil {
		s.logg.Error(ctx, "encode notification", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if _, err := s.client.Publish(pubCtx, s.channel, string(body)); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "topic", string(n.Topic)), "redis publish failed", err)
	}
}
