package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu  sync.Mutex
	got []Notification
}

func (r *recordingSink) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
}

func TestBusFansOutToSinksAndSubscribers(t *testing.T) {
	sink := &recordingSink{}
	bus := NewBus(nil, sink)
	ch, cancel := bus.Subscribe(4)
	defer cancel()

	bus.Notify(context.Background(), Notification{Topic: TopicBarcodeScanned, Payload: BarcodeScanned{Barcode: "ORTX1"}})

	require.Len(t, sink.got, 1)
	assert.False(t, sink.got[0].At.IsZero())

	select {
	case n := <-ch:
		assert.Equal(t, TopicBarcodeScanned, n.Topic)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive notification")
	}
}

func TestBusDropsForSlowSubscriber(t *testing.T) {
	bus := NewBus(nil)
	_, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Notify(context.Background(), Notification{Topic: TopicSessionStarted})
	bus.Notify(context.Background(), Notification{Topic: TopicSessionEnded})

	assert.Equal(t, int64(1), bus.Dropped())
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(nil)
	ch, cancel := bus.Subscribe(1)
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	assert.NotPanics(t, func() {
		bus.Notify(context.Background(), Notification{Topic: TopicOverdueAlert})
	})
}

type fakePublisher struct {
	mu      sync.Mutex
	channel string
	payload string
	calls   int
	err     error
	block   chan struct{}
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, payload any) (int64, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channel = channel
	f.payload, _ = payload.(string)
	f.calls++
	return 1, f.err
}

func TestRedisSinkPublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewRedisSink(pub, "scantrack:notifications", nil)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sink.Notify(context.Background(), Notification{Topic: TopicSerialBarcode, At: at, Payload: SerialBarcode{Raw: "NEURX5"}})
	sink.Close()

	assert.Equal(t, "scantrack:notifications", pub.channel)
	var decoded struct {
		Topic   string         `json:"topic"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(pub.payload), &decoded))
	assert.Equal(t, "serial-barcode", decoded.Topic)
	assert.Equal(t, "NEURX5", decoded.Payload["raw"])
}

func TestRedisSinkSwallowsPublishErrors(t *testing.T) {
	sink := NewRedisSink(&fakePublisher{err: errors.New("down")}, "c", nil)
	assert.NotPanics(t, func() {
		sink.Notify(context.Background(), Notification{Topic: TopicSessionEnded})
		sink.Close()
	})
}

func TestRedisSinkDoesNotBlockPublisher(t *testing.T) {
	pub := &fakePublisher{block: make(chan struct{})}
	sink := NewRedisSink(pub, "c", nil)
	bus := NewBus(nil, sink)

	start := time.Now()
	for i := 0; i < defaultRedisQueue+10; i++ {
		bus.Notify(context.Background(), Notification{Topic: TopicBarcodeScanned})
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Positive(t, sink.Dropped())

	close(pub.block)
	sink.Close()
	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, int64(defaultRedisQueue+10)-sink.Dropped(), int64(pub.calls))
}

func TestRedisSinkIgnoresNotifyAfterClose(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewRedisSink(pub, "c", nil)
	sink.Close()
	assert.NotPanics(t, func() {
		sink.Notify(context.Background(), Notification{Topic: TopicSessionEnded})
	})
	assert.Zero(t, pub.calls)
}
