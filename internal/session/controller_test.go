package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scantrack/internal/notify"
)

type recorder struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (r *recorder) Notify(_ context.Context, n notify.Notification) {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
}

func (r *recorder) topics() []notify.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Topic, 0, len(r.got))
	for _, n := range r.got {
		out = append(out, n.Topic)
	}
	return out
}

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func TestArmNotifiesOnceAndRefreshes(t *testing.T) {
	rec := &recorder{}
	c := NewController("", rec)
	ctx := context.Background()

	c.Arm(ctx, t0)
	c.Arm(ctx, t0.Add(5*time.Second))

	assert.True(t, c.Armed())
	assert.Equal(t, []notify.Topic{notify.TopicSessionStarted}, rec.topics())
	require.NotNil(t, c.Snapshot().ArmedSince)
	assert.Equal(t, t0.Add(5*time.Second), *c.Snapshot().ArmedSince)
}

func TestExpireIsStrictlyAfterTimeout(t *testing.T) {
	rec := &recorder{}
	c := NewController("SCAN_START", rec)
	ctx := context.Background()

	c.Arm(ctx, t0)
	assert.False(t, c.Expire(ctx, t0.Add(Timeout)))
	assert.True(t, c.Armed())

	assert.True(t, c.Expire(ctx, t0.Add(Timeout+time.Millisecond)))
	assert.False(t, c.Armed())
	assert.Equal(t, []notify.Topic{notify.TopicSessionStarted, notify.TopicSessionEnded}, rec.topics())

	assert.False(t, c.Expire(ctx, t0.Add(time.Hour)))
}

func TestTouchSlidesWindow(t *testing.T) {
	c := NewController("SCAN_START", nil)
	ctx := context.Background()

	c.Arm(ctx, t0)
	c.Touch(t0.Add(8 * time.Second))
	assert.False(t, c.Expire(ctx, t0.Add(15*time.Second)))
	assert.True(t, c.Expire(ctx, t0.Add(18*time.Second+time.Nanosecond)))
}

func TestTouchIgnoredWhenIdle(t *testing.T) {
	c := NewController("SCAN_START", nil)
	c.Touch(t0)
	assert.False(t, c.Armed())
}

func TestManualStartStop(t *testing.T) {
	rec := &recorder{}
	c := NewController("SCAN_START", rec, WithClock(func() time.Time { return t0 }))
	ctx := context.Background()

	c.StartManual(ctx)
	snap := c.Snapshot()
	assert.Equal(t, "armed", snap.State)
	assert.NotEmpty(t, snap.SessionID)
	require.NotNil(t, snap.ExpiresAt)
	assert.Equal(t, t0.Add(Timeout), *snap.ExpiresAt)

	c.Stop(ctx)
	c.Stop(ctx)
	assert.Equal(t, "idle", c.Snapshot().State)
	assert.Equal(t, []notify.Topic{notify.TopicSessionStarted, notify.TopicSessionEnded}, rec.topics())
}

func TestIsTriggerCaseInsensitiveAndHotSwappable(t *testing.T) {
	c := NewController("SCAN_START", nil)
	assert.True(t, c.IsTrigger("scan_start"))
	assert.True(t, c.IsTrigger(" SCAN_START "))
	assert.False(t, c.IsTrigger("SCAN"))

	c.SetTrigger("BEGIN")
	assert.False(t, c.IsTrigger("SCAN_START"))
	assert.True(t, c.IsTrigger("begin"))

	c.SetTrigger("")
	assert.Equal(t, DefaultTrigger, c.Trigger())
}

func TestConcurrentAccess(t *testing.T) {
	c := NewController("SCAN_START", nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				at := t0.Add(time.Duration(j) * time.Second)
				switch (i + j) % 4 {
				case 0:
					c.Arm(ctx, at)
				case 1:
					c.Touch(at)
				case 2:
					c.Expire(ctx, at)
				default:
					c.Stop(ctx)
				}
			}
		}(i)
	}
	wg.Wait()

	snap := c.Snapshot()
	require.Contains(t, []string{"armed", "idle"}, snap.State)
}

func TestHandlerStartStop(t *testing.T) {
	h := NewHandler(NewController("SCAN_START", nil))

	w := httptest.NewRecorder()
	h.HandleStart(w, httptest.NewRequest(http.MethodPost, "/session/start", nil))
	assert.Contains(t, w.Body.String(), `"state":"armed"`)

	w = httptest.NewRecorder()
	h.HandleStop(w, httptest.NewRequest(http.MethodPost, "/session/stop", nil))
	assert.Contains(t, w.Body.String(), `"state":"idle"`)
}
