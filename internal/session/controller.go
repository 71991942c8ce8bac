// internal/session/controller.go
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"scantrack/internal/notify"
)

// Timeout is how long an armed session survives without an accepted scan.
const Timeout = 10 * time.Second

// DefaultTrigger arms a session when scanned.
const DefaultTrigger = "SCAN_START"

// State of the scan session.
type State int

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// Snapshot is a copy of the session for reporting.
type Snapshot struct {
	State      string     `json:"state"`
	SessionID  string     `json:"session_id,omitempty"`
	ArmedSince *time.Time `json:"armed_since,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Trigger    string     `json:"trigger"`
}

type transitionObserver interface {
	IncSessionTransition(to string)
}

// Controller is the Idle/Armed state machine shared by the input goroutines and the
// control API. Notifications go out after the lock is released.
type Controller struct {
	mu         sync.Mutex
	state      State
	armedSince time.Time
	sessionID  string
	trigger    string

	notifier notify.Notifier
	observer transitionObserver
	now      func() time.Time
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithObserver(o transitionObserver) Option {
	return func(c *Controller) { c.observer = o }
}

func NewController(trigger string, notifier notify.Notifier, opts ...Option) *Controller {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	c := &Controller{
		state:    Idle,
		trigger:  normalizeTrigger(trigger),
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsTrigger reports whether token equals the configured trigger, ignoring case.
func (c *Controller) IsTrigger(token string) bool {
	c.mu.Lock()
	trigger := c.trigger
	c.mu.Unlock()
	return strings.EqualFold(strings.TrimSpace(token), trigger)
}

// SetTrigger swaps the trigger token. The timeout is not configurable.
func (c *Controller) SetTrigger(trigger string) {
	c.mu.Lock()
	c.trigger = normalizeTrigger(trigger)
	c.mu.Unlock()
}

func (c *Controller) Trigger() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trigger
}

// Arm moves Idle to Armed, or refreshes an already armed session.
func (c *Controller) Arm(ctx context.Context, at time.Time) {
	c.arm(ctx, at, "trigger")
}

// StartManual forces the session armed from the control surface.
func (c *Controller) StartManual(ctx context.Context) {
	c.arm(ctx, c.now(), "manual")
}

func (c *Controller) arm(ctx context.Context, at time.Time, reason string) {
	c.mu.Lock()
	started := c.state == Idle
	if started {
		c.state = Armed
		c.sessionID = uuid.NewString()
	}
	c.armedSince = at
	id := c.sessionID
	c.mu.Unlock()

	if started {
		c.publish(ctx, notify.TopicSessionStarted, Armed, id, reason, at)
	}
}

// Touch slides the timeout window of an armed session. Idle sessions are unaffected.
func (c *Controller) Touch(at time.Time) {
	c.mu.Lock()
	if c.state == Armed && at.After(c.armedSince) {
		c.armedSince = at
	}
	c.mu.Unlock()
}

// Expire disarms the session when more than Timeout has passed since it was armed or last
// touched. It reports whether a transition happened.
func (c *Controller) Expire(ctx context.Context, at time.Time) bool {
	c.mu.Lock()
	if c.state != Armed || at.Sub(c.armedSince) <= Timeout {
		c.mu.Unlock()
		return false
	}
	id := c.disarmLocked()
	c.mu.Unlock()

	c.publish(ctx, notify.TopicSessionEnded, Idle, id, "timeout", at)
	return true
}

// Stop forces the session idle.
func (c *Controller) Stop(ctx context.Context) {
	c.mu.Lock()
	if c.state != Armed {
		c.mu.Unlock()
		return
	}
	id := c.disarmLocked()
	c.mu.Unlock()

	c.publish(ctx, notify.TopicSessionEnded, Idle, id, "manual", c.now())
}

func (c *Controller) disarmLocked() string {
	id := c.sessionID
	c.state = Idle
	c.sessionID = ""
	c.armedSince = time.Time{}
	return id
}

func (c *Controller) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Armed
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{State: c.state.String(), Trigger: c.trigger}
	if c.state == Armed {
		snap.SessionID = c.sessionID
		since, expires := c.armedSince, c.armedSince.Add(Timeout)
		snap.ArmedSince = &since
		snap.ExpiresAt = &expires
	}
	return snap
}

func (c *Controller) publish(ctx context.Context, topic notify.Topic, to State, id, reason string, at time.Time) {
	if c.observer != nil {
		c.observer.IncSessionTransition(to.String())
	}
	c.notifier.Notify(ctx, notify.Notification{
		Topic:   topic,
		At:      at,
		Payload: notify.SessionChanged{SessionID: id, Reason: reason},
	})
}

func normalizeTrigger(trigger string) string {
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		return DefaultTrigger
	}
	return trigger
}
