// internal/serial/reader.go
package serial

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"scantrack/internal/intake"
	"scantrack/internal/notify"
	"scantrack/pkg/logger"
)

const (
	// PollInterval is the sleep between reads.
	PollInterval = 50 * time.Millisecond
	// BufferSize caps how many bytes one read can turn into a token.
	BufferSize = 256
)

var (
	ErrInvalidPort = errors.New("port name is required")
	ErrInvalidBaud = errors.New("baud rate must be positive")
)

type tokenSink interface {
	Accept(ctx context.Context, tok intake.Token) (intake.Outcome, error)
}

type byteCounter interface {
	AddSerialBytes(n int)
}

// Status describes the current connection.
type Status struct {
	Open       bool       `json:"open"`
	Port       string     `json:"port,omitempty"`
	Baud       int        `json:"baud,omitempty"`
	OpenedAt   *time.Time `json:"opened_at,omitempty"`
	Generation uint64     `json:"generation"`
}

type connection struct {
	port     Port
	name     string
	baud     int
	openedAt time.Time
	running  atomic.Bool
	done     chan struct{}
}

// Params wires a Reader. Opener and Lister default to the real device functions.
type Params struct {
	Sink         tokenSink
	Notifier     notify.Notifier
	Counter      byteCounter
	Logger       *logger.Logger
	Opener       Opener
	Lister       Lister
	PollInterval time.Duration
	Clock        func() time.Time
}

// Reader owns at most one open serial connection and its poll goroutine. Every chunk read
// from the line is treated as one complete barcode.
type Reader struct {
	mu         sync.Mutex
	conn       *connection
	generation uint64

	sink     tokenSink
	notifier notify.Notifier
	counter  byteCounter
	logg     *logger.Logger
	open     Opener
	list     Lister
	poll     time.Duration
	now      func() time.Time
}

func NewReader(p Params) *Reader {
	r := &Reader{
		sink:     p.Sink,
		notifier: p.Notifier,
		counter:  p.Counter,
		logg:     p.Logger,
		open:     p.Opener,
		list:     p.Lister,
		poll:     p.PollInterval,
		now:      p.Clock,
	}
	if r.notifier == nil {
		r.notifier = notify.Nop{}
	}
	if r.logg == nil {
		r.logg = logger.Nop()
	}
	if r.open == nil {
		r.open = OpenPort
	}
	if r.list == nil {
		r.list = ListPorts
	}
	if r.poll <= 0 {
		r.poll = PollInterval
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Open connects to name at baud and starts polling it. A connection to another port is
// replaced only after the new port opened successfully; on failure it keeps running
// untouched. Reopening the current port closes it first because the driver holds ports
// exclusively.
func (r *Reader) Open(ctx context.Context, name string, baud int) (Status, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Status{}, ErrInvalidPort
	}
	if baud <= 0 {
		return Status{}, ErrInvalidBaud
	}

	r.mu.Lock()
	var same *connection
	if r.conn != nil && r.conn.name == name {
		same = r.conn
		r.conn = nil
	}
	r.mu.Unlock()
	if err := r.stop(same); err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "port", name), err.Error())
	}

	port, err := r.open(name, baud)
	if err != nil {
		return Status{}, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}

	conn := &connection{
		port:     port,
		name:     name,
		baud:     baud,
		openedAt: r.now(),
		done:     make(chan struct{}),
	}
	conn.running.Store(true)

	r.mu.Lock()
	prev := r.conn
	r.conn = conn
	r.generation++
	status := r.statusLocked()
	r.mu.Unlock()

	r.stop(prev)

	loopCtx := r.logg.WithFields(context.WithoutCancel(ctx), map[string]any{
		"port": name,
		"baud": baud,
	})
	go r.loop(loopCtx, conn)
	r.logg.Info(loopCtx, "serial port opened")
	return status, nil
}

// Close stops polling and releases the port. Closing a closed reader is a no-op.
func (r *Reader) Close() error {
	r.mu.Lock()
	prev := r.conn
	r.conn = nil
	r.mu.Unlock()
	return r.stop(prev)
}

// Status reports the current connection.
func (r *Reader) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked()
}

// Ports lists the serial ports available on this machine.
func (r *Reader) Ports() ([]string, error) {
	ports, err := r.list()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	if ports == nil {
		ports = []string{}
	}
	return ports, nil
}

func (r *Reader) statusLocked() Status {
	st := Status{Generation: r.generation}
	if r.conn == nil {
		return st
	}
	openedAt := r.conn.openedAt
	st.Open = true
	st.Port = r.conn.name
	st.Baud = r.conn.baud
	st.OpenedAt = &openedAt
	return st
}

// stop clears the running flag, closes the handle and waits for the loop to exit.
func (r *Reader) stop(c *connection) error {
	if c == nil {
		return nil
	}
	c.running.Store(false)
	err := c.port.Close()
	<-c.done
	if err != nil {
		return fmt.Errorf("close serial port %s: %w", c.name, err)
	}
	return nil
}

func (r *Reader) loop(ctx context.Context, c *connection) {
	defer close(c.done)

	buf := make([]byte, BufferSize)
	failing := false
	for c.running.Load() {
		n, err := c.port.Read(buf)
		if n > 0 {
			r.emit(ctx, buf[:n])
		}
		switch {
		case err != nil && c.running.Load() && !failing:
			r.logg.Error(ctx, "serial read failed", err)
			failing = true
		case err == nil:
			failing = false
		}
		time.Sleep(r.poll)
	}
	r.logg.Debug(ctx, "serial poll loop stopped")
}

// Decode turns one raw chunk into a barcode: invalid UTF-8 sequences become U+FFFD and
// surrounding whitespace is trimmed.
func Decode(chunk []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(chunk), "\uFFFD"))
}

func (r *Reader) emit(ctx context.Context, chunk []byte) {
	if r.counter != nil {
		r.counter.AddSerialBytes(len(chunk))
	}
	raw := Decode(chunk)
	if raw == "" {
		return
	}

	at := r.now()
	r.notifier.Notify(ctx, notify.Notification{
		Topic:   notify.TopicSerialBarcode,
		At:      at,
		Payload: notify.SerialBarcode{Raw: raw},
	})
	if r.sink == nil {
		return
	}
	if _, err := r.sink.Accept(ctx, intake.Token{Value: raw, Source: intake.SourceSerial, At: at}); err != nil {
		r.logg.Error(r.logg.WithBarcode(ctx, raw), "serial scan not recorded", err)
	}
}
