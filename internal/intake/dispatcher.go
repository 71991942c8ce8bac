// internal/intake/dispatcher.go
package intake

import (
	"context"
	"errors"
	"strings"
	"time"

	"scantrack/internal/ledger"
	"scantrack/internal/notify"
	"scantrack/pkg/logger"
)

// Source identifies where a token came from.
type Source string

const (
	SourceKeyboard Source = "keyboard"
	SourceSerial   Source = "serial"
	SourceAPI      Source = "api"
)

// Token is one segmented barcode candidate.
type Token struct {
	Value  string
	Source Source
	// Burst is set by the keyboard segmenter when the characters arrived at scanner speed.
	Burst bool
	At    time.Time
}

// Disposition says what happened to a token.
type Disposition string

const (
	Ignored  Disposition = "ignored"
	Armed    Disposition = "armed"
	Dropped  Disposition = "dropped"
	Recorded Disposition = "recorded"
)

// Outcome reports the handling of one token.
type Outcome struct {
	Disposition Disposition
	Reason      string
	Result      ledger.Result
}

type sessionGate interface {
	IsTrigger(token string) bool
	Arm(ctx context.Context, at time.Time)
	Armed() bool
	Touch(at time.Time)
}

type scanRecorder interface {
	ProcessScan(ctx context.Context, barcode string) (ledger.Result, error)
}

type intakeObserver interface {
	IncScan(source, action string)
	IncDropped(source, reason string)
}

// Dispatcher is the single acceptance policy for every input path. The trigger token arms
// the session; keyboard tokens are only accepted inside a session or a scanner-speed burst;
// tokens with no department are dropped before the ledger records anything.
type Dispatcher struct {
	session  sessionGate
	ledger   scanRecorder
	notifier notify.Notifier
	observer intakeObserver
	logg     *logger.Logger
	now      func() time.Time
}

type Params struct {
	Session  sessionGate
	Ledger   scanRecorder
	Notifier notify.Notifier
	Observer intakeObserver
	Logger   *logger.Logger
	Clock    func() time.Time
}

func NewDispatcher(p Params) *Dispatcher {
	d := &Dispatcher{
		session:  p.Session,
		ledger:   p.Ledger,
		notifier: p.Notifier,
		observer: p.Observer,
		logg:     p.Logger,
		now:      p.Clock,
	}
	if d.notifier == nil {
		d.notifier = notify.Nop{}
	}
	if d.logg == nil {
		d.logg = logger.Nop()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Accept applies the policy to one token. Hardware tokens that are gated or match no
// department come back as Dropped with a nil error; API tokens also return
// ledger.ErrUnknownDepartment so the caller can report it.
func (d *Dispatcher) Accept(ctx context.Context, tok Token) (Outcome, error) {
	value := strings.TrimSpace(tok.Value)
	if value == "" {
		return Outcome{Disposition: Ignored}, nil
	}
	at := tok.At
	if at.IsZero() {
		at = d.now()
	}
	ctx = d.logg.WithSource(d.logg.WithBarcode(ctx, value), string(tok.Source))

	if d.session.IsTrigger(value) {
		d.session.Arm(ctx, at)
		d.logg.Debug(ctx, "scan session armed by trigger")
		return Outcome{Disposition: Armed}, nil
	}

	if tok.Source == SourceKeyboard && !tok.Burst && !d.session.Armed() {
		return d.drop(ctx, tok.Source, "outside_session"), nil
	}

	res, err := d.ledger.ProcessScan(ctx, value)
	if errors.Is(err, ledger.ErrUnknownDepartment) {
		out := d.drop(ctx, tok.Source, "unknown_department")
		if tok.Source == SourceAPI {
			return out, err
		}
		return out, nil
	}
	if err != nil {
		d.logg.Error(ctx, "failed to record scan", err)
		return Outcome{}, err
	}

	if d.observer != nil {
		d.observer.IncScan(string(tok.Source), string(res.Action))
	}
	d.notifier.Notify(ctx, notify.Notification{
		Topic: notify.TopicBarcodeScanned,
		At:    at,
		Payload: notify.BarcodeScanned{
			Barcode:    res.Barcode,
			Action:     string(res.Action),
			Department: res.Department,
			Source:     string(tok.Source),
		},
	})
	if d.session.Armed() {
		d.session.Touch(at)
	}

	return Outcome{Disposition: Recorded, Result: res}, nil
}

func (d *Dispatcher) drop(ctx context.Context, source Source, reason string) Outcome {
	if d.observer != nil {
		d.observer.IncDropped(string(source), reason)
	}
	d.logg.Debug(d.logg.WithField(ctx, "reason", reason), "token dropped")
	return Outcome{Disposition: Dropped, Reason: reason}
}
