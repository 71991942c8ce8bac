// internal/keyboard/terminal.go
package keyboard

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode"

	"golang.org/x/term"
)

// ErrInterrupted is returned by TerminalSource.Listen when Ctrl-C is typed. Raw mode turns
// off signal generation, so the caller has to treat it as the interrupt.
var ErrInterrupted = errors.New("keyboard capture interrupted")

// TerminalSource reads key presses from a terminal in raw mode. HID scanners in keyboard
// emulation type into the focused terminal, so this is the ambient key stream on a
// workstation that runs the daemon in the foreground.
type TerminalSource struct {
	In  *os.File
	now func() time.Time
}

func NewTerminalSource(in *os.File) *TerminalSource {
	if in == nil {
		in = os.Stdin
	}
	return &TerminalSource{In: in, now: time.Now}
}

func (t *TerminalSource) Listen(ctx context.Context, handle func(Event)) error {
	fd := int(t.In.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("keyboard source %s is not a terminal", t.In.Name())
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enable raw mode: %w", err)
	}
	defer func() { _ = term.Restore(fd, state) }()

	events := make(chan Event, 64)
	readErr := make(chan error, 1)
	// The reader cannot be unblocked from ReadRune. After ctx is canceled it stays parked
	// until the next key press or process exit, which only happens at shutdown.
	go func() {
		readErr <- readKeys(bufio.NewReader(t.In), t.now, events)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			for {
				select {
				case ev := <-events:
					handle(ev)
				default:
					if errors.Is(err, io.EOF) {
						return nil
					}
					return err
				}
			}
		case ev := <-events:
			handle(ev)
		}
	}
}

const ctrlC = 0x03

func readKeys(r *bufio.Reader, now func() time.Time, out chan<- Event) error {
	for {
		ch, _, err := r.ReadRune()
		if err != nil {
			return err
		}
		if ch == ctrlC {
			return ErrInterrupted
		}
		out <- classify(ch, now())
	}
}

func classify(ch rune, at time.Time) Event {
	switch {
	case ch == '\r' || ch == '\n':
		return Event{Kind: KindEnter, At: at}
	case unicode.IsPrint(ch):
		return Event{Kind: KindChar, Rune: ch, At: at}
	default:
		return Event{Kind: KindOther, Rune: ch, At: at}
	}
}

// CRLFWriter translates "\n" to "\r\n". Raw mode also disables output post-processing, so
// log lines written to the same terminal need the carriage return spelled out.
func CRLFWriter(w io.Writer) io.Writer {
	return crlfWriter{w: w}
}

type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
