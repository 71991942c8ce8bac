// internal/serial/port.go
package serial

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// readTimeout bounds a single Read so the poll loop never blocks on an idle line.
const readTimeout = 10 * time.Millisecond

// Port is the part of an open serial handle the reader uses.
type Port interface {
	io.ReadCloser
}

// Opener opens a named port at the given baud rate.
type Opener func(name string, baud int) (Port, error)

// Lister enumerates available port names.
type Lister func() ([]string, error)

// OpenPort opens a real device with 8N1 framing and a short read timeout.
func OpenPort(name string, baud int) (Port, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return port, nil
}

// ListPorts returns the serial ports the OS reports.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
