// internal/notify/domain.go
package notify

import (
	"context"
	"time"
)

// Topic names the notification kinds the scanner core emits.
type Topic string

const (
	TopicSessionStarted Topic = "scan-session-started"
	TopicSessionEnded   Topic = "scan-session-ended"
	TopicBarcodeScanned Topic = "barcode-scanned"
	TopicOverdueAlert   Topic = "overdue-alert"
	TopicSerialBarcode  Topic = "serial-barcode"
)

// Notification is one fire-and-forget message.
type Notification struct {
	Topic   Topic     `json:"topic"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// Notifier publishes notifications. Implementations must not block the caller for long and
// must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// BarcodeScanned is the payload of TopicBarcodeScanned.
type BarcodeScanned struct {
	Barcode    string `json:"barcode"`
	Action     string `json:"action"`
	Department string `json:"department"`
	Source     string `json:"source,omitempty"`
}

// SerialBarcode is the payload of TopicSerialBarcode.
type SerialBarcode struct {
	Raw string `json:"raw"`
}

// SessionChanged is the payload of the session topics.
type SessionChanged struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(context.Context, Notification) {}
