package ports

import (
	"context"

	"voxlate/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate       int
	Channels         int
	BlockSize        int
	EchoCancellation bool
	NoiseSuppression bool
	InputFormat      string
	InputDevice      string
}

// CaptureHandle is a live microphone capture graph.
type CaptureHandle interface {
	// Blocks delivers fixed-size mono sample blocks in capture order. It is
	// closed by Stop, or earlier when the device stops delivering audio.
	Blocks() <-chan []float32
	// Err reports why Blocks closed without Stop; nil otherwise.
	Err() error
	// Level reports the current input level in [0,100].
	Level() float64
	// Stop releases every resource of the graph. It is idempotent.
	Stop() error
}

// AudioCapture acquires the microphone and builds a capture graph.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (CaptureHandle, error)
}

// URLProvider returns a signed, short-lived streaming endpoint for a language pair.
type URLProvider interface {
	StreamingURL(ctx context.Context, languages domain.LanguagePair) (string, error)
}

// Connection is an open duplex streaming connection.
type Connection interface {
	SendBinary(payload []byte) error
	SendText(payload []byte) error
	// Messages delivers inbound messages in order and is closed when the connection ends.
	Messages() <-chan domain.InboundMessage
	// CloseStatus describes why the connection ended; valid once Messages is closed.
	CloseStatus() domain.CloseStatus
	// Open reports whether the connection still accepts writes.
	Open() bool
	Close() error
}

// StreamDialer opens streaming connections.
type StreamDialer interface {
	Dial(ctx context.Context, url string) (Connection, error)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	// AlertChanged publishes the current alert; nil clears it.
	AlertChanged(alert *domain.ServiceAlert)
	TranscriptUpdated(snapshot domain.TranscriptSnapshot)
}
