// Package keepalive periodically sends a no-op frame so idle connections stay open.
package keepalive

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the keepalive period used by streaming sessions.
const DefaultInterval = 5 * time.Second

// SendFunc delivers one keepalive frame.
type SendFunc func(frame []byte) error

// Ticker emits a frame on a fixed interval until stopped.
type Ticker struct {
	interval time.Duration
	frame    func() []byte
	send     SendFunc
	logger   zerolog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func New(interval time.Duration, frame func() []byte, send SendFunc, logger zerolog.Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Ticker{
		interval: interval,
		frame:    frame,
		send:     send,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the ticker goroutine. Subsequent calls are ignored.
func (t *Ticker) Start() {
	t.startOnce.Do(func() {
		go t.run()
	})
}

// Stop halts the ticker and waits for an in-flight send to return.
// It is safe to call on a ticker that was never started.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
	started := true
	t.startOnce.Do(func() {
		started = false
		close(t.done)
	})
	if started {
		<-t.done
	}
}

func (t *Ticker) run() {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			select {
			case <-t.stop:
				return
			default:
			}
			if err := t.send(t.frame()); err != nil {
				t.logger.Warn().Err(err).Msg("keepalive send failed")
				continue
			}
			t.logger.Debug().Msg("keepalive sent")
		}
	}
}
