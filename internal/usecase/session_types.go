package usecase

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"voxlate/internal/domain"
	"voxlate/internal/errorsx"
	"voxlate/internal/keepalive"
	"voxlate/internal/observability"
	"voxlate/internal/ports"
)

// sessionEnder identifies the goroutine ending a session so teardown never
// waits on the goroutine it runs in.
type sessionEnder int

const (
	endedByController sessionEnder = iota
	endedByConsumer
	endedByPump
)

// activeSession owns every resource of one translation session. Resources
// are attached under mu and only while the session is not closing, so
// teardown always sees everything that was acquired.
type activeSession struct {
	id        string
	languages domain.LanguagePair
	logger    zerolog.Logger
	metrics   *observability.SessionMetrics

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     domain.SessionState
	closing   bool
	conn      ports.Connection
	capture   ports.CaptureHandle
	keepalive *keepalive.Ticker

	// sendMu serializes outbound frames against the teardown cutoff.
	sendMu   sync.Mutex
	sendable bool

	consumerDone chan struct{}
	pumpDone     chan struct{}
	teardownOnce sync.Once
	done         chan struct{}
}

func newActiveSession(ctx context.Context, id string, languages domain.LanguagePair, logger zerolog.Logger) *activeSession {
	sessionCtx, cancel := context.WithCancel(ctx)
	return &activeSession{
		id:           id,
		languages:    languages,
		logger:       logger,
		metrics:      observability.StartSessionMetrics(),
		ctx:          sessionCtx,
		cancel:       cancel,
		state:        domain.SessionStateConnecting,
		consumerDone: make(chan struct{}),
		pumpDone:     make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (s *activeSession) setState(state domain.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *activeSession) getState() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *activeSession) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// beginClosing marks the session as closing. It reports false if teardown
// already began.
func (s *activeSession) beginClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.closing = true
	s.cancel()
	return true
}

// attachConnection takes ownership of conn and starts its consumer. It
// reports false if the session is closing; the caller then releases conn.
func (s *activeSession) attachConnection(conn ports.Connection, consume func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conn = conn
	s.state = domain.SessionStateAudioInit
	go func() {
		defer close(s.consumerDone)
		consume()
	}()
	return true
}

// attachCapture takes ownership of handle and starts the block pump.
func (s *activeSession) attachCapture(handle ports.CaptureHandle, pump func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.capture = handle
	go func() {
		defer close(s.pumpDone)
		pump()
	}()
	return true
}

// activate enters Active, opens the send gate and starts the keepalive ticker.
func (s *activeSession) activate(ticker *keepalive.Ticker) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.state = domain.SessionStateActive
	s.sendMu.Lock()
	s.sendable = true
	s.sendMu.Unlock()
	s.keepalive = ticker
	ticker.Start()
	return true
}

// send writes one frame if the session is Active. It reports whether the
// frame was handed to the connection.
func (s *activeSession) send(payload []byte) (bool, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if !s.sendable || s.conn == nil || !s.conn.Open() {
		return false, nil
	}
	if err := s.conn.SendBinary(payload); err != nil {
		return true, errorsx.Wrap(err, errorsx.ReasonSend)
	}
	return true, nil
}

func (s *activeSession) level() float64 {
	s.mu.Lock()
	capture := s.capture
	s.mu.Unlock()
	if capture == nil {
		return 0
	}
	return capture.Level()
}

// teardown releases resources in order: keepalive, end-of-stream,
// connection, capture. Every step runs regardless of earlier failures.
func (s *activeSession) teardown(endOfStream []byte, by sessionEnder) {
	s.teardownOnce.Do(func() {
		s.cancel()

		s.mu.Lock()
		ticker := s.keepalive
		conn := s.conn
		capture := s.capture
		s.mu.Unlock()

		if ticker != nil {
			ticker.Stop()
		}

		s.sendMu.Lock()
		s.sendable = false
		s.sendMu.Unlock()

		if conn != nil {
			if conn.Open() {
				if err := conn.SendText(endOfStream); err != nil {
					err = errorsx.Wrap(err, errorsx.ReasonSend)
					s.logger.Warn().Err(err).Msg("failed to send end-of-stream")
					observability.RecordSendFailure("end")
				}
			}
			if err := conn.Close(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to close connection")
			}
		}

		if capture != nil {
			if err := capture.Stop(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to stop capture")
			}
			if by != endedByPump {
				<-s.pumpDone
			}
		}

		if conn != nil && by != endedByConsumer {
			<-s.consumerDone
		}

		s.metrics.End()
	})
}
