package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voxlate/internal/domain"
	"voxlate/internal/keepalive"
	"voxlate/internal/observability"
	"voxlate/internal/ports"
	"voxlate/internal/protocol"
	"voxlate/internal/transcript"
)

var (
	ErrNoActiveSession    = errors.New("no active translation session")
	ErrStartInterrupted   = errors.New("session start was interrupted")
	ErrControllerShutdown = errors.New("session controller is shut down")
	ErrEmptyTranscript    = errors.New("transcript is empty")
)

const defaultToggleDebounce = 300 * time.Millisecond

// Config controls session behavior.
type Config struct {
	Audio             ports.AudioConfig
	KeepaliveInterval time.Duration
	ToggleDebounce    time.Duration
}

// SessionController runs the translation session state machine:
// idle -> connecting -> audio_init -> active -> closing -> idle.
type SessionController struct {
	capture   ports.AudioCapture
	urls      ports.URLProvider
	dialer    ports.StreamDialer
	clipboard ports.Clipboard
	events    ports.EventSink
	logger    zerolog.Logger
	cfg       Config

	transcript *transcript.Model
	now        func() time.Time
	newID      func() string

	// startMu serializes start sequences; Stop never takes it so it can
	// interrupt a start in flight.
	startMu sync.Mutex

	mu        sync.Mutex
	current   *activeSession
	alert     *domain.ServiceAlert
	languages domain.LanguagePair
	shutdown  bool

	debounced func(func())
}

func NewSessionController(
	capture ports.AudioCapture,
	urls ports.URLProvider,
	dialer ports.StreamDialer,
	clipboard ports.Clipboard,
	events ports.EventSink,
	cfg Config,
	logger zerolog.Logger,
) *SessionController {
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.BlockSize <= 0 {
		cfg.Audio.BlockSize = 4096
	}
	if cfg.KeepaliveInterval <= 0 {
		cfg.KeepaliveInterval = keepalive.DefaultInterval
	}
	if cfg.ToggleDebounce <= 0 {
		cfg.ToggleDebounce = defaultToggleDebounce
	}
	return &SessionController{
		capture:    capture,
		urls:       urls,
		dialer:     dialer,
		clipboard:  clipboard,
		events:     events,
		logger:     observability.Component(logger, "session"),
		cfg:        cfg,
		transcript: transcript.NewModel(),
		now:        time.Now,
		newID:      uuid.NewString,
		debounced:  debounce.New(cfg.ToggleDebounce),
	}
}

// Start tears down any previous session and runs the start sequence for a
// new one. It returns once the session is active or has failed.
func (c *SessionController) Start(ctx context.Context, languages domain.LanguagePair) error {
	restarted := c.endCurrent(domain.SessionReasonRestarted)

	c.startMu.Lock()
	defer c.startMu.Unlock()

	if c.endCurrent(domain.SessionReasonRestarted) {
		restarted = true
	}

	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return ErrControllerShutdown
	}
	id := observability.NewSessionID()
	logger := c.logger.With().
		Str("session_id", id).
		Str("source", languages.Source).
		Str("target", languages.Target).
		Logger()
	s := newActiveSession(ctx, id, languages, logger)
	c.current = s
	c.languages = languages
	c.mu.Unlock()

	c.setAlert(nil)
	c.transcript.ClearCurrent()
	c.publishTranscript()

	reason := domain.SessionReasonStarted
	if restarted {
		reason = domain.SessionReasonRestarted
	}
	s.logger.Info().Msg("starting translation session")
	c.events.SessionStateChanged(domain.SessionStateConnecting, reason)

	url, err := c.urls.StreamingURL(s.ctx, languages)
	observability.RecordURLRequest(err == nil)
	if err != nil {
		return c.abortStart(s, err, providerAlert(err), domain.SessionReasonProviderFailed)
	}

	conn, err := c.dialer.Dial(s.ctx, url)
	if err != nil {
		return c.abortStart(s, err, connectionAlert(), domain.SessionReasonConnectionFailed)
	}
	if !s.attachConnection(conn, func() { c.consumeMessages(s, conn) }) {
		if closeErr := conn.Close(); closeErr != nil {
			s.logger.Warn().Err(closeErr).Msg("failed to close connection acquired after stop")
		}
		return ErrStartInterrupted
	}
	c.events.SessionStateChanged(domain.SessionStateAudioInit, domain.SessionReasonConnectionOpen)

	handle, err := c.capture.Start(s.ctx, c.cfg.Audio)
	if err != nil {
		return c.abortStart(s, err, captureAlert(err), domain.SessionReasonCaptureFailed)
	}
	if !s.attachCapture(handle, func() { c.pumpBlocks(s, handle) }) {
		if stopErr := handle.Stop(); stopErr != nil {
			s.logger.Warn().Err(stopErr).Msg("failed to stop capture acquired after stop")
		}
		return ErrStartInterrupted
	}

	ticker := keepalive.New(c.cfg.KeepaliveInterval, protocol.KeepaliveFrame, func(frame []byte) error {
		return c.sendKeepalive(s, frame)
	}, s.logger)
	if !s.activate(ticker) {
		return ErrStartInterrupted
	}

	c.mu.Lock()
	stale := c.alert != nil
	c.mu.Unlock()
	if stale {
		c.setAlert(nil)
	}
	s.logger.Info().Msg("translation session active")
	c.events.SessionStateChanged(domain.SessionStateActive, domain.SessionReasonCaptureReady)
	return nil
}

// abortStart handles a failed acquisition. Failures caused by Stop or a
// cancelled context end quietly.
func (c *SessionController) abortStart(s *activeSession, err error, alert domain.ServiceAlert, reason domain.SessionStateReason) error {
	if s.isClosing() {
		return ErrStartInterrupted
	}
	if s.ctx.Err() != nil {
		c.endSession(s, nil, domain.SessionReasonUserStop, endedByController)
		return ErrStartInterrupted
	}
	s.logger.Error().Err(err).Str("reason", string(reason)).Msg("session start failed")
	c.endSession(s, &alert, reason, endedByController)
	return err
}

// Stop gracefully ends the current session. It returns ErrNoActiveSession
// when idle; stopping a session that is already closing waits for it.
func (c *SessionController) Stop() error {
	return c.stopWithReason(domain.SessionReasonUserStop)
}

func (c *SessionController) stopWithReason(reason domain.SessionStateReason) error {
	s := c.currentSession()
	if s == nil {
		return ErrNoActiveSession
	}
	c.endSession(s, nil, reason, endedByController)
	return nil
}

// Toggle starts a session when idle and stops it otherwise. Calls within the
// debounce window collapse into the last one.
func (c *SessionController) Toggle(ctx context.Context, languages domain.LanguagePair) {
	c.debounced(func() {
		c.mu.Lock()
		closed := c.shutdown
		c.mu.Unlock()
		if closed {
			return
		}
		if c.currentSession() != nil {
			_ = c.Stop()
			return
		}
		if err := c.Start(ctx, languages); err != nil && !errors.Is(err, ErrStartInterrupted) {
			c.logger.Debug().Err(err).Msg("toggle start failed")
		}
	})
}

// ChangeLanguages records a new language selection. A running session is
// stopped and never restarted automatically.
func (c *SessionController) ChangeLanguages(languages domain.LanguagePair) {
	c.mu.Lock()
	changed := c.languages != languages
	c.languages = languages
	c.mu.Unlock()
	if !changed {
		return
	}
	if err := c.stopWithReason(domain.SessionReasonLanguageChanged); err == nil {
		c.logger.Info().Str("source", languages.Source).Str("target", languages.Target).Msg("session stopped after language change")
	}
}

// Shutdown ends the current session and rejects further starts.
func (c *SessionController) Shutdown() {
	c.mu.Lock()
	c.shutdown = true
	c.mu.Unlock()
	_ = c.stopWithReason(domain.SessionReasonShutdown)
}

// ReportAlert shows an alert raised outside the session, such as a failed
// preferences write.
func (c *SessionController) ReportAlert(alert domain.ServiceAlert) {
	c.setAlert(&alert)
}

func (c *SessionController) DismissAlert() {
	c.setAlert(nil)
}

// Status returns the current backend status.
func (c *SessionController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := domain.Status{State: domain.SessionStateIdle, Languages: c.languages}
	if c.current != nil {
		status.State = c.current.getState()
		status.Active = status.State != domain.SessionStateIdle
	}
	if c.alert != nil {
		alert := *c.alert
		status.Alert = &alert
		status.Message = alert.Message
	}
	return status
}

func (c *SessionController) Transcript() domain.TranscriptSnapshot {
	return c.transcript.Snapshot()
}

// AudioLevel reports the live input level, or 0 when nothing is capturing.
func (c *SessionController) AudioLevel() float64 {
	s := c.currentSession()
	if s == nil {
		return 0
	}
	return s.level()
}

// ClearHistory drops every finalized entry and the current utterance.
func (c *SessionController) ClearHistory() {
	c.transcript.Reset()
	c.publishTranscript()
}

// CopyTranscript writes the formatted history to the clipboard. Clipboard
// failures raise an alert but never touch the session.
func (c *SessionController) CopyTranscript(ctx context.Context) (string, error) {
	text := c.transcript.Format()
	if text == "" {
		return "", ErrEmptyTranscript
	}
	if c.clipboard == nil {
		return text, nil
	}
	if err := c.clipboard.SetText(ctx, text); err != nil {
		c.logger.Warn().Err(err).Msg("failed to copy transcript")
		c.setAlert(&domain.ServiceAlert{Kind: domain.AlertKindError, Code: domain.ErrorCodeClipboard, Message: "Failed to copy transcript to clipboard"})
		return text, err
	}
	c.setAlert(&domain.ServiceAlert{Kind: domain.AlertKindInfo, Code: domain.ErrorCodeClipboard, Message: "Transcript copied to clipboard"})
	return text, nil
}

func (c *SessionController) currentSession() *activeSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// endCurrent ends whatever session is current and reports whether one existed.
func (c *SessionController) endCurrent(reason domain.SessionStateReason) bool {
	s := c.currentSession()
	if s == nil {
		return false
	}
	c.endSession(s, nil, reason, endedByController)
	return true
}

// endSession moves s through closing to idle. With a failure alert the
// session passes through the error state first. Only the first caller runs
// teardown; later callers wait for it to finish.
func (c *SessionController) endSession(s *activeSession, failure *domain.ServiceAlert, reason domain.SessionStateReason, by sessionEnder) {
	if !s.beginClosing() {
		if by == endedByController {
			<-s.done
		}
		return
	}

	if failure != nil {
		c.setAlert(failure)
		s.setState(domain.SessionStateError)
		c.events.SessionStateChanged(domain.SessionStateError, reason)
	}

	s.setState(domain.SessionStateClosing)
	c.events.SessionStateChanged(domain.SessionStateClosing, reason)
	s.logger.Info().Str("reason", string(reason)).Msg("tearing down translation session")

	s.teardown(protocol.EndOfStream(), by)

	c.mu.Lock()
	if c.current == s {
		c.current = nil
	}
	c.mu.Unlock()

	s.setState(domain.SessionStateIdle)
	c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonTeardownComplete)
	close(s.done)
}

// setAlert replaces the single visible alert; nil clears it.
func (c *SessionController) setAlert(alert *domain.ServiceAlert) {
	c.mu.Lock()
	if alert == nil && c.alert == nil {
		c.mu.Unlock()
		return
	}
	var published *domain.ServiceAlert
	if alert != nil {
		copied := *alert
		published = &copied
		c.alert = &copied
	} else {
		c.alert = nil
	}
	c.mu.Unlock()

	if published != nil {
		observability.RecordAlert(string(published.Code))
		alertCopy := *published
		c.events.AlertChanged(&alertCopy)
		return
	}
	c.events.AlertChanged(nil)
}

func (c *SessionController) publishTranscript() {
	c.events.TranscriptUpdated(c.transcript.Snapshot())
}
