package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"voxlate/internal/bootstrap"
	"voxlate/internal/config"
	"voxlate/internal/domain"
	"voxlate/internal/observability"
	"voxlate/internal/prefs"
	"voxlate/internal/providers/youdao"
	"voxlate/internal/usecase"
)

const (
	eventSession    = "voxlate:session"
	eventAlert      = "voxlate:alert"
	eventTranscript = "voxlate:transcript"
)

// App is the Wails application root.
type App struct {
	ctx    context.Context
	logger zerolog.Logger

	controller *usecase.SessionController
	prefs      *prefs.Store
	metrics    *observability.MetricsServer
	cfg        config.Config
	bootErr    error

	// emit is swapped in tests.
	emit func(ctx context.Context, name string, data ...interface{})
}

func NewApp() *App {
	return &App{logger: observability.GetLogger(), emit: runtime.EventsEmit}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, &wailsClipboard{}, a.logger)
	if err != nil {
		a.bootErr = err
		a.logger.Error().Err(err).Msg("startup failed")
		a.AlertChanged(&domain.ServiceAlert{Kind: domain.AlertKindError, Code: domain.ErrorCodeStartup, Message: err.Error()})
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.prefs = services.Prefs
	if a.cfg.MetricsAddr != "" {
		a.metrics = observability.NewMetricsServer(a.logger)
		a.metrics.Serve(a.cfg.MetricsAddr)
	}
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonReady)
}

func (a *App) shutdown(_ context.Context) {
	if a.controller != nil {
		a.controller.Shutdown()
	}
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("failed to stop metrics endpoint")
		}
	}
}

// Toggle starts or stops translation with the current language selection.
func (a *App) Toggle() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	a.controller.Toggle(a.ctx, a.controller.Status().Languages)
	return a.controller.Status(), nil
}

// StartTranslation starts a session without debouncing.
func (a *App) StartTranslation() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Start(a.ctx, a.controller.Status().Languages); err != nil {
		if errors.Is(err, usecase.ErrStartInterrupted) {
			return a.controller.Status(), nil
		}
		return a.controller.Status(), err
	}
	return a.controller.Status(), nil
}

// StopTranslation ends the running session, if any.
func (a *App) StopTranslation() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Stop(); err != nil && !errors.Is(err, usecase.ErrNoActiveSession) {
		return a.controller.Status(), err
	}
	return a.controller.Status(), nil
}

// SetSourceLanguage changes the spoken language. A running session stops.
func (a *App) SetSourceLanguage(tag string) (domain.Status, error) {
	return a.setLanguages(func(pair *domain.LanguagePair) { pair.Source = tag }, tag)
}

// SetTargetLanguage changes the translation language. A running session stops.
func (a *App) SetTargetLanguage(tag string) (domain.Status, error) {
	return a.setLanguages(func(pair *domain.LanguagePair) { pair.Target = tag }, tag)
}

func (a *App) setLanguages(apply func(*domain.LanguagePair), tag string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if !youdao.IsSupported(tag) {
		return a.controller.Status(), fmt.Errorf("unsupported language %q", tag)
	}

	pair := a.controller.Status().Languages
	apply(&pair)
	a.controller.ChangeLanguages(pair)
	if a.prefs != nil {
		if err := a.prefs.Save(pair); err != nil {
			a.logger.Warn().Err(err).Msg("failed to save language preferences")
			a.controller.ReportAlert(domain.ServiceAlert{
				Kind:    domain.AlertKindError,
				Code:    domain.ErrorCodePrefs,
				Message: "Failed to save language preferences",
			})
		}
	}
	return a.controller.Status(), nil
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateError, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return a.controller.Status()
}

func (a *App) GetTranscript() domain.TranscriptSnapshot {
	if a.controller == nil {
		return domain.TranscriptSnapshot{Entries: []domain.TranscriptEntry{}}
	}
	return a.controller.Transcript()
}

// GetAudioLevel returns the microphone level in [0,100] for the meter.
func (a *App) GetAudioLevel() float64 {
	if a.controller == nil {
		return 0
	}
	return a.controller.AudioLevel()
}

func (a *App) DismissAlert() {
	if a.controller != nil {
		a.controller.DismissAlert()
	}
}

func (a *App) ClearHistory() {
	if a.controller != nil {
		a.controller.ClearHistory()
	}
}

// CopyTranscript copies the formatted history to the clipboard.
func (a *App) CopyTranscript() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.controller.CopyTranscript(a.ctx)
}

func (a *App) SupportedLanguages() []domain.Language {
	return youdao.SupportedLanguages()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	info := map[string]string{
		"provider":         "Youdao",
		"providerMode":     a.cfg.Provider.Mode,
		"audioBackend":     a.cfg.Audio.Backend,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
		"sampleRate":       fmt.Sprintf("%d", a.cfg.Audio.SampleRate),
		"preferences":      a.cfg.PrefsPath,
	}
	if a.cfg.Provider.Mode == config.ProviderModeRemote {
		info["signerURL"] = a.cfg.Provider.SignerURL
	}
	return info
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	a.emit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// AlertChanged emits the current alert; a nil alert is sent as null.
func (a *App) AlertChanged(alert *domain.ServiceAlert) {
	if a.ctx == nil {
		return
	}
	a.emit(a.ctx, eventAlert, alert)
}

func (a *App) TranscriptUpdated(snapshot domain.TranscriptSnapshot) {
	if a.ctx == nil {
		return
	}
	a.emit(a.ctx, eventTranscript, snapshot)
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready"
	case domain.SessionReasonStarted:
		return "Connecting..."
	case domain.SessionReasonRestarted:
		return "Restarting session..."
	case domain.SessionReasonConnectionOpen:
		return "Starting microphone..."
	case domain.SessionReasonCaptureReady:
		return "Listening"
	case domain.SessionReasonUserStop:
		return "Stopping..."
	case domain.SessionReasonLanguageChanged:
		return "Language changed"
	case domain.SessionReasonShutdown:
		return "Shutting down"
	case domain.SessionReasonProviderFailed:
		return "Failed to get streaming URL"
	case domain.SessionReasonConnectionFailed:
		return "Connection failed"
	case domain.SessionReasonCaptureFailed:
		return "Microphone unavailable"
	case domain.SessionReasonCaptureLost:
		return "Microphone disconnected"
	case domain.SessionReasonConnectionClosed:
		return "Connection closed"
	case domain.SessionReasonConnectionAbnormal:
		return "Connection closed abnormally"
	case domain.SessionReasonTeardownComplete:
		return "Stopped"
	default:
		return ""
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
