package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"voxlate/internal/domain"
	"voxlate/internal/prefs"
	"voxlate/internal/usecase"
)

type emitted struct {
	name string
	data interface{}
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recordingEmitter) emit(_ context.Context, name string, data ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var payload interface{}
	if len(data) > 0 {
		payload = data[0]
	}
	r.events = append(r.events, emitted{name: name, data: payload})
}

func (r *recordingEmitter) last() emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newTestApp(t *testing.T) (*App, *recordingEmitter, string) {
	t.Helper()
	recorder := &recordingEmitter{}
	path := filepath.Join(t.TempDir(), "preferences.yaml")
	app := &App{ctx: context.Background(), logger: zerolog.Nop(), emit: recorder.emit, prefs: prefs.NewStore(path)}
	app.controller = usecase.NewSessionController(nil, nil, nil, nil, app, usecase.Config{}, zerolog.Nop())
	app.controller.ChangeLanguages(domain.LanguagePair{Source: "zh-CN", Target: "en-US"})
	return app, recorder, path
}

func TestSessionReasonMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.SessionStateReason]string{
		domain.SessionReasonReady:              "Ready",
		domain.SessionReasonStarted:            "Connecting...",
		domain.SessionReasonConnectionOpen:     "Starting microphone...",
		domain.SessionReasonCaptureReady:       "Listening",
		domain.SessionReasonConnectionAbnormal: "Connection closed abnormally",
		domain.SessionReasonCaptureLost:        "Microphone disconnected",
		domain.SessionReasonTeardownComplete:   "Stopped",
	}

	for reason, want := range cases {
		reason := reason
		want := want
		t.Run(string(reason), func(t *testing.T) {
			t.Parallel()
			if got := sessionReasonMessage(reason); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := sessionReasonMessage("unknown"); got != "" {
		t.Fatalf("expected empty unknown reason message, got %q", got)
	}
}

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := &App{}
	if err := app.requireReady(); err == nil {
		t.Fatalf("expected uninitialized error")
	}

	bootErr := errors.New("boot")
	app.bootErr = bootErr
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
	if _, err := app.StartTranslation(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error from start, got %v", err)
	}
}

func TestGetStatusWhenNotInitialized(t *testing.T) {
	t.Parallel()

	app := &App{}
	status := app.GetStatus()
	if status.State != domain.SessionStateIdle || status.Active {
		t.Fatalf("unexpected status: %+v", status)
	}
	if app.GetAudioLevel() != 0 {
		t.Fatalf("expected zero level")
	}
	if snapshot := app.GetTranscript(); len(snapshot.Entries) != 0 {
		t.Fatalf("expected empty transcript")
	}

	app.bootErr = errors.New("boot")
	status = app.GetStatus()
	if status.State != domain.SessionStateError || status.Active != false || status.Message != "boot" {
		t.Fatalf("unexpected boot status: %+v", status)
	}
	if info := app.GetRuntimeInfo(); info["error"] != "boot" {
		t.Fatalf("expected boot error in runtime info, got %+v", info)
	}
}

func TestEventsAreEmittedUnderVoxlateNames(t *testing.T) {
	t.Parallel()

	app, recorder, _ := newTestApp(t)

	app.SessionStateChanged(domain.SessionStateActive, domain.SessionReasonCaptureReady)
	got := recorder.last()
	payload, ok := got.data.(map[string]string)
	if got.name != eventSession || !ok || payload["state"] != "active" || payload["message"] != "Listening" {
		t.Fatalf("unexpected session event: %+v", got)
	}

	alert := &domain.ServiceAlert{Kind: domain.AlertKindError, Code: domain.ErrorCodeService, Message: "Translation error: 202"}
	app.AlertChanged(alert)
	if got := recorder.last(); got.name != eventAlert || got.data.(*domain.ServiceAlert) != alert {
		t.Fatalf("unexpected alert event: %+v", got)
	}

	app.TranscriptUpdated(domain.TranscriptSnapshot{Current: domain.Utterance{SourceText: "hola"}})
	if got := recorder.last(); got.name != eventTranscript {
		t.Fatalf("unexpected transcript event: %+v", got)
	}
}

func TestEventsAreSkippedBeforeStartup(t *testing.T) {
	t.Parallel()

	recorder := &recordingEmitter{}
	app := &App{emit: recorder.emit}
	app.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonReady)
	app.AlertChanged(nil)
	if len(recorder.events) != 0 {
		t.Fatalf("expected no events without a runtime context")
	}
}

func TestSetLanguagesUpdatesControllerAndPreferences(t *testing.T) {
	t.Parallel()

	app, _, path := newTestApp(t)

	status, err := app.SetSourceLanguage("ja-JP")
	if err != nil {
		t.Fatalf("set source failed: %v", err)
	}
	if status.Languages != (domain.LanguagePair{Source: "ja-JP", Target: "en-US"}) {
		t.Fatalf("unexpected languages: %+v", status.Languages)
	}
	status, err = app.SetTargetLanguage("fr-FR")
	if err != nil {
		t.Fatalf("set target failed: %v", err)
	}
	if status.Languages.Target != "fr-FR" {
		t.Fatalf("unexpected target: %+v", status.Languages)
	}

	saved, err := prefs.NewStore(path).Load()
	if err != nil {
		t.Fatalf("load prefs failed: %v", err)
	}
	if saved != (domain.LanguagePair{Source: "ja-JP", Target: "fr-FR"}) {
		t.Fatalf("unexpected saved prefs: %+v", saved)
	}
}

func TestSetLanguageSaveFailureRaisesAlert(t *testing.T) {
	t.Parallel()

	app, recorder, _ := newTestApp(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	app.prefs = prefs.NewStore(filepath.Join(blocker, "preferences.yaml"))

	status, err := app.SetTargetLanguage("de-DE")
	if err != nil {
		t.Fatalf("language change should not fail on a save error: %v", err)
	}
	if status.Languages.Target != "de-DE" {
		t.Fatalf("expected language applied, got %+v", status.Languages)
	}
	if status.Alert == nil || status.Alert.Code != domain.ErrorCodePrefs {
		t.Fatalf("expected preferences alert, got %+v", status.Alert)
	}
	got := recorder.last()
	alert, ok := got.data.(*domain.ServiceAlert)
	if got.name != eventAlert || !ok || alert.Message != "Failed to save language preferences" {
		t.Fatalf("unexpected alert event: %+v", got)
	}
}

func TestSetLanguageRejectsUnknownTag(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp(t)
	status, err := app.SetSourceLanguage("xx-YY")
	if err == nil {
		t.Fatalf("expected unsupported language error")
	}
	if status.Languages.Source != "zh-CN" {
		t.Fatalf("expected languages unchanged, got %+v", status.Languages)
	}
}

func TestStopTranslationWhenIdleIsNotAnError(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp(t)
	status, err := app.StopTranslation()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.State != domain.SessionStateIdle {
		t.Fatalf("unexpected state: %s", status.State)
	}
}

func TestSupportedLanguagesCatalog(t *testing.T) {
	t.Parallel()

	app := &App{}
	if got := len(app.SupportedLanguages()); got != 20 {
		t.Fatalf("expected 20 languages, got %d", got)
	}
}
