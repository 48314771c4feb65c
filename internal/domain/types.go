package domain

import "time"

// SessionState models the translation session lifecycle.
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateConnecting SessionState = "connecting"
	SessionStateAudioInit  SessionState = "audio_init"
	SessionStateActive     SessionState = "active"
	SessionStateClosing    SessionState = "closing"
	SessionStateError      SessionState = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonReady              SessionStateReason = "ready"
	SessionReasonStarted            SessionStateReason = "session_started"
	SessionReasonRestarted          SessionStateReason = "restarted"
	SessionReasonConnectionOpen     SessionStateReason = "connection_open"
	SessionReasonCaptureReady       SessionStateReason = "capture_ready"
	SessionReasonUserStop           SessionStateReason = "user_stop"
	SessionReasonLanguageChanged    SessionStateReason = "language_changed"
	SessionReasonShutdown           SessionStateReason = "shutdown"
	SessionReasonProviderFailed     SessionStateReason = "provider_failed"
	SessionReasonConnectionFailed   SessionStateReason = "connection_failed"
	SessionReasonCaptureFailed      SessionStateReason = "capture_failed"
	SessionReasonCaptureLost        SessionStateReason = "capture_lost"
	SessionReasonConnectionClosed   SessionStateReason = "connection_closed"
	SessionReasonConnectionAbnormal SessionStateReason = "connection_abnormal"
	SessionReasonTeardownComplete   SessionStateReason = "teardown_complete"
)

// ErrorCode identifies the origin of a user-visible alert.
type ErrorCode string

const (
	ErrorCodeStartup    ErrorCode = "startup"
	ErrorCodePermission ErrorCode = "permission"
	ErrorCodeDevice     ErrorCode = "device"
	ErrorCodeProvider   ErrorCode = "provider"
	ErrorCodeConnection ErrorCode = "connection"
	ErrorCodeAbnormal   ErrorCode = "connection_abnormal"
	ErrorCodeService    ErrorCode = "service"
	ErrorCodeClipboard  ErrorCode = "clipboard"
	ErrorCodePrefs      ErrorCode = "preferences"
)

// AlertKind is the severity of a ServiceAlert.
type AlertKind string

const (
	AlertKindInfo  AlertKind = "info"
	AlertKindError AlertKind = "error"
)

// ServiceAlert is the single transient message shown to the user.
type ServiceAlert struct {
	Kind    AlertKind `json:"kind"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// LanguagePair is the immutable per-session language selection.
type LanguagePair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Languages used when nothing was chosen or persisted.
const (
	DefaultSourceLanguage = "zh-CN"
	DefaultTargetLanguage = "en-US"
)

// DefaultLanguages returns the pair used before the user picks one.
func DefaultLanguages() LanguagePair {
	return LanguagePair{Source: DefaultSourceLanguage, Target: DefaultTargetLanguage}
}

// Language is one entry of the supported language catalog.
type Language struct {
	Tag  string `json:"tag"`
	Name string `json:"name"`
}

// Utterance is the in-progress recognition/translation pair.
type Utterance struct {
	SourceText     string `json:"sourceText"`
	TranslatedText string `json:"translatedText"`
}

// IsZero reports whether both sides are empty.
func (u Utterance) IsZero() bool {
	return u.SourceText == "" && u.TranslatedText == ""
}

// TranscriptEntry is a finalized utterance pair.
type TranscriptEntry struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	SourceText     string    `json:"sourceText"`
	TranslatedText string    `json:"translatedText"`
}

// TranscriptSnapshot is a copy of the transcript handed to the UI.
type TranscriptSnapshot struct {
	Entries []TranscriptEntry `json:"entries"`
	Current Utterance         `json:"current"`
}

// InboundMessage is one message received from the streaming endpoint.
type InboundMessage struct {
	Binary  bool
	Payload []byte
}

// CloseStatus describes why a streaming connection ended.
type CloseStatus struct {
	Code int
	Text string
	Err  error
}

// Status summarizes the current runtime status.
type Status struct {
	State     SessionState  `json:"state"`
	Active    bool          `json:"active"`
	Languages LanguagePair  `json:"languages"`
	Alert     *ServiceAlert `json:"alert,omitempty"`
	Message   string        `json:"message,omitempty"`
}
