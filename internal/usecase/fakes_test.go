package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"voxlate/internal/domain"
	"voxlate/internal/ports"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type fakeURLProvider struct {
	mu    sync.Mutex
	url   string
	err   error
	block bool
	calls int
	pairs []domain.LanguagePair
}

func (f *fakeURLProvider) StreamingURL(ctx context.Context, languages domain.LanguagePair) (string, error) {
	f.mu.Lock()
	f.calls++
	f.pairs = append(f.pairs, languages)
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	if f.url == "" {
		return "wss://stream.test/translate", nil
	}
	return f.url, nil
}

func (f *fakeURLProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	err   error
	calls int
}

func (f *fakeDialer) Dial(_ context.Context, _ string) (ports.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	conn := newFakeConn()
	f.conns = append(f.conns, conn)
	return conn, nil
}

func (f *fakeDialer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeDialer) conn(i int) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[i]
}

func (f *fakeDialer) all() []*fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeConn(nil), f.conns...)
}

type fakeConn struct {
	messages chan domain.InboundMessage

	mu         sync.Mutex
	open       bool
	status     domain.CloseStatus
	binaries   [][]byte
	texts      []string
	sendErr    error
	sendCalls  int
	closeCalls int
}

func newFakeConn() *fakeConn {
	return &fakeConn{messages: make(chan domain.InboundMessage, 16), open: true}
}

func (f *fakeConn) SendBinary(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.sendErr != nil {
		return f.sendErr
	}
	f.binaries = append(f.binaries, append([]byte(nil), payload...))
	return nil
}

func (f *fakeConn) SendText(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, string(payload))
	return nil
}

func (f *fakeConn) Messages() <-chan domain.InboundMessage { return f.messages }

func (f *fakeConn) CloseStatus() domain.CloseStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeConn) Open() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	f.endLocked(domain.CloseStatus{Code: 1000, Text: "closed by client"})
	return nil
}

// serverClose simulates the remote side ending the connection.
func (f *fakeConn) serverClose(status domain.CloseStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endLocked(status)
}

func (f *fakeConn) endLocked(status domain.CloseStatus) {
	if !f.open {
		return
	}
	f.open = false
	f.status = status
	close(f.messages)
}

func (f *fakeConn) deliver(payload string) {
	f.messages <- domain.InboundMessage{Payload: []byte(payload)}
}

func (f *fakeConn) snapshot() (binaries [][]byte, texts []string, closeCalls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.binaries...), append([]string(nil), f.texts...), f.closeCalls
}

func (f *fakeConn) sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls
}

type fakeCapture struct {
	mu      sync.Mutex
	handles []*fakeHandle
	err     error
	// blockOnCtx makes Start wait for cancellation; release makes it wait
	// for the channel and ignore cancellation.
	blockOnCtx bool
	release    chan struct{}
	calls      int
}

func (f *fakeCapture) Start(ctx context.Context, _ ports.AudioConfig) (ports.CaptureHandle, error) {
	f.mu.Lock()
	f.calls++
	blockOnCtx := f.blockOnCtx
	release := f.release
	err := f.err
	f.mu.Unlock()

	if blockOnCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}

	handle := newFakeHandle()
	f.mu.Lock()
	f.handles = append(f.handles, handle)
	f.mu.Unlock()
	return handle, nil
}

func (f *fakeCapture) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeCapture) handle(i int) *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[i]
}

func (f *fakeCapture) all() []*fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeHandle(nil), f.handles...)
}

type fakeHandle struct {
	blocks chan []float32

	mu        sync.Mutex
	stopCalls int
	closed    bool
	lostErr   error
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{blocks: make(chan []float32, 8)}
}

func (f *fakeHandle) Blocks() <-chan []float32 { return f.blocks }

func (f *fakeHandle) Level() float64 { return 42 }

func (f *fakeHandle) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lostErr
}

func (f *fakeHandle) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	if !f.closed {
		f.closed = true
		close(f.blocks)
	}
	return nil
}

// lose ends the capture without Stop, as an unplugged device would.
func (f *fakeHandle) lose(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lostErr = err
	if !f.closed {
		f.closed = true
		close(f.blocks)
	}
}

func (f *fakeHandle) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

type fakeClipboard struct {
	mu       sync.Mutex
	lastText string
	err      error
}

func (f *fakeClipboard) SetText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastText = text
	return f.err
}

type stateEvent struct {
	state  domain.SessionState
	reason domain.SessionStateReason
}

type fakeEventSink struct {
	mu          sync.Mutex
	states      []stateEvent
	alerts      []*domain.ServiceAlert
	transcripts []domain.TranscriptSnapshot
}

func (f *fakeEventSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) AlertChanged(alert *domain.ServiceAlert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
}

func (f *fakeEventSink) TranscriptUpdated(snapshot domain.TranscriptSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcripts = append(f.transcripts, snapshot)
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) lastAlert() *domain.ServiceAlert {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.alerts) == 0 {
		return nil
	}
	return f.alerts[len(f.alerts)-1]
}

func (f *fakeEventSink) hasState(state domain.SessionState, reason domain.SessionStateReason) bool {
	for _, event := range f.snapshotStates() {
		if event.state == state && event.reason == reason {
			return true
		}
	}
	return false
}

// assertReleased checks that every acquired resource was released exactly once.
func assertReleased(t *testing.T, dialer *fakeDialer, capture *fakeCapture) {
	t.Helper()
	for i, conn := range dialer.all() {
		if _, _, closes := conn.snapshot(); closes != 1 {
			t.Fatalf("connection %d closed %d times, want 1", i, closes)
		}
	}
	for i, handle := range capture.all() {
		if stops := handle.stops(); stops != 1 {
			t.Fatalf("capture %d stopped %d times, want 1", i, stops)
		}
	}
}
