// Package transcript holds the finalized translation history and the
// in-progress utterance of the current session.
package transcript

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"voxlate/internal/domain"
)

// Model is append-only for finalized entries; the current utterance is
// overwritten as a whole.
type Model struct {
	mu      sync.RWMutex
	entries []domain.TranscriptEntry
	current domain.Utterance
}

func NewModel() *Model {
	return &Model{}
}

// AppendFinal adds a finalized entry to the history.
func (m *Model) AppendFinal(entry domain.TranscriptEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

// SetCurrent replaces the in-progress utterance.
func (m *Model) SetCurrent(u domain.Utterance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = u
}

func (m *Model) ClearCurrent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = domain.Utterance{}
}

// Reset drops the whole history.
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.current = domain.Utterance{}
}

// Snapshot returns a copy safe to hand to the UI.
func (m *Model) Snapshot() domain.TranscriptSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]domain.TranscriptEntry, len(m.entries))
	copy(entries, m.entries)
	return domain.TranscriptSnapshot{Entries: entries, Current: m.current}
}

// Format renders the finalized history as plain text, one block per entry.
func (m *Model) Format() string {
	snapshot := m.Snapshot()
	var b strings.Builder
	for i, entry := range snapshot.Entries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s] %s\n", entry.Timestamp.Format(time.TimeOnly), entry.SourceText)
		fmt.Fprintf(&b, "    %s\n", entry.TranslatedText)
	}
	return b.String()
}
