// Package history keeps a navigable ordered list of parsed recordings.
package history

import (
	"loov.dev/tracemodel/model"
)

// Entry pairs a parsed recording with its display name.
type Entry struct {
	Name  string
	Trace *model.ParsedTrace
}

// Manager holds every recording added to it and a movable cursor. Navigation
// only moves the cursor; nothing is ever dropped.
type Manager struct {
	entries []Entry
	current int
}

func NewManager() *Manager {
	return &Manager{current: -1}
}

// AddRecording appends an entry and makes it the current position.
func (m *Manager) AddRecording(e Entry) {
	m.entries = append(m.entries, e)
	m.current = len(m.entries) - 1
}

// Navigate moves the cursor by offset, positive stepping toward older
// recordings, and returns the entry at the new position. An offset landing
// outside the list reports a miss and leaves the cursor where it was.
func (m *Manager) Navigate(offset int) (Entry, bool) {
	pos := m.current - offset
	if pos < 0 || pos >= len(m.entries) {
		return Entry{}, false
	}
	m.current = pos
	return m.entries[pos], true
}

// Current returns the entry at the cursor.
func (m *Manager) Current() (Entry, bool) {
	if m.current < 0 || m.current >= len(m.entries) {
		return Entry{}, false
	}
	return m.entries[m.current], true
}

func (m *Manager) Size() int { return len(m.entries) }
