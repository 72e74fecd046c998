package reservation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// DefaultLabels are the display names used until an operator customizes them.
var DefaultLabels = map[Status]string{
	StatusPending:   "Agendado",
	StatusConfirmed: "Pré-Confirmado",
	StatusCheckedIn: "Presente",
	StatusCompleted: "Finalizado",
	StatusCanceled:  "Cancelado",
	StatusNoShow:    "Não compareceram",
}

// StatusLabels holds the process-wide status display labels.
//
// Lifecycle: Load once at startup, Save to persist and apply a customization,
// Reset to drop it. An empty path keeps labels in memory only.
type StatusLabels struct {
	mu     sync.RWMutex
	path   string
	labels map[Status]string
}

// NewStatusLabels returns labels initialized to the defaults.
func NewStatusLabels(path string) *StatusLabels {
	return &StatusLabels{path: path, labels: copyLabels(DefaultLabels)}
}

// Load reads the label file. A missing file means defaults.
func (l *StatusLabels) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.labels = copyLabels(DefaultLabels)
	if l.path == "" {
		return nil
	}
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read status labels: %w", err)
	}
	var stored map[Status]string
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("decode status labels: %w", err)
	}
	l.merge(stored)
	return nil
}

// Save applies the given labels and persists the resulting set.
// Unknown statuses and blank labels are rejected.
func (l *StatusLabels) Save(labels map[Status]string) error {
	for s, label := range labels {
		if !s.Valid() {
			return invalid("status", fmt.Sprintf("unknown status %q", s))
		}
		if label == "" {
			return invalid("label", fmt.Sprintf("blank label for %s", s))
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := copyLabels(l.labels)
	for s, label := range labels {
		next[s] = label
	}
	if l.path != "" {
		data, err := json.MarshalIndent(next, "", "  ")
		if err != nil {
			return fmt.Errorf("encode status labels: %w", err)
		}
		if err := os.WriteFile(l.path, data, 0o644); err != nil {
			return fmt.Errorf("write status labels: %w", err)
		}
	}
	l.labels = next
	return nil
}

// Reset restores the defaults and removes the persisted customization.
func (l *StatusLabels) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove status labels: %w", err)
		}
	}
	l.labels = copyLabels(DefaultLabels)
	return nil
}

// Label returns the display label, falling back to the raw status.
func (l *StatusLabels) Label(s Status) string {
	if l == nil {
		return string(s)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if label, ok := l.labels[s]; ok {
		return label
	}
	return string(s)
}

// All returns a copy of the current labels.
func (l *StatusLabels) All() map[Status]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyLabels(l.labels)
}

func (l *StatusLabels) merge(stored map[Status]string) {
	for s, label := range stored {
		if s.Valid() && label != "" {
			l.labels[s] = label
		}
	}
}

func copyLabels(src map[Status]string) map[Status]string {
	dst := make(map[Status]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
