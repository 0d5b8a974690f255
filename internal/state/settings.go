package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Settings are runtime preferences kept separate from the credential vault.
type Settings struct {
	AutoVoice bool `json:"auto_voice"`
}

// SettingsStore is a JSON-file-backed store for Settings, persisted on every
// mutation.
type SettingsStore struct {
	path string
	mu   sync.RWMutex
	data Settings
}

// NewSettingsStore loads settings.json from the data directory, defaulting
// to voice output enabled. A malformed record is a fresh start, not fatal.
func NewSettingsStore(dataDir string) *SettingsStore {
	s := &SettingsStore{
		path: filepath.Join(dataDir, "settings.json"),
		data: Settings{AutoVoice: true},
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("settings record unreadable, using defaults", "path", s.path, "error", err)
		}
		return s
	}

	var stored Settings
	if err := json.Unmarshal(raw, &stored); err != nil {
		slog.Warn("settings record malformed, using defaults", "path", s.path, "error", err)
		return s
	}
	s.data = stored
	return s
}

// AutoVoice reports whether assistant replies should be spoken aloud.
func (s *SettingsStore) AutoVoice() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.AutoVoice
}

// SetAutoVoice toggles spoken replies and persists the record.
func (s *SettingsStore) SetAutoVoice(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.AutoVoice = enabled
	return s.save()
}

// save writes the record atomically. Callers hold s.mu.
func (s *SettingsStore) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp settings file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp settings file: %w", err)
	}
	return nil
}
