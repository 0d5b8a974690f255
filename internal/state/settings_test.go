package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSettingsDefaults(t *testing.T) {
	s := NewSettingsStore(t.TempDir())
	if !s.AutoVoice() {
		t.Error("auto voice should default on")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := NewSettingsStore(dir)
	if err := s.SetAutoVoice(false); err != nil {
		t.Fatal(err)
	}

	reopened := NewSettingsStore(dir)
	if reopened.AutoVoice() {
		t.Error("expected persisted auto voice off")
	}
}

func TestSettingsMalformedIsFreshStart(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), []byte("oops"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewSettingsStore(dir)
	if !s.AutoVoice() {
		t.Error("malformed settings should fall back to defaults")
	}
}
