// Package vault holds provider credentials and user preferences behind a
// passphrase gate, persisted as a JSON record.
//
// The gate compares against a compiled-in constant with no lockout and no
// rate limiting. It is a cosmetic barrier for casual shoulder-surfing, not a
// security boundary; real access control is out of scope.
package vault

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// vaultPassphrase is the fixed unlock secret. Cosmetic gate only.
const vaultPassphrase = "Moneynow234$#"

// globalKeys are compiled-in fallback credentials, used when the stored
// value for a key is empty. Populate before building to bake keys into the
// binary for all installs.
var globalKeys = Fallbacks{
	OpenRouterKey: "",
	SerperKey:     "",
	TavilyKey:     "",
}

// Credentials is the persisted vault record. Any field may be empty; an
// empty gateway key routes completions to the direct generative provider.
type Credentials struct {
	OpenRouterKey string  `json:"openrouter_key"`
	SerperKey     string  `json:"serper_key"`
	TavilyKey     string  `json:"tavily_key"`
	SelectedModel string  `json:"selected_model"`
	ResearchMode  bool    `json:"research_mode"`
	VoiceName     string  `json:"voice_name"`
	Pitch         float64 `json:"pitch"`
	Rate          float64 `json:"rate"`
}

// Fallbacks overlay empty stored keys. They come from compiled-in globals
// and can be widened from the environment at startup.
type Fallbacks struct {
	OpenRouterKey string
	SerperKey     string
	TavilyKey     string
}

func defaultCredentials() Credentials {
	return Credentials{
		SelectedModel: "google/gemini-2.0-flash-001",
		ResearchMode:  true,
		Pitch:         1.0,
		Rate:          1.1,
	}
}

// Vault is the in-memory holder of credentials, persisted synchronously on
// every mutation.
type Vault struct {
	path      string
	fallbacks Fallbacks

	mu       sync.RWMutex
	creds    Credentials
	unlocked bool
}

// Open loads the vault record from dataDir, falling back to defaults when
// the record is missing or malformed. A malformed record is a fresh start,
// not a fatal error.
func Open(dataDir string, extra Fallbacks) *Vault {
	fb := globalKeys
	if extra.OpenRouterKey != "" {
		fb.OpenRouterKey = extra.OpenRouterKey
	}
	if extra.SerperKey != "" {
		fb.SerperKey = extra.SerperKey
	}
	if extra.TavilyKey != "" {
		fb.TavilyKey = extra.TavilyKey
	}

	v := &Vault{
		path:      filepath.Join(dataDir, "vault.json"),
		fallbacks: fb,
		creds:     defaultCredentials(),
	}

	data, err := os.ReadFile(v.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("vault record unreadable, starting fresh", "path", v.path, "error", err)
		}
		return v
	}

	var stored Credentials
	if err := json.Unmarshal(data, &stored); err != nil {
		slog.Warn("vault record malformed, starting fresh", "path", v.path, "error", err)
		return v
	}
	v.creds = stored
	return v
}

// Unlock checks the passphrase. On mismatch the vault stays locked and the
// caller is expected to clear the attempted input.
func (v *Vault) Unlock(passphrase string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if passphrase == vaultPassphrase {
		v.unlocked = true
		return true
	}
	return false
}

// Lock re-locks the vault, e.g. when the settings surface is closed.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.unlocked = false
}

// Unlocked reports whether the passphrase gate has been passed.
func (v *Vault) Unlocked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.unlocked
}

// Credentials returns a copy of the current record.
func (v *Vault) Credentials() Credentials {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.creds
}

// Update mutates the record under lock and persists it synchronously.
func (v *Vault) Update(mutate func(*Credentials)) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	mutate(&v.creds)
	return v.save()
}

// GatewayKey returns the effective gateway credential: the stored key, or
// the compiled-in fallback when the stored key is empty.
func (v *Vault) GatewayKey() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.creds.OpenRouterKey != "" {
		return v.creds.OpenRouterKey
	}
	return v.fallbacks.OpenRouterKey
}

// SerperKey returns the effective credential for the first search provider.
func (v *Vault) SerperKey() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.creds.SerperKey != "" {
		return v.creds.SerperKey
	}
	return v.fallbacks.SerperKey
}

// TavilyKey returns the effective credential for the second search provider.
func (v *Vault) TavilyKey() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.creds.TavilyKey != "" {
		return v.creds.TavilyKey
	}
	return v.fallbacks.TavilyKey
}

// SelectedModel returns the gateway model id chosen by the user.
func (v *Vault) SelectedModel() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.creds.SelectedModel
}

// IsConfigured reports whether an effective gateway key exists.
func (v *Vault) IsConfigured() bool {
	return v.GatewayKey() != ""
}

// save writes the record atomically (temp file + rename). Callers hold v.mu.
func (v *Vault) save() error {
	data, err := json.MarshalIndent(v.creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal vault: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(v.path), 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	tmp := v.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp vault: %w", err)
	}
	if err := os.Rename(tmp, v.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp vault: %w", err)
	}
	return nil
}
