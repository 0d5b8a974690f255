// Package orchestrator runs the conversational turn loop: persist the user
// turn, gather research context, obtain a completion, persist the reply and
// optionally speak it.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/user/nexuschat/internal/state"
	"github.com/user/nexuschat/internal/types"
	"github.com/user/nexuschat/internal/vault"
	"github.com/user/nexuschat/internal/voice"
)

// alertPrefix marks assistant turns that record a pipeline failure instead
// of a model reply.
const alertPrefix = "SYSTEM ALERT: "

// ErrTurnInFlight reports that a turn is already being processed. Overlapping
// sends are rejected, not queued.
var ErrTurnInFlight = errors.New("a turn is already in flight")

// Researcher gathers pre-completion context for a prompt.
type Researcher interface {
	Research(ctx context.Context, query string) string
}

// Completer produces the assistant reply for a prompt plus gathered context.
type Completer interface {
	Complete(ctx context.Context, prompt, contextText string) (string, error)
}

// Voice is the slice of the voice controller the turn loop needs.
type Voice interface {
	Speak(ctx context.Context, req voice.SpeechRequest) error
	StopAll()
}

// Orchestrator coordinates one conversation at a time. The active session
// pointer and the in-flight guard are its only state; everything else lives
// in the stores.
type Orchestrator struct {
	vault    *vault.Vault
	sessions types.SessionStore
	settings *state.SettingsStore
	research Researcher
	router   Completer
	voice    Voice
	logger   *slog.Logger

	inFlight atomic.Bool

	mu     sync.Mutex
	active types.SessionID
}

func New(v *vault.Vault, sessions types.SessionStore, settings *state.SettingsStore, research Researcher, router Completer, vc Voice, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		vault:    v,
		sessions: sessions,
		settings: settings,
		research: research,
		router:   router,
		voice:    vc,
		logger:   logger,
	}
}

// ActiveSession returns the current session id, empty when the next turn
// will create a fresh session.
func (o *Orchestrator) ActiveSession() types.SessionID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// NewSession clears the active session pointer. The session itself is
// created lazily by the first turn sent into it, so abandoned empty
// sessions never hit the store.
func (o *Orchestrator) NewSession() {
	if o.voice != nil {
		o.voice.StopAll()
	}
	o.mu.Lock()
	o.active = ""
	o.mu.Unlock()
}

// SwitchSession makes an existing session current, interrupting any speech.
func (o *Orchestrator) SwitchSession(ctx context.Context, id types.SessionID) error {
	if _, err := o.sessions.Get(ctx, id); err != nil {
		return err
	}
	if o.voice != nil {
		o.voice.StopAll()
	}
	o.mu.Lock()
	o.active = id
	o.mu.Unlock()
	return nil
}

// DeleteSession removes a session. Deleting the active session clears the
// active pointer; ongoing speech is left alone.
func (o *Orchestrator) DeleteSession(ctx context.Context, id types.SessionID) error {
	if err := o.sessions.Delete(ctx, id); err != nil {
		return err
	}
	o.mu.Lock()
	if o.active == id {
		o.active = ""
	}
	o.mu.Unlock()
	return nil
}

// Send runs one full turn for the given user text and returns the assistant
// reply. Empty input is a silent no-op. A second Send while one is running
// returns ErrTurnInFlight without side effects.
//
// Pipeline failures after the user turn is persisted do not fail the call:
// the error is recorded as an alert turn in the session and returned as the
// reply text, so the conversation log always reflects what happened.
func (o *Orchestrator) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if !o.inFlight.CompareAndSwap(false, true) {
		return "", ErrTurnInFlight
	}

	if o.voice != nil {
		o.voice.StopAll()
	}

	o.mu.Lock()
	active := o.active
	o.mu.Unlock()

	// The user turn is persisted before anything that can fail, so the
	// prompt survives even when the rest of the pipeline does not.
	id, err := o.sessions.AppendTurn(ctx, active, text, "")
	if err != nil {
		o.inFlight.Store(false)
		return "", err
	}
	o.mu.Lock()
	o.active = id
	o.mu.Unlock()

	var contextText string
	if o.research != nil && o.vault.Credentials().ResearchMode {
		contextText = o.research.Research(ctx, text)
	}

	reply, err := o.router.Complete(ctx, text, contextText)
	if err != nil {
		alert := alertPrefix + err.Error()
		if _, appendErr := o.sessions.AppendTurn(ctx, id, "", alert); appendErr != nil {
			o.logger.Error("recording alert turn failed", "error", appendErr)
		}
		o.inFlight.Store(false)
		return alert, nil
	}

	if _, err := o.sessions.AppendTurn(ctx, id, "", reply); err != nil {
		o.inFlight.Store(false)
		return "", err
	}

	// The guard drops before speech so the user can fire the next turn
	// while the reply is still being read aloud.
	o.inFlight.Store(false)

	if o.voice != nil && o.settings != nil && o.settings.AutoVoice() {
		creds := o.vault.Credentials()
		err := o.voice.Speak(ctx, voice.SpeechRequest{
			Text:  reply,
			Voice: creds.VoiceName,
			Pitch: creds.Pitch,
			Rate:  creds.Rate,
		})
		if err != nil && !errors.Is(err, voice.ErrCapabilityUnavailable) {
			o.logger.Warn("speaking reply failed", "error", err)
		}
	}

	return reply, nil
}
