package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/user/nexuschat/internal/state"
	"github.com/user/nexuschat/internal/types"
	"github.com/user/nexuschat/internal/vault"
	"github.com/user/nexuschat/internal/voice"
)

type fakeResearcher struct {
	mu      sync.Mutex
	queries []string
	result  string
}

func (f *fakeResearcher) Research(ctx context.Context, query string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.result
}

type fakeCompleter struct {
	mu       sync.Mutex
	prompts  []string
	contexts []string
	reply    string
	err      error
	block    chan struct{}
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt, contextText string) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.contexts = append(f.contexts, contextText)
	return f.reply, f.err
}

type fakeVoice struct {
	mu       sync.Mutex
	spoken   []voice.SpeechRequest
	stops    int
	speakErr error
}

func (f *fakeVoice) Speak(ctx context.Context, req voice.SpeechRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, req)
	return f.speakErr
}

func (f *fakeVoice) StopAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func newTestOrchestrator(t *testing.T, completer *fakeCompleter, researcher *fakeResearcher, vc *fakeVoice) (*Orchestrator, *state.SessionStore, *vault.Vault) {
	t.Helper()
	dir := t.TempDir()
	v := vault.Open(dir, vault.Fallbacks{})
	sessions := state.NewSessionStore(dir)
	settings := state.NewSettingsStore(dir)
	var r Researcher
	if researcher != nil {
		r = researcher
	}
	var vo Voice
	if vc != nil {
		vo = vc
	}
	return New(v, sessions, settings, r, completer, vo, nil), sessions, v
}

func TestSendFullTurn(t *testing.T) {
	completer := &fakeCompleter{reply: "the answer"}
	researcher := &fakeResearcher{result: "\nWEB CONTEXT:\nSource 1: a - b\n"}
	vc := &fakeVoice{}
	o, sessions, _ := newTestOrchestrator(t, completer, researcher, vc)

	reply, err := o.Send(context.Background(), "what is up")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply != "the answer" {
		t.Fatalf("reply = %q", reply)
	}

	if len(researcher.queries) != 1 || researcher.queries[0] != "what is up" {
		t.Fatalf("researcher queries = %v", researcher.queries)
	}
	if len(completer.contexts) != 1 || completer.contexts[0] != researcher.result {
		t.Fatalf("completer contexts = %v", completer.contexts)
	}

	id := o.ActiveSession()
	if id == "" {
		t.Fatal("no active session after Send")
	}
	sess, err := sessions.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(sess.Turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(sess.Turns))
	}
	if sess.Turns[0].Role != types.RoleUser || sess.Turns[0].Content != "what is up" {
		t.Fatalf("user turn = %+v", sess.Turns[0])
	}
	if sess.Turns[1].Role != types.RoleAssistant || sess.Turns[1].Content != "the answer" {
		t.Fatalf("assistant turn = %+v", sess.Turns[1])
	}

	if len(vc.spoken) != 1 || vc.spoken[0].Text != "the answer" {
		t.Fatalf("spoken = %+v", vc.spoken)
	}
}

func TestSendEmptyInputIsNoOp(t *testing.T) {
	completer := &fakeCompleter{reply: "x"}
	o, sessions, _ := newTestOrchestrator(t, completer, nil, nil)

	reply, err := o.Send(context.Background(), "   \n  ")
	if err != nil || reply != "" {
		t.Fatalf("Send = (%q, %v), want empty no-op", reply, err)
	}
	if len(completer.prompts) != 0 {
		t.Fatal("completer called for empty input")
	}
	list, err := sessions.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("sessions created for empty input: %d", len(list))
	}
}

func TestSendOverlapRejected(t *testing.T) {
	completer := &fakeCompleter{reply: "slow", block: make(chan struct{})}
	o, _, _ := newTestOrchestrator(t, completer, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := o.Send(context.Background(), "first")
		done <- err
	}()

	// Wait until the first turn is committed before racing it.
	for o.ActiveSession() == "" {
		time.Sleep(time.Millisecond)
	}

	_, err := o.Send(context.Background(), "second")
	if !errors.Is(err, ErrTurnInFlight) {
		t.Fatalf("overlapping Send err = %v, want ErrTurnInFlight", err)
	}

	close(completer.block)
	if err := <-done; err != nil {
		t.Fatalf("first Send: %v", err)
	}
	if len(completer.prompts) != 1 {
		t.Fatalf("completer saw %d prompts, want 1", len(completer.prompts))
	}
}

func TestSendCompletionErrorRecordedAsAlert(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("gateway exploded")}
	vc := &fakeVoice{}
	o, sessions, _ := newTestOrchestrator(t, completer, nil, vc)

	reply, err := o.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if !strings.HasPrefix(reply, "SYSTEM ALERT: ") || !strings.Contains(reply, "gateway exploded") {
		t.Fatalf("reply = %q", reply)
	}

	sess, err := sessions.Get(context.Background(), o.ActiveSession())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(sess.Turns) != 2 {
		t.Fatalf("got %d turns, want user + alert", len(sess.Turns))
	}
	if sess.Turns[1].Content != reply {
		t.Fatalf("alert turn = %q", sess.Turns[1].Content)
	}
	if len(vc.spoken) != 0 {
		t.Fatal("alert was spoken aloud")
	}

	// The guard must be released after a failed turn.
	if _, err := o.Send(context.Background(), "retry"); err != nil {
		t.Fatalf("Send after alert: %v", err)
	}
}

func TestSendResearchSkippedWhenDisabled(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	researcher := &fakeResearcher{result: "ctx"}
	o, _, v := newTestOrchestrator(t, completer, researcher, nil)

	if err := v.Update(func(c *vault.Credentials) { c.ResearchMode = false }); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := o.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(researcher.queries) != 0 {
		t.Fatal("researcher called with research mode off")
	}
	if completer.contexts[0] != "" {
		t.Fatalf("context = %q, want empty", completer.contexts[0])
	}
}

func TestSendVoicePreferencesForwarded(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	vc := &fakeVoice{}
	o, _, v := newTestOrchestrator(t, completer, nil, vc)

	err := v.Update(func(c *vault.Credentials) {
		c.VoiceName = "aria"
		c.Pitch = 0.8
		c.Rate = 1.5
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := o.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(vc.spoken) != 1 {
		t.Fatalf("spoken = %+v", vc.spoken)
	}
	got := vc.spoken[0]
	if got.Voice != "aria" || got.Pitch != 0.8 || got.Rate != 1.5 {
		t.Fatalf("speech request = %+v", got)
	}
}

func TestSendAutoVoiceOffSkipsSpeech(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	vc := &fakeVoice{}
	o, _, _ := newTestOrchestrator(t, completer, nil, vc)

	if err := o.settings.SetAutoVoice(false); err != nil {
		t.Fatalf("SetAutoVoice: %v", err)
	}
	if _, err := o.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(vc.spoken) != 0 {
		t.Fatal("reply spoken with auto voice off")
	}
}

func TestSessionLifecycle(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	o, sessions, _ := newTestOrchestrator(t, completer, nil, nil)

	if _, err := o.Send(context.Background(), "first session"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	first := o.ActiveSession()

	o.NewSession()
	if o.ActiveSession() != "" {
		t.Fatal("NewSession did not clear active pointer")
	}
	// No store write happens until the next turn arrives.
	list, _ := sessions.List(context.Background())
	if len(list) != 1 {
		t.Fatalf("got %d sessions after NewSession, want 1", len(list))
	}

	if _, err := o.Send(context.Background(), "second session"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	second := o.ActiveSession()
	if second == first {
		t.Fatal("new turn reused the old session")
	}

	if err := o.SwitchSession(context.Background(), first); err != nil {
		t.Fatalf("SwitchSession: %v", err)
	}
	if o.ActiveSession() != first {
		t.Fatal("SwitchSession did not update active pointer")
	}
	if err := o.SwitchSession(context.Background(), types.SessionID("nope")); err == nil {
		t.Fatal("SwitchSession to unknown id succeeded")
	}

	if err := o.DeleteSession(context.Background(), first); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if o.ActiveSession() != "" {
		t.Fatal("deleting the active session did not clear the pointer")
	}
	if err := o.DeleteSession(context.Background(), second); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	list, _ = sessions.List(context.Background())
	if len(list) != 0 {
		t.Fatalf("got %d sessions after deletes, want 0", len(list))
	}
}
