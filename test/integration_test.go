//go:build integration

package test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/user/nexuschat/internal/orchestrator"
	"github.com/user/nexuschat/internal/research"
	"github.com/user/nexuschat/internal/router"
	"github.com/user/nexuschat/internal/state"
	"github.com/user/nexuschat/internal/types"
	"github.com/user/nexuschat/internal/vault"
	"github.com/user/nexuschat/internal/voice"
	"github.com/user/nexuschat/pkg/llm/gemini"
	"github.com/user/nexuschat/pkg/llm/openrouter"
)

type recordingVoice struct {
	mu     sync.Mutex
	spoken []voice.SpeechRequest
}

func (r *recordingVoice) Speak(_ context.Context, req voice.SpeechRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken = append(r.spoken, req)
	return nil
}

func (r *recordingVoice) StopAll() {}

func TestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	// Stub search providers.
	serperSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"organic": []map[string]string{
				{"title": "Go docs", "snippet": "The Go programming language"},
			},
		})
	}))
	defer serperSrv.Close()

	tavilySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"title": "Deep dive", "content": "Compiled, statically typed"},
			},
		})
	}))
	defer tavilySrv.Close()

	// Stub gateway that records the prompt it receives.
	var (
		gwMu       sync.Mutex
		gwRequests []string
	)
	gatewaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding gateway request: %v", err)
		}
		gwMu.Lock()
		gwRequests = append(gwRequests, body.Messages[len(body.Messages)-1].Content)
		gwMu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "Go is a language."}},
			},
		})
	}))
	defer gatewaySrv.Close()

	v := vault.Open(dir, vault.Fallbacks{
		OpenRouterKey: "or-key",
		SerperKey:     "serper-key",
		TavilyKey:     "tavily-key",
	})
	sessions := state.NewSessionStore(dir)
	settings := state.NewSettingsStore(dir)

	agg := research.New(v,
		research.NewSerperClient(serperSrv.URL),
		research.NewTavilyClient(tavilySrv.URL),
		research.NewPageFetcher(),
	)

	gw := openrouter.New(gatewaySrv.URL)
	direct := gemini.New("", "", 0)
	rt := router.New(v, gw, direct, "")

	vc := &recordingVoice{}
	orch := orchestrator.New(v, sessions, settings, agg, rt, vc, nil)

	reply, err := orch.Send(ctx, "what is Go")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply != "Go is a language." {
		t.Fatalf("reply = %q", reply)
	}

	// The gathered web context must reach the gateway prompt.
	gwMu.Lock()
	if len(gwRequests) != 1 {
		gwMu.Unlock()
		t.Fatalf("gateway saw %d requests, want 1", len(gwRequests))
	}
	prompt := gwRequests[0]
	gwMu.Unlock()
	if !strings.Contains(prompt, "WEB CONTEXT:") || !strings.Contains(prompt, "Go docs") {
		t.Errorf("search context missing from prompt: %q", prompt)
	}
	if !strings.Contains(prompt, "DEEP CONTEXT:") || !strings.Contains(prompt, "Deep dive") {
		t.Errorf("synthesis context missing from prompt: %q", prompt)
	}
	if !strings.Contains(prompt, "USER:what is Go") {
		t.Errorf("user prompt missing: %q", prompt)
	}

	// The session holds the full exchange and takes its title from the
	// first user message.
	list, err := sessions.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d sessions, want 1", len(list))
	}
	sess := list[0]
	if sess.Title != "what is Go" {
		t.Errorf("title = %q", sess.Title)
	}
	if len(sess.Turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(sess.Turns))
	}
	if sess.Turns[0].Role != types.RoleUser || sess.Turns[1].Role != types.RoleAssistant {
		t.Errorf("turn roles = %s, %s", sess.Turns[0].Role, sess.Turns[1].Role)
	}

	// Auto voice defaults on, so the reply was spoken.
	vc.mu.Lock()
	spoken := append([]voice.SpeechRequest(nil), vc.spoken...)
	vc.mu.Unlock()
	if len(spoken) != 1 || spoken[0].Text != "Go is a language." {
		t.Errorf("spoken = %+v", spoken)
	}

	// A second turn in the same session reuses it.
	if _, err := orch.Send(ctx, "and generics?"); err != nil {
		t.Fatalf("second Send: %v", err)
	}
	list, err = sessions.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("second turn created a new session")
	}
	if got := len(list[0].Turns); got != 4 {
		t.Fatalf("got %d turns after second exchange, want 4", got)
	}
	if list[0].Title != "what is Go" {
		t.Errorf("title overwritten: %q", list[0].Title)
	}
}
