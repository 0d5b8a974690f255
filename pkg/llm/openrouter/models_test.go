package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("catalog endpoint should be unauthenticated")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "a/one", "name": "One", "pricing": map[string]string{"prompt": "0.001", "completion": "0.002"}, "context_length": 8192},
				{"id": "b/two", "name": "Two", "pricing": map[string]string{"prompt": "0", "completion": "0"}, "context_length": 32768},
			},
		})
	}))
	defer server.Close()

	c := New(server.URL)
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[1].ContextLength != 32768 {
		t.Errorf("expected context length 32768, got %d", models[1].ContextLength)
	}
	if !models[1].Free() {
		t.Error("expected zero prompt price to be free")
	}
	if models[0].Free() {
		t.Error("expected non-zero prompt price to not be free")
	}
}

func TestFilterModels(t *testing.T) {
	models := []Model{
		{ID: "x/paid-chat", Name: "Paid Chat", Pricing: Pricing{Prompt: "0.01"}},
		{ID: "y/free-chat", Name: "Free Chat", Pricing: Pricing{Prompt: "0"}},
		{ID: "z/other", Name: "Other", Pricing: Pricing{Prompt: "0.02"}},
	}

	got := FilterModels(models, "chat")
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	// Free-tier models sort first.
	if got[0].ID != "y/free-chat" {
		t.Errorf("expected free model first, got %s", got[0].ID)
	}
}

func TestFilterModelsCap(t *testing.T) {
	models := make([]Model, maxCatalogPage+20)
	for i := range models {
		models[i] = Model{ID: "m/model", Name: "Model", Pricing: Pricing{Prompt: "0.01"}}
	}
	got := FilterModels(models, "")
	if len(got) != maxCatalogPage {
		t.Errorf("expected cap at %d, got %d", maxCatalogPage, len(got))
	}
}

func TestFilterModelsCaseInsensitive(t *testing.T) {
	models := []Model{{ID: "ACME/Big-Model", Name: "Big Model", Pricing: Pricing{Prompt: "0.01"}}}
	if got := FilterModels(models, "big-model"); len(got) != 1 {
		t.Errorf("expected id substring match to be case-insensitive, got %d results", len(got))
	}
}
