// internal/llm/ollama/ollama_test.go
package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/folio/internal/llm"
)

var _ llm.Provider = (*Provider)(nil)

func TestNew_Defaults(t *testing.T) {
	p, err := New("", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.endpoint != DefaultEndpoint {
		t.Errorf("expected default endpoint, got %s", p.endpoint)
	}
	if p.model != DefaultModel {
		t.Errorf("expected default model, got %s", p.model)
	}
	if p.client.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", p.client.Timeout)
	}
}

func TestProvider_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Stream {
			t.Error("expected non-streaming request")
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if req.Options.NumPredict != llm.DefaultMaxTokens {
			t.Errorf("num_predict = %d", req.Options.NumPredict)
		}
		w.Write([]byte(`{"message":{"role":"assistant","content":"Risk is moderate."},"done":true,"done_reason":"stop","prompt_eval_count":9,"eval_count":4}`))
	}))
	defer srv.Close()

	p, _ := New(srv.URL, "llama3", 0)
	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		SystemPrompt: "analyst",
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "Risk is moderate." || resp.Usage.InputTokens != 9 || resp.FinishReason != "stop" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestProvider_ChatStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p, _ := New(srv.URL, "", 0)
	if _, err := p.Chat(context.Background(), llm.ChatRequest{}); err == nil {
		t.Error("expected error for non-200 status")
	}
}
