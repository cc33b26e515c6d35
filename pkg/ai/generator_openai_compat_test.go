package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateTextSendsPromptAndOptions(t *testing.T) {
	var gotReq oaiChatRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "[]"}},
			},
		})
	}))
	defer srv.Close()

	g := NewOpenAICompatGenerator(srv.URL, "sk-test", "gpt-4o-mini",
		WithTemperature(0.1), WithMaxTokens(16000))
	out, err := g.GenerateText(context.Background(), "extract items", "Ring A, $100")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "[]" {
		t.Fatalf("unexpected output %q", out)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotReq.Model != "gpt-4o-mini" || gotReq.Temperature != 0.1 || gotReq.MaxTokens != 16000 {
		t.Fatalf("request options lost: %+v", gotReq)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", gotReq.Messages)
	}
}

func TestGenerateTextPassesThroughUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "Rate limit reached", "type": "requests"},
		})
	}))
	defer srv.Close()

	g := NewOpenAICompatGenerator(srv.URL, "sk-test", "gpt-4o-mini")
	_, err := g.GenerateText(context.Background(), "", "text")
	if err == nil || !IsUpstream(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if err.Error() != "Rate limit reached" {
		t.Fatalf("upstream message must pass through verbatim, got %q", err.Error())
	}
}

func TestGenerateTextRejectsEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	g := NewOpenAICompatGenerator(srv.URL, "", "gpt-4o-mini")
	if _, err := g.GenerateText(context.Background(), "", "text"); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}
