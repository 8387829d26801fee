package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brightly-app/brightly/backend/internal/config"
	"github.com/brightly-app/brightly/backend/internal/model/chat"
)

type capturedRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newOpenAIServer(t *testing.T, captured *capturedRequest, handler func(w http.ResponseWriter, req capturedRequest)) *OpenAIGenerator {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req capturedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		*captured = req
		handler(w, req)
	}))
	t.Cleanup(server.Close)

	return NewOpenAIGenerator(config.OpenAIConfig{APIKey: "test", BaseURL: server.URL, Model: "gemini-1.5-flash"})
}

func TestOpenAIGenerate(t *testing.T) {
	var captured capturedRequest
	gen := newOpenAIServer(t, &captured, func(w http.ResponseWriter, _ capturedRequest) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Hello!"},"finish_reason":"stop"}]}`)
	})

	reply, err := gen.Generate(context.Background(), Request{
		System:  "sys",
		History: []chat.Message{{Role: chat.RoleAssistant, Content: "before"}},
		Query:   "Hi",
	})
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if reply != "Hello!" {
		t.Fatalf("unexpected reply %q", reply)
	}

	if captured.Model != "gemini-1.5-flash" || len(captured.Messages) != 3 {
		t.Fatalf("unexpected request %+v", captured)
	}
	if captured.Messages[0].Role != "system" || captured.Messages[1].Role != "assistant" || captured.Messages[2].Content != "Hi" {
		t.Fatalf("unexpected messages %+v", captured.Messages)
	}
}

func TestOpenAIGenerateEmptyChoices(t *testing.T) {
	var captured capturedRequest
	gen := newOpenAIServer(t, &captured, func(w http.ResponseWriter, _ capturedRequest) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","object":"chat.completion","choices":[]}`)
	})

	if _, err := gen.Generate(context.Background(), Request{Query: "Hi"}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestOpenAIStream(t *testing.T) {
	var captured capturedRequest
	gen := newOpenAIServer(t, &captured, func(w http.ResponseWriter, _ capturedRequest) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hel", "lo!"} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var deltas []string
	reply, err := gen.Stream(context.Background(), Request{Query: "Hi"}, func(d string) {
		deltas = append(deltas, d)
	})
	if err != nil {
		t.Fatalf("Stream err: %v", err)
	}
	if reply != "Hello!" || len(deltas) != 2 {
		t.Fatalf("unexpected stream result %q %v", reply, deltas)
	}
	if !captured.Stream {
		t.Fatal("expected stream flag on request")
	}
}

func TestOpenAIGenerateServerError(t *testing.T) {
	var captured capturedRequest
	gen := newOpenAIServer(t, &captured, func(w http.ResponseWriter, _ capturedRequest) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom","type":"server_error"}}`)
	})

	if _, err := gen.Generate(context.Background(), Request{Query: "Hi"}); err == nil {
		t.Fatal("expected error from failing endpoint")
	}
}
