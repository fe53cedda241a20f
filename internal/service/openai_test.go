package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pcstore/internal/config"
)

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient(&config.OpenAIConfig{
		APIKey:        "test-key",
		APIBase:       srv.URL,
		ChatModel:     "test-model",
		ChatMaxTokens: 256,
		ChatExtraBody: `{"chat_template_kwargs":{"thinking":true}}`,
		Timeout:       5,
		Enabled:       true,
	})
}

func TestOpenAIClient_Extract(t *testing.T) {
	var got ChatCompletionRequest
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"id":"1","model":"test-model","choices":[{"index":0,"message":{"role":"assistant","content":"{\"budget\": 1500}"}}]}`)
	})

	out, err := client.Extract(context.Background(), "27 inch monitor under 1500 PLN")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if out != `{"budget": 1500}` {
		t.Errorf("out = %q", out)
	}

	if got.Model != "test-model" || got.MaxTokens != 256 || got.Temperature != 0.1 {
		t.Errorf("request = %+v", got)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Errorf("response format = %+v", got.ResponseFormat)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "27 inch monitor under 1500 PLN" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.ExtraBody == nil {
		t.Error("extra body not forwarded")
	}
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"rate limited"}`)
	})

	_, err := client.Generate(context.Background(), "monitor", "### Product 1: **X**")
	if err == nil || !strings.Contains(err.Error(), "status 429") {
		t.Errorf("error = %v", err)
	}
}

func TestOpenAIClient_Disabled(t *testing.T) {
	client := NewOpenAIClient(&config.OpenAIConfig{Timeout: 1})
	if client.IsEnabled() {
		t.Fatal("client without key reports enabled")
	}
	if _, err := client.Extract(context.Background(), "x"); err == nil {
		t.Error("expected error from disabled client")
	}
}

func TestOpenAIClient_GenerateStream(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range []string{
			`data: {"choices":[{"delta":{"role":"assistant","reasoning_content":"comparing panels"}}]}`,
			`: keep-alive`,
			`data: {"choices":[{"delta":{"content":"**Product 1**"}}]}`,
			`data: not json`,
			`data: {"choices":[{"delta":{"content":" is the pick."},"finish_reason":"stop"}]}`,
			`data: [DONE]`,
			`data: {"choices":[{"delta":{"content":"after done"}}]}`,
		} {
			fmt.Fprintf(w, "%s\n\n", line)
		}
	})

	var content, thinking strings.Builder
	reply, err := client.GenerateStream(context.Background(), "monitor", "### Product 1: **X**", func(chunk *StreamChunk) error {
		content.WriteString(chunk.Content)
		thinking.WriteString(chunk.ThinkingContent)
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateStream() error = %v", err)
	}
	if reply != "**Product 1** is the pick." || content.String() != reply {
		t.Errorf("reply = %q, streamed = %q", reply, content.String())
	}
	if thinking.String() != "comparing panels" {
		t.Errorf("thinking = %q", thinking.String())
	}
}

func TestOpenAIClient_GenerateStreamCallbackError(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\ndata: [DONE]\n\n")
	})
	gone := errors.New("client gone")

	_, err := client.GenerateStream(context.Background(), "m", "l", func(chunk *StreamChunk) error {
		return gone
	})
	if !errors.Is(err, gone) {
		t.Errorf("error = %v, want %v", err, gone)
	}
}

func TestParseStreamChunk(t *testing.T) {
	chunk, err := ParseStreamChunk([]byte(`{"choices":[{"delta":{"content":"hi"},"finish_reason":"stop"}]}`))
	if err != nil {
		t.Fatalf("ParseStreamChunk() error = %v", err)
	}
	if chunk.Content != "hi" || !chunk.Done || chunk.ThinkingContent != "" {
		t.Errorf("chunk = %+v", chunk)
	}

	if _, err := ParseStreamChunk([]byte(`{`)); err == nil {
		t.Error("expected error for truncated chunk")
	}
}
