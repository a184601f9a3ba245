package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestFactory(t *testing.T) {
	f := &Factory{}

	tests := []struct {
		provider string
		want     string
	}{
		{"", ProviderOllama},
		{"ollama", ProviderOllama},
		{"OpenAI", ProviderOpenAI},
		{"anthropic", ProviderAnthropic},
	}
	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.provider, func(t *testing.T) {
			b, err := f.New(Config{Provider: tt.provider, APIKey: "test"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.Provider())
		})
	}

	_, err := f.New(Config{Provider: "gemini"})
	assert.Error(t, err)
}

func TestWithDefaults(t *testing.T) {
	cfg := Config{Model: "base", Temperature: 0.2, MaxTokens: 64}

	req := withDefaults(Request{Prompt: "p"}, cfg)
	assert.Equal(t, "base", req.Model)
	assert.Equal(t, 0.2, req.Temperature)
	assert.Equal(t, 64, req.MaxTokens)

	req = withDefaults(Request{Model: "own", Temperature: 0.9, MaxTokens: 8}, cfg)
	assert.Equal(t, "own", req.Model)
	assert.Equal(t, 0.9, req.Temperature)
	assert.Equal(t, 8, req.MaxTokens)
}

func TestOllamaGenerate(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		body = decodeBody(t, r)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"model":      "qwen2.5:1.5b",
			"created_at": time.Now().UTC().Format(time.RFC3339Nano),
			"message":    map[string]interface{}{"role": "assistant", "content": `{"client": "Acme"}`},
			"done":       true,
		})
	}))
	defer server.Close()

	b, err := NewOllama(Config{URL: server.URL + "/api/generate", Model: "qwen2.5:1.5b"})
	require.NoError(t, err)
	assert.Equal(t, server.URL, b.cfg.URL)

	resp, err := b.Generate(context.Background(), Request{
		System: "You are a precise parser.",
		Prompt: "Parse this",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"client": "Acme"}`, resp.Text)
	assert.Equal(t, "qwen2.5:1.5b", resp.Model)

	assert.Equal(t, "qwen2.5:1.5b", body["model"])
	messages, ok := body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
	assert.Equal(t, "Parse this", messages[1].(map[string]interface{})["content"])
}

func TestOllamaServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	b, err := NewOllama(Config{URL: server.URL})
	require.NoError(t, err)

	_, err = b.Generate(context.Background(), Request{Model: "missing", Prompt: "hi"})
	assert.Error(t, err)
}

func TestOpenAIGenerate(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer ollama", r.Header.Get("Authorization"))
		body = decodeBody(t, r)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "qwen2.5:1.5b",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hola"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 1, "total_tokens": 6}
		}`))
	}))
	defer server.Close()

	b := NewOpenAI(Config{URL: server.URL + "/v1", APIKey: "ollama", Model: "qwen2.5:1.5b"})
	resp, err := b.Generate(context.Background(), Request{System: "Translate.", Prompt: "Hello", Temperature: 0.5})
	require.NoError(t, err)

	assert.Equal(t, "Hola", resp.Text)
	assert.Equal(t, "qwen2.5:1.5b", resp.Model)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 5, resp.Usage.InputTokens)
	assert.Equal(t, 1, resp.Usage.OutputTokens)

	assert.Equal(t, "qwen2.5:1.5b", body["model"])
	assert.Equal(t, 0.5, body["temperature"])
	assert.Len(t, body["messages"], 2)
}

func TestOpenAIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "bad model", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	b := NewOpenAI(Config{URL: server.URL, APIKey: "k"})
	_, err := b.Generate(context.Background(), Request{Model: "x", Prompt: "hi"})
	assert.Error(t, err)
}

func TestAnthropicGenerate(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		body = decodeBody(t, r)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "42"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 7, "output_tokens": 2}
		}`))
	}))
	defer server.Close()

	b := NewAnthropic(Config{URL: server.URL, APIKey: "test", Model: "claude-test"})
	resp, err := b.Generate(context.Background(), Request{System: "Return only numbers.", Prompt: "6*7"})
	require.NoError(t, err)

	assert.Equal(t, "42", resp.Text)
	assert.Equal(t, "claude-test", resp.Model)
	assert.Equal(t, 7, resp.Usage.InputTokens)

	assert.Equal(t, float64(defaultAnthropicMaxTokens), body["max_tokens"])
	assert.NotNil(t, body["system"])
}

func TestPool(t *testing.T) {
	p := NewPool("local")
	local := NewOpenAI(Config{})
	p.Add("local", local)
	p.Add("cloud", NewAnthropic(Config{APIKey: "k"}))

	b, name, err := p.Get("")
	require.NoError(t, err)
	assert.Equal(t, "local", name)
	assert.Same(t, local, b)

	b, name, err = p.Get("cloud")
	require.NoError(t, err)
	assert.Equal(t, "cloud", name)
	assert.Equal(t, ProviderAnthropic, b.Provider())

	_, _, err = p.Get("missing")
	assert.Error(t, err)

	assert.Equal(t, []string{"cloud", "local"}, p.Names())
}
