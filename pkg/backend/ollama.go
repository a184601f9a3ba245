package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// DefaultOllamaURL is the address of a local Ollama server
const DefaultOllamaURL = "http://localhost:11434"

// Ollama implements Backend for a local Ollama server
type Ollama struct {
	llm *ollama.LLM
	cfg Config
}

// NewOllama creates an Ollama backend. A URL ending in /api/generate is
// accepted and trimmed to the server root.
func NewOllama(cfg Config) (*Ollama, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = DefaultOllamaURL
	}
	url = strings.TrimSuffix(strings.TrimSuffix(url, "/"), "/api/generate")
	cfg.URL = url

	opts := []ollama.Option{
		ollama.WithServerURL(url),
		ollama.WithHTTPClient(cfg.httpClient()),
	}
	if cfg.Model != "" {
		opts = append(opts, ollama.WithModel(cfg.Model))
	}

	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	return &Ollama{llm: llm, cfg: cfg}, nil
}

// Provider returns the provider name
func (o *Ollama) Provider() string {
	return ProviderOllama
}

// Generate sends the prompt to the Ollama chat endpoint
func (o *Ollama) Generate(ctx context.Context, request Request) (*Response, error) {
	request = withDefaults(request, o.cfg)

	messages := make([]llms.MessageContent, 0, 2)
	if request.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, request.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, request.Prompt))

	callOpts := []llms.CallOption{llms.WithModel(request.Model)}
	if request.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(request.Temperature))
	}
	if request.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(request.MaxTokens))
	}

	resp, err := o.llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	return &Response{
		Text:  resp.Choices[0].Content,
		Model: request.Model,
	}, nil
}
