package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Provider names
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Backend generates text for a prompt
type Backend interface {
	// Generate runs one inference call
	Generate(ctx context.Context, request Request) (*Response, error)

	// Provider returns the provider name
	Provider() string
}

// Request contains the parameters of one inference call
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Response contains the generated text
type Response struct {
	Text  string
	Model string
	Usage *TokenUsage
}

// TokenUsage reports token counts when the provider returns them
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Config describes one configured backend
type Config struct {
	Provider    string
	URL         string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.Timeout}
}

// Factory creates backends from configuration
type Factory struct{}

// New creates a backend for cfg.Provider
func (f *Factory) New(cfg Config) (Backend, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOllama:
		return NewOllama(cfg)
	case ProviderOpenAI:
		return NewOpenAI(cfg), nil
	case ProviderAnthropic:
		return NewAnthropic(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// withDefaults fills model and sampling parameters left empty in the request.
func withDefaults(req Request, cfg Config) Request {
	if req.Model == "" {
		req.Model = cfg.Model
	}
	if req.Temperature == 0 {
		req.Temperature = cfg.Temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = cfg.MaxTokens
	}
	return req
}
