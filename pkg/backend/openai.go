package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI implements Backend for OpenAI-compatible chat completion APIs,
// including Ollama's /v1 endpoint
type OpenAI struct {
	client openai.Client
	cfg    Config
}

// NewOpenAI creates an OpenAI-compatible backend
func NewOpenAI(cfg Config) *OpenAI {
	opts := []option.RequestOption{
		option.WithHTTPClient(cfg.httpClient()),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.URL != "" {
		url := cfg.URL
		if !strings.HasSuffix(url, "/") {
			url += "/"
		}
		opts = append(opts, option.WithBaseURL(url))
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}
}

// Provider returns the provider name
func (p *OpenAI) Provider() string {
	return ProviderOpenAI
}

// Generate makes a chat completion call
func (p *OpenAI) Generate(ctx context.Context, request Request) (*Response, error) {
	request = withDefaults(request, p.cfg)

	messages := []openai.ChatCompletionMessageParamUnion{}
	if request.System != "" {
		messages = append(messages, openai.SystemMessage(request.System))
	}
	messages = append(messages, openai.UserMessage(request.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(request.Model),
		Messages: messages,
	}
	if request.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(request.MaxTokens))
	}
	if request.Temperature > 0 {
		params.Temperature = openai.Float(request.Temperature)
	}

	response, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	model := response.Model
	if model == "" {
		model = request.Model
	}

	return &Response{
		Text:  response.Choices[0].Message.Content,
		Model: model,
		Usage: &TokenUsage{
			InputTokens:  int(response.Usage.PromptTokens),
			OutputTokens: int(response.Usage.CompletionTokens),
		},
	}, nil
}
