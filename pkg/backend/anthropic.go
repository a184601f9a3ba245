package backend

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 1024

// Anthropic implements Backend for the Anthropic messages API
type Anthropic struct {
	client anthropic.Client
	cfg    Config
}

// NewAnthropic creates an Anthropic backend
func NewAnthropic(cfg Config) *Anthropic {
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

	return &Anthropic{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
	}
}

// Provider returns the provider name
func (p *Anthropic) Provider() string {
	return ProviderAnthropic
}

// Generate makes a messages API call
func (p *Anthropic) Generate(ctx context.Context, request Request) (*Response, error) {
	request = withDefaults(request, p.cfg)

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(request.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(request.Prompt)),
		},
	}
	if request.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: request.System},
		}
	}
	if request.Temperature > 0 {
		params.Temperature = anthropic.Float(request.Temperature)
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	text := ""
	for _, block := range message.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += b.Text
		}
	}

	model := string(message.Model)
	if model == "" {
		model = request.Model
	}

	return &Response{
		Text:  text,
		Model: model,
		Usage: &TokenUsage{
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
		},
	}, nil
}
