package nli

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/veridict/veridict/internal/domain"
	"github.com/veridict/veridict/internal/ports"
)

// Anthropic provider constants.
const (
	// AnthropicDefaultModel is used when the configuration does not
	// name a model.
	AnthropicDefaultModel = "claude-3-5-haiku-20241022"

	// anthropicMaxTokens caps the reply; the JSON judgment is small.
	anthropicMaxTokens = 512
)

// anthropicClient implements ports.NLIClient on Anthropic's Messages
// API.
type anthropicClient struct {
	client anthropic.Client
	model  string
}

func newAnthropicClient(cfg Config) (*anthropicClient, error) {
	model := cfg.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &anthropicClient{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

// Infer classifies the premise/hypothesis pair with one Messages call.
func (c *anthropicClient) Infer(ctx context.Context, premise, hypothesis string) (domain.EvidenceJudgment, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   anthropicMaxTokens,
		Temperature: anthropic.Float(inferenceTemperature),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(premise, hypothesis))),
		},
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return domain.EvidenceJudgment{}, c.classifyError(err)
	}

	var content strings.Builder
	for _, block := range message.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			content.WriteString(b.Text)
		}
	}
	if content.Len() == 0 {
		return domain.EvidenceJudgment{}, ports.NewNLIError(c.Provider(), "infer",
			errors.New("response contained no text"))
	}

	return parseJudgment(c.Provider(), content.String())
}

// Provider returns the backend identifier.
func (c *anthropicClient) Provider() string { return ProviderAnthropic }

func (c *anthropicClient) classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ports.NewNLIError(c.Provider(), "infer", ports.ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return ports.NewNLIError(c.Provider(), "infer", err)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return ports.NewNLIError(c.Provider(), "infer", classifyHTTPStatus(apiErr.StatusCode, err))
	}
	return ports.NewNLIError(c.Provider(), "infer", err)
}
