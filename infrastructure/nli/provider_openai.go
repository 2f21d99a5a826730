package nli

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/veridict/veridict/internal/domain"
	"github.com/veridict/veridict/internal/ports"
)

// OpenAIDefaultModel is used when the configuration does not name a
// model.
const OpenAIDefaultModel = "gpt-4o-mini"

// Classification wants determinism, so temperature is pinned to zero
// for every provider.
const inferenceTemperature = 0

// openAIClient implements ports.NLIClient on OpenAI's chat completion
// API.
type openAIClient struct {
	client *openai.Client
	model  string
}

func newOpenAIClient(cfg Config) (*openAIClient, error) {
	model := cfg.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &openAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Infer classifies the premise/hypothesis pair with one chat
// completion call.
func (c *openAIClient) Infer(ctx context.Context, premise, hypothesis string) (domain.EvidenceJudgment, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: inferenceTemperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(premise, hypothesis)},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.EvidenceJudgment{}, c.classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return domain.EvidenceJudgment{}, ports.NewNLIError(c.Provider(), "infer",
			errors.New("response contained no choices"))
	}

	return parseJudgment(c.Provider(), resp.Choices[0].Message.Content)
}

// Provider returns the backend identifier.
func (c *openAIClient) Provider() string { return ProviderOpenAI }

// classifyError maps OpenAI API failures onto the shared error
// taxonomy so retry policies work uniformly across providers.
func (c *openAIClient) classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ports.NewNLIError(c.Provider(), "infer", ports.ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return ports.NewNLIError(c.Provider(), "infer", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return ports.NewNLIError(c.Provider(), "infer", classifyHTTPStatus(apiErr.HTTPStatusCode, err))
	}
	return ports.NewNLIError(c.Provider(), "infer", err)
}

// classifyHTTPStatus maps an HTTP status code to a sentinel from the
// ports error taxonomy, keeping the original error in the chain.
func classifyHTTPStatus(status int, err error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.Join(ports.ErrAuthenticationFailed, err)
	case status == http.StatusTooManyRequests:
		return errors.Join(ports.ErrRateLimited, err)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return errors.Join(ports.ErrTimeout, err)
	case status >= 500:
		return errors.Join(ports.ErrServiceUnavailable, err)
	default:
		return err
	}
}
