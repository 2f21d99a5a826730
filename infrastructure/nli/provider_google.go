package nli

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/veridict/veridict/internal/domain"
	"github.com/veridict/veridict/internal/ports"
)

// GoogleDefaultModel is used when the configuration does not name a
// model.
const GoogleDefaultModel = "gemini-2.0-flash"

// googleClient implements ports.NLIClient on Google's Gemini API.
type googleClient struct {
	client *genai.Client
	model  string
}

func newGoogleClient(cfg Config) (*googleClient, error) {
	model := cfg.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, ports.NewNLIError(ProviderGoogle, "create_client", err)
	}

	return &googleClient{client: client, model: model}, nil
}

// Infer classifies the premise/hypothesis pair with one GenerateContent
// call. Gemini has no separate system role, so the system prompt is
// delivered via SystemInstruction.
func (c *googleClient) Infer(ctx context.Context, premise, hypothesis string) (domain.EvidenceJudgment, error) {
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(inferenceTemperature)),
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	contents := []*genai.Content{
		genai.NewContentFromText(buildPrompt(premise, hypothesis), genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return domain.EvidenceJudgment{}, c.classifyError(err)
	}

	content := resp.Text()
	if content == "" {
		return domain.EvidenceJudgment{}, ports.NewNLIError(c.Provider(), "infer",
			errors.New("response contained no text"))
	}

	return parseJudgment(c.Provider(), content)
}

// Provider returns the backend identifier.
func (c *googleClient) Provider() string { return ProviderGoogle }

func (c *googleClient) classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ports.NewNLIError(c.Provider(), "infer", ports.ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return ports.NewNLIError(c.Provider(), "infer", err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return ports.NewNLIError(c.Provider(), "infer", classifyHTTPStatus(apiErr.Code, err))
	}
	return ports.NewNLIError(c.Provider(), "infer", err)
}
