// Package nli provides LLM-backed implementations of the NLIClient
// port. Each provider formats the same classification prompt for its
// API, parses the model's JSON reply into an EvidenceJudgment, and maps
// provider failures onto the shared infrastructure error taxonomy.
package nli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/veridict/veridict/internal/domain"
	"github.com/veridict/veridict/internal/ports"
)

// Provider identifiers accepted by New.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// DefaultTimeout bounds a single inference call when the configuration
// does not set one.
const DefaultTimeout = 30 * time.Second

// Config holds provider-agnostic client settings.
type Config struct {
	// Provider selects the backend implementation.
	Provider string `yaml:"provider" json:"provider" validate:"required,oneof=openai anthropic google"`

	// APIKey authenticates against the provider. Required for all
	// backends.
	APIKey string `yaml:"api_key" json:"-" validate:"required"`

	// Model overrides the provider's default model when non-empty.
	Model string `yaml:"model" json:"model"`

	// BaseURL overrides the provider's default endpoint, mainly for
	// proxies and compatible self-hosted backends.
	BaseURL string `yaml:"base_url" json:"base_url" validate:"omitempty,url"`

	// Timeout bounds a single inference call.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

var validate = validator.New()

// New constructs the NLI client named by cfg.Provider.
func New(cfg Config) (ports.NLIClient, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	case ProviderGoogle:
		return newGoogleClient(cfg)
	default:
		return nil, fmt.Errorf("unknown nli provider %q", cfg.Provider)
	}
}

// systemPrompt instructs the model to act as an NLI classifier and to
// reply with JSON only. All providers share it so their outputs stay
// comparable.
const systemPrompt = `You are a natural language inference classifier.
Given a PREMISE (an evidence snippet) and a HYPOTHESIS (a claim), decide
whether the premise entails, contradicts, or is neutral toward the
hypothesis. Respond with a single JSON object and nothing else:
{"label": "entailment"|"contradiction"|"neutral", "confidence": <0.0-1.0>, "scores": {"entailment": <p>, "contradiction": <p>, "neutral": <p>}}
The three scores must sum to 1.0 and confidence must equal the score of
the chosen label.`

// buildPrompt renders the user message for one premise/hypothesis pair.
func buildPrompt(premise, hypothesis string) string {
	var b strings.Builder
	b.WriteString("PREMISE: ")
	b.WriteString(premise)
	b.WriteString("\n\nHYPOTHESIS: ")
	b.WriteString(hypothesis)
	return b.String()
}

// judgmentResponse is the wire shape every provider's model must reply
// with.
type judgmentResponse struct {
	Label      string             `json:"label" validate:"required,oneof=entailment contradiction neutral"`
	Confidence float64            `json:"confidence" validate:"min=0.0,max=1.0"`
	Scores     map[string]float64 `json:"scores"`
}

// parseJudgment decodes and validates a model reply. Models sometimes
// wrap JSON in markdown code fences; those are stripped before
// decoding. Malformed or out-of-range replies map to
// ports.ErrInvalidResponse so callers can treat them uniformly.
func parseJudgment(provider, content string) (domain.EvidenceJudgment, error) {
	cleaned := stripCodeFence(content)

	var resp judgmentResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return domain.EvidenceJudgment{}, ports.NewNLIError(provider, "parse_response",
			fmt.Errorf("%w: %v", ports.ErrInvalidResponse, err))
	}
	if err := validate.Struct(resp); err != nil {
		return domain.EvidenceJudgment{}, ports.NewNLIError(provider, "validate_response",
			fmt.Errorf("%w: %v", ports.ErrInvalidResponse, err))
	}

	judgment := domain.EvidenceJudgment{
		Label:      domain.NLILabel(resp.Label),
		Confidence: resp.Confidence,
	}
	if len(resp.Scores) > 0 {
		judgment.Scores = make(map[domain.NLILabel]float64, len(resp.Scores))
		for label, score := range resp.Scores {
			judgment.Scores[domain.NLILabel(label)] = score
		}
	}
	return judgment, nil
}

// stripCodeFence removes a surrounding markdown code fence, with or
// without a language tag, and trims whitespace.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 && !strings.HasPrefix(s, "{") {
		// Drop the language tag line (e.g. "json").
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
