// Package application wires the verification core together: it loads
// and validates configuration, constructs every component with explicit
// dependency injection, and hands the assembled service to the command
// layer. No package-level singletons are involved; the caller owns the
// lifecycle of everything Build returns.
package application

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/veridict/veridict/infrastructure/nli"
	"github.com/veridict/veridict/internal/aggregation"
	"github.com/veridict/veridict/internal/queue"
	"github.com/veridict/veridict/internal/retry"
	"github.com/veridict/veridict/internal/storage"
	"github.com/veridict/veridict/internal/verification"
)

// Environment variables consulted for secrets so API keys never need to
// live in the config file.
const (
	EnvAPIKey          = "VERIDICT_NLI_API_KEY"
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvAnthropicKey    = "ANTHROPIC_API_KEY"
	EnvGoogleAPIKey    = "GEMINI_API_KEY"
	EnvMetricsAddr     = "VERIDICT_METRICS_ADDR"
	EnvCorpusPath      = "VERIDICT_CORPUS_PATH"
	defaultMetricsAddr = ":9090"
)

var validate = validator.New()

// Config is the complete service configuration. Section structs are
// owned by the packages they configure; this type only composes them.
type Config struct {
	// Server holds the operational endpoints and shutdown behavior.
	Server ServerConfig `yaml:"server"`

	// Queue configures the worker pool.
	Queue queue.Config `yaml:"queue"`

	// Storage configures the result store TTL and cleanup cadence.
	Storage storage.Config `yaml:"storage"`

	// Aggregation configures the verdict engine defaults.
	Aggregation aggregation.Config `yaml:"aggregation"`

	// Retry configures the per-job retry executor.
	Retry retry.Config `yaml:"retry"`

	// Verification configures the claim pipeline.
	Verification verification.Config `yaml:"verification"`

	// NLI configures the inference backend and its request pacing.
	NLI NLIConfig `yaml:"nli"`

	// Retrieval configures the evidence source.
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// ServerConfig holds the HTTP endpoint for metrics and the shutdown
// budget for the worker pool.
type ServerConfig struct {
	// MetricsAddr is the listen address for the /metrics endpoint.
	MetricsAddr string `yaml:"metrics_addr" validate:"required"`

	// ShutdownTimeout bounds how long shutdown waits for in-flight jobs.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
}

// NLIConfig extends the provider client settings with request pacing.
type NLIConfig struct {
	nli.Config `yaml:",inline"`

	// RequestsPerSecond is the sustained inference rate across all
	// workers. Zero disables rate limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0"`

	// Burst is the token-bucket burst size; ignored when rate limiting
	// is disabled.
	Burst int `yaml:"burst" validate:"min=0"`
}

// RetrievalConfig names the evidence corpus.
type RetrievalConfig struct {
	// CorpusPath points at the YAML snippet corpus the retriever serves.
	CorpusPath string `yaml:"corpus_path" validate:"required"`
}

// DefaultConfig returns a Config with every section at its package
// default and a local metrics endpoint. The NLI API key and corpus path
// still have to come from the file or the environment.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			MetricsAddr:     defaultMetricsAddr,
			ShutdownTimeout: 30 * time.Second,
		},
		Queue:        queue.DefaultConfig(),
		Storage:      storage.DefaultConfig(),
		Aggregation:  aggregation.DefaultConfig(),
		Retry:        retry.DefaultConfig(),
		Verification: verification.DefaultConfig(),
		NLI: NLIConfig{
			Config: nli.Config{
				Provider: nli.ProviderOpenAI,
				Timeout:  nli.DefaultTimeout,
			},
			RequestsPerSecond: 5,
			Burst:             5,
		},
	}
}

// Load reads a YAML configuration file, layers it over the defaults,
// applies environment overrides for secrets and endpoints, and
// validates the result. An empty path yields defaults plus environment
// overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides fills secrets and endpoints from the environment.
// The generic VERIDICT_NLI_API_KEY wins over provider-specific keys.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		cfg.Server.MetricsAddr = v
	}
	if v := os.Getenv(EnvCorpusPath); v != "" {
		cfg.Retrieval.CorpusPath = v
	}

	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.NLI.APIKey = v
		return
	}
	if cfg.NLI.APIKey != "" {
		return
	}
	switch cfg.NLI.Provider {
	case nli.ProviderOpenAI:
		cfg.NLI.APIKey = os.Getenv(EnvOpenAIKey)
	case nli.ProviderAnthropic:
		cfg.NLI.APIKey = os.Getenv(EnvAnthropicKey)
	case nli.ProviderGoogle:
		cfg.NLI.APIKey = os.Getenv(EnvGoogleAPIKey)
	}
}
