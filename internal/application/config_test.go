package application

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridict/veridict/infrastructure/nli"
	"github.com/veridict/veridict/internal/aggregation"
)

// writeConfig writes a config file into a temp dir and returns its
// path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_AppliesDefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
queue:
  max_workers: 8
aggregation:
  default_strategy: majority_vote
nli:
  provider: anthropic
  api_key: file-key
retrieval:
  corpus_path: /data/corpus.yaml
server:
  metrics_addr: ":9100"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Queue.MaxWorkers)
	assert.Equal(t, aggregation.StrategyMajorityVote, cfg.Aggregation.DefaultStrategy)
	assert.Equal(t, nli.ProviderAnthropic, cfg.NLI.Provider)
	assert.Equal(t, "file-key", cfg.NLI.APIKey)
	assert.Equal(t, ":9100", cfg.Server.MetricsAddr)

	// Sections absent from the file keep their defaults.
	assert.Equal(t, time.Hour, cfg.Storage.ResultTTL)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.InDelta(t, 0.5, cfg.Verification.MinConfidence, 1e-9)
}

func TestLoad_EnvOverridesWinForSecrets(t *testing.T) {
	path := writeConfig(t, `
nli:
  provider: openai
  api_key: file-key
retrieval:
  corpus_path: /data/corpus.yaml
`)

	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvMetricsAddr, ":9999")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.NLI.APIKey)
	assert.Equal(t, ":9999", cfg.Server.MetricsAddr)
}

func TestLoad_ProviderSpecificKeyFallback(t *testing.T) {
	path := writeConfig(t, `
nli:
  provider: anthropic
retrieval:
  corpus_path: /data/corpus.yaml
`)

	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvAnthropicKey, "anthropic-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic-key", cfg.NLI.APIKey)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing api key",
			content: `
nli:
  provider: openai
retrieval:
  corpus_path: /data/corpus.yaml
`,
		},
		{
			name: "missing corpus path",
			content: `
nli:
  provider: openai
  api_key: key
`,
		},
		{
			name: "bad worker count",
			content: `
queue:
  max_workers: 0
nli:
  provider: openai
  api_key: key
retrieval:
  corpus_path: /data/corpus.yaml
`,
		},
		{
			name: "unknown strategy",
			content: `
aggregation:
  default_strategy: coin_flip
nli:
  provider: openai
  api_key: key
retrieval:
  corpus_path: /data/corpus.yaml
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Make sure ambient keys do not mask the failure.
			t.Setenv(EnvAPIKey, "")
			t.Setenv(EnvOpenAIKey, "")
			t.Setenv(EnvCorpusPath, "")

			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "configuration validation failed")
		})
	}
}

func TestLoad_FileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "reading config file")

	_, err = Load(writeConfig(t, "queue: [not-a-map"))
	require.ErrorContains(t, err, "parsing config file")
}

func TestDefaultConfig_IsInternallyConsistent(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5, cfg.Queue.MaxWorkers)
	assert.Equal(t, 5*time.Minute, cfg.Storage.CleanupInterval)
	assert.Equal(t, aggregation.StrategyWeightedVote, cfg.Aggregation.DefaultStrategy)
	assert.Equal(t, 2*time.Second, cfg.Retry.InitialBackoff)
	assert.Equal(t, nli.ProviderOpenAI, cfg.NLI.Provider)
	assert.Positive(t, cfg.NLI.RequestsPerSecond)
}
