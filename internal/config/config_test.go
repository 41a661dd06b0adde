package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := writeConfigFile(t, `
llm:
  api_key: test-key
  temperature: 0.2
github:
  repo_owner: alice
  repo_name: resume
analysis:
  keep_threshold: 0.8
  rewrite_threshold: 0.5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.Equal(t, "alice", cfg.GitHub.RepoOwner)
	assert.InDelta(t, 0.8, cfg.Analysis.KeepThreshold, 0.001)
	// Defaults fill unset keys
	assert.Equal(t, "main", cfg.GitHub.Branch)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.ParsingModel)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("ATS_LLM_API_KEY", "")

	path := writeConfigFile(t, `
github:
  repo_owner: alice
`)

	_, err := Load(path)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Field, "APIKey")
}

func TestLoad_EnvFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("GITHUB_TOKEN", "env-token")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.LLM.APIKey)
	assert.Equal(t, "env-token", cfg.GitHub.Token)
}

func TestLoad_ThresholdOrdering(t *testing.T) {
	path := writeConfigFile(t, `
llm:
  api_key: test-key
analysis:
  rewrite_threshold: 0.9
  keep_threshold: 0.5
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keep_threshold")
}

func TestLoad_BadThresholdRange(t *testing.T) {
	path := writeConfigFile(t, `
llm:
  api_key: test-key
analysis:
  keep_threshold: 1.5
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
