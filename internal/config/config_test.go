package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ExplicitMissingConfigFileIsError(t *testing.T) {
	cfg, err := Load("/nonexistent/path/does-not-exist.yaml")
	require.Error(t, err)
	_ = cfg
}

func TestLoad_DefaultsWithNoFileOnDisk(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "anthropic", cfg.OracleProvider)
	assert.Equal(t, 5, cfg.MaxToolCalls)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, 3, cfg.MaxReprompts)
	assert.Equal(t, 1000, cfg.MaxQuestionLength)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	t.Setenv("DOCUQA_MAX_TOOL_CALLS", "9")
	t.Setenv("DOCUQA_ORACLE_PROVIDER", "openai")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.MaxToolCalls)
	assert.Equal(t, "openai", cfg.OracleProvider)
}
