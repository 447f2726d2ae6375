package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doculoom/engine/internal/model"
)

func TestLoadAppliesDefaultsOverMinimalFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ENGINE_API_KEY", "test-key")

	// A minimal user file is still required: providers has no built-in.
	writeConfig(t, dir, `
providers:
  - name: primary
    model: test-model
    api_key_env: ENGINE_API_KEY
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultGlobalBudget, cfg.Budget.Global)
	assert.Equal(t, model.EnforcementHard, cfg.Budget.Mode)
	assert.Len(t, cfg.Budget.Partitions, 5)
	assert.Equal(t, 8, cfg.Parallelism.BottomUpPerTier)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ENGINE_MODEL", "gpt-special")
	writeConfig(t, dir, `
providers:
  - name: primary
    model: ${ENGINE_MODEL}
    api_key_env: ENGINE_API_KEY
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "gpt-special", cfg.Providers[0].Model)
}

func TestLoadRejectsNoProviders(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `budget:
  global: 500000
`)

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoadRejectsOversizedPartitions(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
providers:
  - name: primary
    model: m
budget:
  partitions:
    - phase: characterization
      fraction: 0.6
    - phase: bottom_up
      fraction: 0.6
`)

	_, err := Load(dir)
	require.ErrorIs(t, err, ErrValidationFailed)
}

func writeConfig(t *testing.T, dir, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte(contents), 0o644))
}
