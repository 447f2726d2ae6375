// Package config loads and validates the engine's YAML configuration:
// global token budget, provider chain, phase partitioning overrides, and
// quality targets. Loading follows the teacher's load -> expand-env ->
// merge-with-defaults -> validate pipeline.
package config

import "github.com/doculoom/engine/internal/model"

// ProviderConfig describes one configured LLM provider in the fallback
// chain (spec §4.4 layer 5).
type ProviderConfig struct {
	Name               string `yaml:"name" validate:"required"`
	Model              string `yaml:"model" validate:"required"`
	Endpoint           string `yaml:"endpoint,omitempty"`
	APIKeyEnv          string `yaml:"api_key_env,omitempty"`
	TimeoutSeconds     int    `yaml:"timeout_seconds,omitempty" validate:"omitempty,min=1"`
	TiktokenEncoding   string `yaml:"tiktoken_encoding,omitempty"`
}

// PhasePartition is one phase's share of the global budget, expressed as a
// fraction of G (spec §4.1 "Initial partitioning").
type PhasePartition struct {
	Phase    model.Phase `yaml:"phase" validate:"required"`
	Fraction float64     `yaml:"fraction" validate:"required,gt=0,lt=1"`
}

// BudgetConfig configures TALE.
type BudgetConfig struct {
	Global        int64            `yaml:"global,omitempty" validate:"omitempty,min=1"`
	ReserveFrac   float64          `yaml:"reserve_fraction,omitempty" validate:"omitempty,gt=0,lt=1"`
	Mode          model.EnforcementMode `yaml:"mode,omitempty"`
	Partitions    []PhasePartition `yaml:"partitions,omitempty"`
}

// DiscoveryConfig configures Phase 2's ignore rules. EntryPoints,
// CoreMarkers and LeafMarkers are loaded and defaulted, but tier assignment
// (discovery.AssignTier) uses its own built-in lists and does not read them.
type DiscoveryConfig struct {
	IgnoreGlobs   []string `yaml:"ignore_globs,omitempty"`
	EntryPoints   []string `yaml:"entry_points,omitempty"`
	CoreMarkers   []string `yaml:"core_markers,omitempty"`
	LeafMarkers   []string `yaml:"leaf_markers,omitempty"`
}

// ParallelismConfig bounds per-phase fan-out (spec §5 "buffer_unordered(N)").
type ParallelismConfig struct {
	CharacterizationTurn int `yaml:"characterization_turn,omitempty" validate:"omitempty,min=1"`
	BottomUpPerTier      int `yaml:"bottom_up_per_tier,omitempty" validate:"omitempty,min=1"`
	TopDown              int `yaml:"top_down,omitempty" validate:"omitempty,min=1"`
	ConsolidationDomains  int `yaml:"consolidation_domains,omitempty" validate:"omitempty,min=1"`
}

// Config is the fully loaded, validated engine configuration.
type Config struct {
	Providers     []ProviderConfig  `yaml:"providers" validate:"required,min=1,dive"`
	Budget        BudgetConfig      `yaml:"budget"`
	Discovery     DiscoveryConfig   `yaml:"discovery"`
	Parallelism   ParallelismConfig `yaml:"parallelism"`
	DatabaseDSN   string            `yaml:"database_dsn,omitempty"`
}
