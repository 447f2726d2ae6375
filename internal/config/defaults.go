package config

import "github.com/doculoom/engine/internal/model"

// DefaultGlobalBudget is G, the default global token budget (spec §4.1).
const DefaultGlobalBudget int64 = 1_000_000

// DefaultReserveFraction is the reserve buffer's share of G (spec §4.1:
// "reserve buffer 5%"). TALE records it separately; it does not shrink the
// base the phase fractions apply to.
const DefaultReserveFraction = 0.05

// defaultPartitions is the initial per-phase split, as fractions of the
// full G (the reserve is not subtracted first), verbatim from spec §4.1.
var defaultPartitions = []PhasePartition{
	{Phase: model.PhaseCharacterization, Fraction: 0.05},
	{Phase: model.PhaseBottomUp, Fraction: 0.50},
	{Phase: model.PhaseTopDown, Fraction: 0.10},
	{Phase: model.PhaseConsolidation, Fraction: 0.20},
	{Phase: model.PhaseRefinement, Fraction: 0.15},
}

// defaultIgnoreGlobs mirrors common VCS/build noise; projects extend this,
// they rarely need to replace it.
var defaultIgnoreGlobs = []string{
	"**/.git/**", "**/node_modules/**", "**/vendor/**", "**/dist/**",
	"**/build/**", "**/.venv/**", "**/__pycache__/**",
}

var defaultEntryPoints = []string{"main.*", "lib.*", "index.*"}
var defaultCoreMarkers = []string{"core", "business"}
var defaultLeafMarkers = []string{"util", "helper", "common"}

// applyDefaults fills unset fields with the engine's built-in defaults,
// mirroring the teacher's merge-built-in-then-user-config shape
// (pkg/config/loader.go step "Apply default values").
func applyDefaults(cfg *Config) {
	if cfg.Budget.Global == 0 {
		cfg.Budget.Global = DefaultGlobalBudget
	}
	if cfg.Budget.ReserveFrac == 0 {
		cfg.Budget.ReserveFrac = DefaultReserveFraction
	}
	if cfg.Budget.Mode == "" {
		cfg.Budget.Mode = model.EnforcementHard
	}
	if len(cfg.Budget.Partitions) == 0 {
		cfg.Budget.Partitions = append([]PhasePartition(nil), defaultPartitions...)
	}
	if len(cfg.Discovery.IgnoreGlobs) == 0 {
		cfg.Discovery.IgnoreGlobs = append([]string(nil), defaultIgnoreGlobs...)
	}
	if len(cfg.Discovery.EntryPoints) == 0 {
		cfg.Discovery.EntryPoints = append([]string(nil), defaultEntryPoints...)
	}
	if len(cfg.Discovery.CoreMarkers) == 0 {
		cfg.Discovery.CoreMarkers = append([]string(nil), defaultCoreMarkers...)
	}
	if len(cfg.Discovery.LeafMarkers) == 0 {
		cfg.Discovery.LeafMarkers = append([]string(nil), defaultLeafMarkers...)
	}
	if cfg.Parallelism.CharacterizationTurn == 0 {
		cfg.Parallelism.CharacterizationTurn = 3
	}
	if cfg.Parallelism.BottomUpPerTier == 0 {
		cfg.Parallelism.BottomUpPerTier = 8
	}
	if cfg.Parallelism.TopDown == 0 {
		cfg.Parallelism.TopDown = 4
	}
	if cfg.Parallelism.ConsolidationDomains == 0 {
		cfg.Parallelism.ConsolidationDomains = 4
	}
}
