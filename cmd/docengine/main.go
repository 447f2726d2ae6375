// docengine drives the documentation-generation pipeline from the command
// line: init a session, run generate (optionally resuming), report status,
// and clean session state.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/doculoom/engine/internal/bottomup"
	"github.com/doculoom/engine/internal/budget"
	"github.com/doculoom/engine/internal/checkpoint"
	"github.com/doculoom/engine/internal/config"
	"github.com/doculoom/engine/internal/database"
	"github.com/doculoom/engine/internal/discovery"
	"github.com/doculoom/engine/internal/model"
	"github.com/doculoom/engine/internal/provider"
	"github.com/doculoom/engine/internal/registry"
	"github.com/doculoom/engine/internal/scheduler"
	"github.com/doculoom/engine/internal/version"
)

const (
	exitSuccess           = 0
	exitConfigError       = 2
	exitBudgetExceeded    = 3
	exitProviderDown      = 4
	exitCorruptCheckpoint = 5
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: docengine <init|generate|status|clean> [project-root] [flags]")
		return exitConfigError
	}

	verb := args[0]
	rest := args[1:]

	if verb == "version" {
		fmt.Println(version.Full())
		return exitSuccess
	}

	projectRoot := "."
	if len(rest) > 0 && rest[0] != "" && rest[0][0] != '-' {
		projectRoot = rest[0]
		rest = rest[1:]
	}
	projectRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve project root: %v\n", err)
		return exitConfigError
	}

	if getEnv("LOG_LEVEL", "info") == "debug" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	configDir := getEnv("CONFIG_DIR", "./deploy/config")
	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("no %s file found, continuing with existing environment", envPath)
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		return exitConfigError
	}

	ctx := context.Background()
	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load database config: %v\n", err)
		return exitConfigError
	}
	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to database: %v\n", err)
		return exitConfigError
	}
	defer dbClient.Close()

	sessions := database.NewSessionStore(dbClient)
	checkpoints := checkpoint.NewManager(checkpoint.NewPostgresStore(dbClient))

	switch verb {
	case "init":
		return cmdInit(ctx, sessions, projectRoot)
	case "generate":
		return cmdGenerate(ctx, cfg, sessions, checkpoints, dbClient, projectRoot, rest)
	case "status":
		return cmdStatus(ctx, sessions, projectRoot, rest)
	case "clean":
		return cmdClean(ctx, sessions, checkpoints, projectRoot, rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown verb %q\n", verb)
		return exitConfigError
	}
}

// cmdInit creates a pending session row for projectRoot, the state `generate`
// later resumes or drives to completion.
func cmdInit(ctx context.Context, sessions *database.SessionStore, projectRoot string) int {
	sess := model.NewSession(uuid.NewString(), projectRoot, model.ModeStandard, model.ScaleMedium, 0.80)
	if err := sessions.Create(ctx, sess); err != nil {
		fmt.Fprintf(os.Stderr, "init session: %v\n", err)
		return exitConfigError
	}
	fmt.Printf("session %s created for %s\n", sess.Snapshot().ID, projectRoot)
	return exitSuccess
}

// cmdGenerate runs the pipeline for projectRoot: with --resume on its most
// recent session, otherwise on a newly created one.
func cmdGenerate(ctx context.Context, cfg *config.Config, sessions *database.SessionStore, checkpoints *checkpoint.Manager, dbClient *database.Client, projectRoot string, args []string) int {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	mode := fs.String("mode", string(model.ModeStandard), "fast|standard|deep")
	resume := fs.Bool("resume", false, "resume the most recent session instead of starting fresh")
	statusOnly := fs.Bool("status", false, "print progress and exit without running")
	dryRun := fs.Bool("dry-run", false, "forecast token usage without calling any provider")
	qualityTarget := fs.Float64("quality-target", 0, "quality target recorded on a new session (0 means 0.80); refinement stops at the mode/scale table's target, not this value")
	jsonOut := fs.Bool("json", false, "print status as JSON instead of human-readable text")
	if err := fs.Parse(args); err != nil {
		return exitConfigError
	}

	scale, files, err := estimateScale(projectRoot, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "discover project: %v\n", err)
		return exitConfigError
	}

	if *statusOnly {
		latest, err := latestSessionForRoot(ctx, sessions, projectRoot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load session: %v\n", err)
			return exitConfigError
		}
		printStatus(latest, *jsonOut)
		return exitSuccess
	}

	sess, err := findOrCreateSession(ctx, sessions, projectRoot, model.Mode(*mode), scale, *qualityTarget, *resume)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve session: %v\n", err)
		return exitConfigError
	}

	agents := budget.AgentCounts{Characterization: 7, TopDown: 4, Domains: estimateDomainCount(len(files)), RefinementTurns: 3}
	forecast := budget.PreflightForecast(tierCounts(files), agents, 400)
	if *dryRun {
		fmt.Printf("forecast: %d tokens across %d files at scale %s\n", forecast.Total(), len(files), scale)
		return exitSuccess
	}
	if forecast.Total() > cfg.Budget.Global {
		fmt.Fprintf(os.Stderr, "forecast of %d tokens exceeds the global budget of %d\n", forecast.Total(), cfg.Budget.Global)
		return exitBudgetExceeded
	}

	sched, err := buildScheduler(cfg, checkpoints, dbClient, sess.Snapshot().ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build scheduler: %v\n", err)
		return exitProviderDown
	}

	runErr := sched.Run(ctx, sess)
	if updateErr := sessions.Update(ctx, sess); updateErr != nil {
		log.Printf("persist session state: %v", updateErr)
	}
	if runErr == nil {
		printStatus(sess, *jsonOut)
		return exitSuccess
	}

	return exitCodeForError(runErr)
}

func cmdStatus(ctx context.Context, sessions *database.SessionStore, projectRoot string, args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print status as JSON instead of human-readable text")
	if err := fs.Parse(args); err != nil {
		return exitConfigError
	}

	sess, err := latestSessionForRoot(ctx, sessions, projectRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load session: %v\n", err)
		return exitConfigError
	}
	printStatus(sess, *jsonOut)
	return exitSuccess
}

func cmdClean(ctx context.Context, sessions *database.SessionStore, checkpoints *checkpoint.Manager, projectRoot string, args []string) int {
	fs := flag.NewFlagSet("clean", flag.ContinueOnError)
	all := fs.Bool("all", false, "delete every session, not just projectRoot's")
	if err := fs.Parse(args); err != nil {
		return exitConfigError
	}

	if *all {
		if err := sessions.DeleteAll(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "clean all sessions: %v\n", err)
			return exitConfigError
		}
		fmt.Println("all session state deleted")
		return exitSuccess
	}

	sess, err := latestSessionForRoot(ctx, sessions, projectRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load session: %v\n", err)
		return exitConfigError
	}
	id := sess.Snapshot().ID
	if err := checkpoints.Delete(ctx, id); err != nil {
		log.Printf("delete checkpoint for %s: %v", id, err)
	}
	if err := sessions.Delete(ctx, id); err != nil {
		fmt.Fprintf(os.Stderr, "delete session: %v\n", err)
		return exitConfigError
	}
	fmt.Printf("session %s deleted\n", id)
	return exitSuccess
}

func findOrCreateSession(ctx context.Context, sessions *database.SessionStore, projectRoot string, mode model.Mode, scale model.Scale, qualityTarget float64, resume bool) (*model.Session, error) {
	if resume {
		return latestSessionForRoot(ctx, sessions, projectRoot)
	}
	target := qualityTarget
	if target == 0 {
		target = 0.80
	}
	sess := model.NewSession(uuid.NewString(), projectRoot, mode, scale, target)
	if err := sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func latestSessionForRoot(ctx context.Context, sessions *database.SessionStore, projectRoot string) (*model.Session, error) {
	all, err := sessions.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, sess := range all {
		if sess.Snapshot().ProjectRoot == projectRoot {
			return sess, nil
		}
	}
	return nil, fmt.Errorf("no session found for %s; run `docengine init` first", projectRoot)
}

// statusJSON is status --json's wire shape (spec §12): a machine-readable
// projection of model.Session, stable regardless of how printStatus's
// human-readable text is worded.
type statusJSON struct {
	SessionID      string  `json:"session_id"`
	ProjectRoot    string  `json:"project_root"`
	Status         string  `json:"status"`
	Phase          string  `json:"phase"`
	RefinementTurn int     `json:"refinement_turn"`
	QualityScore   float64 `json:"quality_score,omitempty"`
	StopCause      string  `json:"stop_cause,omitempty"`
	LastError      string  `json:"last_error,omitempty"`
}

func printStatus(sess *model.Session, asJSON bool) {
	snap := sess.Snapshot()

	if asJSON {
		out := statusJSON{
			SessionID:      snap.ID,
			ProjectRoot:    snap.ProjectRoot,
			Status:         string(snap.Status),
			Phase:          string(snap.CurrentPhase),
			RefinementTurn: snap.RefinementTurn,
			LastError:      snap.LastError,
		}
		if len(snap.QualityHistory) > 0 {
			last := snap.QualityHistory[len(snap.QualityHistory)-1]
			out.QualityScore = last.Score
			out.StopCause = last.StopCause
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			log.Printf("encode status json: %v", err)
		}
		return
	}

	fmt.Printf("session %s: status=%s phase=%s turn=%d\n", snap.ID, snap.Status, snap.CurrentPhase, snap.RefinementTurn)
	if len(snap.QualityHistory) > 0 {
		last := snap.QualityHistory[len(snap.QualityHistory)-1]
		fmt.Printf("  quality: %.2f (stop cause: %s)\n", last.Score, last.StopCause)
	}
	if snap.LastError != "" {
		fmt.Printf("  last error: %s\n", snap.LastError)
	}
}

// estimateScale walks projectRoot once to classify its size (spec §4.1
// scale -> partition/iteration-cap table), returning the discovered files so
// a --dry-run caller can forecast from the same list the real run would use.
func estimateScale(projectRoot string, cfg *config.Config) (model.Scale, []model.DiscoveredFile, error) {
	files, err := discoverOnly(projectRoot, cfg)
	if err != nil {
		return "", nil, err
	}
	switch {
	case len(files) <= 25:
		return model.ScaleSmall, files, nil
	case len(files) <= 150:
		return model.ScaleMedium, files, nil
	case len(files) <= 600:
		return model.ScaleLarge, files, nil
	default:
		return model.ScaleEnterprise, files, nil
	}
}

// tierCounts buckets a raw discovery list by tier using an empty profile, a
// conservative stand-in for the real Phase-1-informed tiering, good enough
// for a --dry-run forecast.
func tierCounts(files []model.DiscoveredFile) budget.TierCounts {
	counts := make(budget.TierCounts, len(model.Tiers))
	empty := &model.ProjectProfile{}
	for _, f := range files {
		tier := discovery.AssignTier(f, empty, nil)
		counts[tier]++
	}
	return counts
}

// estimateDomainCount guesses Phase 5's eventual domain count from a raw
// file count, for forecasting purposes only; the real count comes from the
// grouping agent in RunConsolidation.
func estimateDomainCount(fileCount int) int {
	switch {
	case fileCount <= 25:
		return 4
	case fileCount <= 150:
		return 8
	case fileCount <= 600:
		return 14
	default:
		return 24
	}
}

func exitCodeForError(err error) int {
	switch {
	case errors.Is(err, budget.ErrPhaseExceeded), errors.Is(err, budget.ErrGlobalExceeded):
		return exitBudgetExceeded
	case errors.Is(err, checkpoint.ErrChecksumMismatch), errors.Is(err, checkpoint.ErrSchemaVersionMismatch):
		return exitCorruptCheckpoint
	case errors.Is(err, provider.ErrAllProvidersFailed):
		return exitProviderDown
	default:
		var perr *provider.Error
		if errors.As(err, &perr) {
			return exitProviderDown
		}
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		return exitConfigError
	}
}

func buildScheduler(cfg *config.Config, checkpoints *checkpoint.Manager, dbClient *database.Client, sessionID string) (*scheduler.Scheduler, error) {
	providers := make([]provider.Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		p, err := provider.NewOpenAIProvider(pc)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w", config.ErrNoProviders)
	}

	partitions := make(map[model.Phase]float64, len(cfg.Budget.Partitions))
	for _, p := range cfg.Budget.Partitions {
		partitions[p.Phase] = p.Fraction
	}
	tale := budget.New(cfg.Budget.Global, cfg.Budget.ReserveFrac, partitions, cfg.Budget.Mode, nil)

	fileInsights := database.NewFileInsightStore(dbClient)
	llmMetrics := database.NewLLMMetricsStore(dbClient)

	gw := provider.NewGateway(providers, tale, 60*time.Second)
	gw.BindSession(sessionID, llmMetrics)

	reg := registry.New()
	counter := budget.NewEstimator(cfg.Providers[0].TiktokenEncoding)
	builder, err := bottomup.NewDefaultPromptBuilder()
	if err != nil {
		return nil, err
	}
	analyzer := bottomup.NewAnalyzer(gw, reg, counter, builder, int64(cfg.Parallelism.BottomUpPerTier))

	return scheduler.New(scheduler.Deps{
		Gateway:     gw,
		Registry:    reg,
		Checkpoints: checkpoints,
		Counter:     counter,
		Analyzer:    analyzer,
		Parallelism: scheduler.Parallelism{
			CharacterizationTurn: cfg.Parallelism.CharacterizationTurn,
			BottomUpPerTier:      cfg.Parallelism.BottomUpPerTier,
			TopDown:              cfg.Parallelism.TopDown,
			ConsolidationDomains: cfg.Parallelism.ConsolidationDomains,
		},
		IgnorePatterns: cfg.Discovery.IgnoreGlobs,

		Files:          database.NewFileStore(dbClient),
		FileInsights:   fileInsights,
		PriorSessions:  dbClient,
		AgentOutputs:   database.NewAgentOutputStore(dbClient),
		DomainInsights: database.NewDomainInsightStore(dbClient),
	}), nil
}

func discoverOnly(projectRoot string, cfg *config.Config) ([]model.DiscoveredFile, error) {
	return discovery.Walk(projectRoot, discovery.Options{IgnorePatterns: cfg.Discovery.IgnoreGlobs})
}
