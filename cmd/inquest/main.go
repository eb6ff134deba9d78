package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"inquest/internal/agents"
	"inquest/internal/citation"
	"inquest/internal/config"
	"inquest/internal/embedding"
	"inquest/internal/evaluation"
	"inquest/internal/hitl"
	"inquest/internal/llm"
	"inquest/internal/retrieval"
	"inquest/internal/store"
	"inquest/internal/supervisor"
	"inquest/internal/types"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "0.3.0"

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration

	// Run flags
	evaluate bool
	jsonOut  bool

	// Ingest flags
	ingestDir string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "inquest",
	Short: "inquest - multi-agent research orchestrator",
	Long: `inquest answers research questions by coordinating a team of agents
over a local document corpus.

A supervisor decomposes each question into a dependency-ordered plan, a
researcher retrieves evidence with hybrid semantic + keyword search, a
skeptic audits the findings, and a synthesizer produces a cited report
with a calibrated confidence level.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// runCmd executes a single research question end to end
var runCmd = &cobra.Command{
	Use:   "run [question]",
	Short: "Run a research question through the agent pipeline",
	Long: `Runs the full pipeline for one question:
  1. Plan: rewrite the question and decompose it into sub-tasks
  2. Research: hybrid retrieval over the ingested corpus
  3. Review: skeptic critique with bounded revision rounds
  4. Synthesize: cited report with confidence scoring

Example:
  inquest run "What drove the 2024 shift in battery storage costs?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuestion,
}

// ingestCmd loads documents into the corpus store
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest documents into the research corpus",
	Long: `Chunks and embeds every .txt and .md file under the document
directory, storing vectors in the local SQLite corpus.

Re-running is safe: chunk IDs are content-addressed, so unchanged
documents are not duplicated.`,
	RunE: runIngest,
}

// statusCmd reports corpus state
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus and configuration status",
	RunE:  showStatus,
}

// versionCmd prints the build version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the inquest version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("inquest %s\n", version)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: inquest.yaml if present)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Operation timeout")

	runCmd.Flags().BoolVar(&evaluate, "evaluate", false, "Run LLM-as-judge evaluation on the final report")
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the final report as JSON instead of rendered markdown")

	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "Document directory (overrides config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// ===== COMPOSITION ROOT =====

// system bundles everything a command needs after wiring.
type system struct {
	cfg       *config.Config
	store     *store.CorpusStore
	primary   llm.Client
	secondary llm.Client
	sup       *supervisor.Supervisor
}

func (s *system) close() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = "inquest.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildSystem wires the full agent pipeline from configuration.
func buildSystem() (*system, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	llmTimeout, err := cfg.LLMTimeout()
	if err != nil {
		return nil, err
	}
	cacheTTL, err := cfg.CacheTTL()
	if err != nil {
		return nil, err
	}
	hitlTimeout, err := cfg.HITLTimeout()
	if err != nil {
		return nil, err
	}

	limiter := llm.NewRateLimiter(cfg.LLM.RateLimitPerMinute)

	primaryCfg := llm.DefaultGeminiConfig(cfg.LLM.APIKey, cfg.LLM.PrimaryModel)
	primaryCfg.Temperature = cfg.LLM.ReasoningTemp
	primaryCfg.Timeout = llmTimeout
	primaryCfg.MaxRetries = cfg.LLM.MaxRetries
	if cfg.LLM.BaseURL != "" {
		primaryCfg.BaseURL = cfg.LLM.BaseURL
	}
	primary := llm.NewGeminiClient(primaryCfg, limiter, logger.Named("llm.primary"))

	secondaryCfg := llm.DefaultGeminiConfig(cfg.LLM.APIKey, cfg.LLM.SecondaryModel)
	secondaryCfg.Temperature = cfg.LLM.CreativeTemp
	secondaryCfg.Timeout = llmTimeout
	secondaryCfg.MaxRetries = cfg.LLM.MaxRetries
	if cfg.LLM.BaseURL != "" {
		secondaryCfg.BaseURL = cfg.LLM.BaseURL
	}
	secondary := llm.NewGeminiClient(secondaryCfg, limiter, logger.Named("llm.secondary"))

	embedder, err := embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.LLM.APIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding engine: %w", err)
	}

	corpus, err := store.Open(cfg.Retrieval.DatabasePath, embedder, logger.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}

	search := retrieval.NewEngine(corpus, retrieval.Config{
		TopKSemantic: cfg.Retrieval.TopKSemantic,
		TopKKeyword:  cfg.Retrieval.TopKKeyword,
		TopKFinal:    cfg.Retrieval.TopKFinal,
		CacheTTL:     cacheTTL,
	}, logger.Named("retrieval"))

	specialists := map[types.AgentRole]supervisor.Specialist{
		types.RoleResearcher:  agents.NewResearcher(secondary, search, cfg.Agents, logger.Named("researcher")),
		types.RoleSkeptic:     agents.NewSkeptic(primary, logger.Named("skeptic")),
		types.RoleSynthesizer: agents.NewSynthesizer(primary, logger.Named("synthesizer")),
	}

	var responder hitl.Responder
	if cfg.HITL.Enabled {
		responder = hitl.NewTerminalResponder(os.Stdin, os.Stdout, hitlTimeout)
	}

	sup := supervisor.New(primary, specialists, responder, cfg, logger.Named("supervisor"))

	return &system{
		cfg:       cfg,
		store:     corpus,
		primary:   primary,
		secondary: secondary,
		sup:       sup,
	}, nil
}

// ===== COMMANDS =====

func runQuestion(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(timeout)
	defer cancel()

	question := strings.Join(args, " ")

	sys, err := buildSystem()
	if err != nil {
		return err
	}
	defer sys.close()

	count, err := sys.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("corpus check: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("corpus is empty; run 'inquest ingest' first")
	}

	logger.Info("Starting research run",
		zap.String("question", question),
		zap.Int("corpus_chunks", count))

	state, err := sys.sup.Run(ctx, question)
	if err != nil {
		return fmt.Errorf("research run: %w", err)
	}

	report := state.FinalReport
	if jsonOut {
		return printJSON(report)
	}
	if err := renderReport(report); err != nil {
		return err
	}

	audit := citation.NewEngine(logger.Named("citation")).
		ValidateReport(report, state.RetrievedChunks)
	renderAudit(audit, sys.cfg.Agents.AuditCoverageThreshold)

	if evaluate {
		result := evaluation.NewEvaluator(sys.primary, logger.Named("evaluation")).
			Evaluate(ctx, report, retrieval.FormatContext(state.RetrievedChunks))
		renderEvaluation(result)
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(timeout)
	defer cancel()

	sys, err := buildSystem()
	if err != nil {
		return err
	}
	defer sys.close()

	dir := ingestDir
	if dir == "" {
		dir = sys.cfg.Retrieval.DocumentDir
	}

	logger.Info("Ingesting documents", zap.String("dir", dir))
	n, err := sys.store.IngestDir(ctx, dir, store.ChunkerConfig{
		ChunkSize:    sys.cfg.Retrieval.ChunkSize,
		ChunkOverlap: sys.cfg.Retrieval.ChunkOverlap,
	})
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	total, err := sys.store.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Ingested %d chunks (%d total in corpus)\n", n, total)
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(timeout)
	defer cancel()

	sys, err := buildSystem()
	if err != nil {
		return err
	}
	defer sys.close()

	count, err := sys.store.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("inquest %s\n", version)
	fmt.Printf("  config:          %s\n", orDefault(configPath, "(defaults)"))
	fmt.Printf("  corpus:          %s (%d chunks)\n", sys.cfg.Retrieval.DatabasePath, count)
	fmt.Printf("  primary model:   %s\n", sys.cfg.LLM.PrimaryModel)
	fmt.Printf("  secondary model: %s\n", sys.cfg.LLM.SecondaryModel)
	fmt.Printf("  embedding:       %s\n", sys.cfg.Embedding.Provider)
	fmt.Printf("  hitl:            %v\n", sys.cfg.HITL.Enabled)
	return nil
}

// ===== RENDERING =====

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			BorderStyle(lipgloss.RoundedBorder()).
			Padding(0, 2)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// renderReport prints the final report as styled markdown.
func renderReport(report *types.FinalReport) error {
	var md strings.Builder
	md.WriteString("# Research Report\n\n")
	md.WriteString("## Executive Summary\n\n")
	md.WriteString(report.ExecutiveSummary)
	md.WriteString("\n\n## Detailed Analysis\n\n")
	md.WriteString(report.DetailedAnalysis)
	if len(report.Recommendations) > 0 {
		md.WriteString("\n\n## Recommendations\n\n")
		for _, r := range report.Recommendations {
			md.WriteString("- " + r + "\n")
		}
	}
	if len(report.Citations) > 0 {
		md.WriteString("\n## Sources\n\n")
		for i, c := range report.Citations {
			src := "unknown"
			if len(c.Evidence) > 0 {
				src = c.Evidence[0].SourceDocument
			}
			md.WriteString(fmt.Sprintf("%d. %s (confidence %.2f)\n", i+1, src, c.Confidence))
		}
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fall back to raw markdown on dumb terminals.
		fmt.Println(md.String())
	} else {
		out, rerr := renderer.Render(md.String())
		if rerr != nil {
			fmt.Println(md.String())
		} else {
			fmt.Print(out)
		}
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("Confidence: %s", strings.ToUpper(string(report.Confidence)))))
	fmt.Println(metaStyle.Render(fmt.Sprintf(
		"research iterations: %d | skeptic rounds: %d | chunks retrieved: %d | capped: %v",
		report.Metadata.ResearchIterations,
		report.Metadata.SkepticRounds,
		report.Metadata.TotalChunksRetrieved,
		report.Metadata.Capped,
	)))
	return nil
}

func renderAudit(audit citation.Audit, threshold float64) {
	status := "PASSED"
	if !audit.Passes(threshold) {
		status = "FAILED"
	}
	fmt.Println(metaStyle.Render(fmt.Sprintf(
		"citation audit: %s | %d/%d valid | coverage %.2f",
		status, audit.ValidCitations, audit.TotalCitations, audit.CoverageScore)))
	for _, issue := range audit.Issues {
		fmt.Println(metaStyle.Render("  issue: " + issue))
	}
	for _, stmt := range audit.UncitedStatements {
		fmt.Println(metaStyle.Render("  uncited: " + stmt))
	}
}

func renderEvaluation(result evaluation.Result) {
	fmt.Println()
	fmt.Println(headerStyle.Render(fmt.Sprintf("Evaluation: %s (%.2f)", result.Grade, result.OverallScore)))
	for _, m := range []evaluation.MetricScore{
		result.Faithfulness,
		result.Relevance,
		result.Completeness,
		result.CitationQuality,
	} {
		fmt.Printf("  %-17s %.2f  %s\n", m.MetricName+":", m.Score, m.Reasoning)
	}
	if result.Summary != "" {
		fmt.Println(metaStyle.Render(result.Summary))
	}
}

func printJSON(report *types.FinalReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// ===== HELPERS =====

// signalContext derives a context cancelled by SIGINT/SIGTERM or timeout.
func signalContext(d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Println("\nCancelled")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
