package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/reaction-reach/internal/config"
	"github.com/jonathan/reaction-reach/internal/pipeline"
	"github.com/jonathan/reaction-reach/internal/schemas"
	"github.com/jonathan/reaction-reach/internal/stealth"
	"github.com/jonathan/reaction-reach/internal/types"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract reactions from a profile's recent posts",
	Long: `Runs the full extraction pipeline: session validation -> profile navigation -> post discovery -> reaction harvesting -> normalization.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values. Interrupting the run (Ctrl-C) finalizes it with whatever was harvested so far.`,
	RunE: runExtract,
}

var (
	extractConfigPath string
	extractProfile    string
	extractDays       int
	extractContext    string
	extractSessionDir string
	extractAPIKey     string
	extractDBURL      string
	extractOutput     string
	extractDebugDir   string
	extractHeadful    bool
	extractVerbose    bool
	extractMinDelay   int
	extractMaxDelay   int
	extractAPM        int
	extractMaxStalls  int
	extractPasses     int
	extractRetries    int
)

func init() {
	// Config file flag (processed first)
	extractCmd.Flags().StringVar(&extractConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	extractCmd.Flags().StringVarP(&extractProfile, "profile", "p", "", "Target profile URL")
	extractCmd.Flags().IntVarP(&extractDays, "days", "d", 0, "Post discovery window in days")
	extractCmd.Flags().StringVarP(&extractContext, "context", "c", "", "Stored browsing context id to reuse")
	extractCmd.Flags().StringVar(&extractSessionDir, "session-dir", "", "Directory holding session state and browser user data")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "Path for the JSON results artifact")
	extractCmd.Flags().StringVar(&extractDebugDir, "debug-dir", "", "Directory for failure screenshots")
	extractCmd.Flags().BoolVar(&extractHeadful, "headful", false, "Run the browser with a visible window")
	extractCmd.Flags().BoolVarP(&extractVerbose, "verbose", "v", false, "Print detailed debug information")

	// Pacing overrides
	extractCmd.Flags().IntVar(&extractMinDelay, "min-delay-ms", 0, "Minimum inter-action delay in milliseconds")
	extractCmd.Flags().IntVar(&extractMaxDelay, "max-delay-ms", 0, "Maximum inter-action delay in milliseconds")
	extractCmd.Flags().IntVar(&extractAPM, "apm", 0, "Soft ceiling on actions per minute")

	// Termination overrides
	extractCmd.Flags().IntVar(&extractMaxStalls, "max-stall-attempts", 0, "Consecutive empty scroll batches before the feed is exhausted")
	extractCmd.Flags().IntVar(&extractPasses, "stall-passes", 0, "Stalled modal passes before a harvest stops")
	extractCmd.Flags().IntVar(&extractRetries, "max-nav-retries", 0, "Navigation attempts per transition")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	extractCmd.Flags().StringVar(&extractAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for session persistence
	extractCmd.Flags().StringVar(&extractDBURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	// Interrupts cancel the run; the pipeline finalizes with partial results.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Step 1: Load config file if provided
	var cfg config.Config
	if extractConfigPath != "" {
		loadedCfg, err := config.LoadConfig(extractConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := loadedCfg.Validate(); err != nil {
			return err
		}

		cfg = *loadedCfg
		if extractVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", extractConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("profile") {
		cfg.ProfileURL = extractProfile
	}
	if cmd.Flags().Changed("days") {
		cfg.LookbackDays = extractDays
	}
	if cmd.Flags().Changed("context") {
		cfg.ContextID = extractContext
	}
	if cmd.Flags().Changed("session-dir") {
		cfg.SessionDir = extractSessionDir
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = extractAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = extractDBURL
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = extractOutput
	}
	if cmd.Flags().Changed("debug-dir") {
		cfg.DebugDir = extractDebugDir
	}
	if cmd.Flags().Changed("headful") {
		cfg.Headful = extractHeadful
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = extractVerbose
	}
	if cmd.Flags().Changed("min-delay-ms") {
		cfg.MinDelayMs = extractMinDelay
	}
	if cmd.Flags().Changed("max-delay-ms") {
		cfg.MaxDelayMs = extractMaxDelay
	}
	if cmd.Flags().Changed("apm") {
		cfg.ActionsPerMinute = extractAPM
	}
	if cmd.Flags().Changed("max-stall-attempts") {
		cfg.MaxStallAttempts = extractMaxStalls
	}
	if cmd.Flags().Changed("stall-passes") {
		cfg.StallPasses = extractPasses
	}
	if cmd.Flags().Changed("max-nav-retries") {
		cfg.MaxNavRetries = extractRetries
	}

	// Step 3: Apply defaults for unset values
	defaults := config.Config{
		LookbackDays: 30,
		SessionDir:   ".reach-sessions",
		Output:       "reactions.json",
	}
	cfg = cfg.MergeWithDefaults(defaults)

	if err := cfg.Validate(); err != nil {
		return err
	}

	// Step 4: Validate required fields
	if cfg.ProfileURL == "" {
		return fmt.Errorf("--profile is required (via flag or config)")
	}
	if cfg.ContextID == "" {
		return fmt.Errorf("--context is required (via flag or config); mint one with 'reach_agent create-context'")
	}

	// Step 5: API key handling. Optional: without it the pipeline runs on
	// static selectors alone.
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	// Step 6: Database URL handling. Optional: without it sessions live in files.
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	opts := pipeline.RunOptions{
		ProfileURL:       cfg.ProfileURL,
		ContextID:        cfg.ContextID,
		Window:           types.LastDays(cfg.LookbackDays, time.Now()),
		SessionDir:       cfg.SessionDir,
		DatabaseURL:      cfg.DatabaseURL,
		APIKey:           cfg.APIKey,
		Headful:          cfg.Headful,
		Verbose:          cfg.Verbose,
		DebugDir:         cfg.DebugDir,
		Pacing:           pacingFromConfig(cfg),
		MaxStallAttempts: cfg.MaxStallAttempts,
		StallPasses:      cfg.StallPasses,
		MaxNavRetries:    cfg.MaxNavRetries,
	}

	// The pipeline and the progress consumer run concurrently; closing the
	// channel after Run returns ends the consumer.
	events := make(chan pipeline.ProgressEvent, 16)
	opts.OnProgress = func(ev pipeline.ProgressEvent) {
		events <- ev
	}

	var job *types.ExtractionJob
	var runErr error

	g := new(errgroup.Group)
	g.Go(func() error {
		defer close(events)
		job, runErr = pipeline.Run(ctx, opts)
		return nil
	})
	g.Go(func() error {
		for ev := range events {
			if ev.PostID != "" {
				fmt.Fprintf(os.Stdout, "[%s] %s (post %s)\n", ev.Stage, ev.Message, ev.PostID)
			} else {
				fmt.Fprintf(os.Stdout, "[%s] %s\n", ev.Stage, ev.Message)
			}
		}
		return nil
	})
	_ = g.Wait()

	// Write the artifact even on a fatal error: partial results are retained.
	if job != nil {
		if err := writeArtifact(cfg.Output, job); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Results written to: %s\n", cfg.Output)
	}

	if runErr != nil {
		return fmt.Errorf("extraction failed: %w", runErr)
	}
	return nil
}

// writeArtifact marshals the job to disk and checks it against the results
// schema when the schema file is resolvable from the working directory.
func writeArtifact(path string, job *types.ExtractionJob) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write results artifact: %w", err)
	}

	if schemaPath := schemas.ResolveSchemaPath("schemas/extraction_job.schema.json"); schemaPath != "" {
		if err := schemas.ValidateJSON(schemaPath, path); err != nil {
			return fmt.Errorf("results artifact failed schema validation: %w", err)
		}
	}
	return nil
}

// pacingFromConfig converts millisecond config fields into scheduler pacing.
// Zero fields keep the scheduler's built-in defaults.
func pacingFromConfig(cfg config.Config) stealth.Config {
	pacing := stealth.Config{
		ActionsPerMinute: cfg.ActionsPerMinute,
	}
	if cfg.MinDelayMs > 0 {
		pacing.MinDelay = time.Duration(cfg.MinDelayMs) * time.Millisecond
	}
	if cfg.MaxDelayMs > 0 {
		pacing.MaxDelay = time.Duration(cfg.MaxDelayMs) * time.Millisecond
	}
	return pacing
}
