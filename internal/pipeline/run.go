package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jonathan/reaction-reach/internal/browser"
	"github.com/jonathan/reaction-reach/internal/discovery"
	"github.com/jonathan/reaction-reach/internal/harvest"
	"github.com/jonathan/reaction-reach/internal/llm"
	"github.com/jonathan/reaction-reach/internal/navigator"
	"github.com/jonathan/reaction-reach/internal/observability"
	"github.com/jonathan/reaction-reach/internal/planner"
	"github.com/jonathan/reaction-reach/internal/session"
	"github.com/jonathan/reaction-reach/internal/stealth"
	"github.com/jonathan/reaction-reach/internal/types"
)

// RunOptions holds configuration for running the pipeline
type RunOptions struct {
	ProfileURL string
	ContextID  string
	Window     types.TimeWindow

	SessionDir  string
	DatabaseURL string
	APIKey      string

	Headful  bool
	Verbose  bool
	DebugDir string

	Pacing           stealth.Config // zero fields use the built-in defaults
	MaxStallAttempts int
	StallPasses      int
	MaxNavRetries    int

	OnProgress ProgressCallback
}

// Run assembles the pipeline and executes one extraction job.
func Run(ctx context.Context, opts RunOptions) (*types.ExtractionJob, error) {
	if opts.ProfileURL == "" {
		return nil, fmt.Errorf("profile URL is required")
	}
	if opts.ContextID == "" {
		return nil, fmt.Errorf("context id is required")
	}

	printer := observability.NewPrinter(os.Stdout)

	// Session store: PostgreSQL when configured, local files otherwise.
	var store session.Store
	if opts.DatabaseURL != "" {
		pg, err := session.ConnectPostgres(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("session store connection failed: %w", err)
		}
		defer pg.Close()
		store = pg
	} else {
		fs, err := session.NewFileStore(opts.SessionDir)
		if err != nil {
			return nil, fmt.Errorf("session store setup failed: %w", err)
		}
		store = fs
	}

	// Browsing substrate bound to the stored context's profile directory.
	sub, err := browser.NewChrome(ctx, &browser.Options{
		UserDataDir: opts.SessionDir,
		ContextID:   opts.ContextID,
		Headless:    !opts.Headful,
		Verbose:     opts.Verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("browser startup failed: %w", err)
	}
	defer func() { _ = sub.Close() }()

	// LLM client is optional: without it the planner runs on static
	// strategy chains and DOM parsing alone.
	var client llm.Client
	if opts.APIKey != "" {
		client, err = llm.NewClient(ctx, llm.DefaultGeminiConfig(), opts.APIKey)
		if err != nil {
			return nil, fmt.Errorf("LLM client setup failed: %w", err)
		}
		defer func() { _ = client.Close() }()
	} else {
		fmt.Printf("Warning: no API key configured, running without LLM fallbacks\n")
	}

	sched := stealth.NewScheduler(opts.Pacing)
	plan := planner.NewLLMPlanner(client, opts.Verbose)
	validator := session.NewValidator(sub, sched, "", opts.Verbose)

	nav := navigator.New(sub, sched, store, validator, navigator.Options{
		MaxNavRetries: opts.MaxNavRetries,
		Verbose:       opts.Verbose,
	})
	disc := discovery.New(sub, sched, plan, opts.Window, discovery.Options{
		MaxStallAttempts: opts.MaxStallAttempts,
		Verbose:          opts.Verbose,
	})
	harv := harvest.New(sub, sched, plan, harvest.Options{
		StallPasses: opts.StallPasses,
		Verbose:     opts.Verbose,
	})

	coordinator := &Coordinator{
		Sub:        sub,
		Sched:      sched,
		Nav:        nav,
		Disc:       disc,
		Harv:       harv,
		Printer:    printer,
		OnProgress: opts.OnProgress,
		DebugDir:   opts.DebugDir,
		Verbose:    opts.Verbose,
	}

	job := types.NewExtractionJob(opts.ProfileURL, opts.Window, time.Now())
	return coordinator.Execute(ctx, job, opts.ContextID)
}
