package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/reaction-reach/internal/browser"
	"github.com/jonathan/reaction-reach/internal/session"
	"github.com/jonathan/reaction-reach/internal/stealth"
	"github.com/spf13/cobra"
)

var validateSessionCmd = &cobra.Command{
	Use:   "validate-session",
	Short: "Probe a stored session and report its trust level",
	Long:  "Loads the session for a context id, issues one probe navigation, persists the resulting trust level, and prints it. A flagged session should be retired and replaced via create-context.",
	RunE:  runValidateSession,
}

var (
	validateContext    string
	validateSessionDir string
	validateDBURL      string
	validateHeadful    bool
	validateVerbose    bool
)

func init() {
	validateSessionCmd.Flags().StringVarP(&validateContext, "context", "c", "", "Stored browsing context id (required)")
	validateSessionCmd.Flags().StringVar(&validateSessionDir, "session-dir", ".reach-sessions", "Directory holding session state and browser user data")
	validateSessionCmd.Flags().StringVar(&validateDBURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	validateSessionCmd.Flags().BoolVar(&validateHeadful, "headful", false, "Run the browser with a visible window")
	validateSessionCmd.Flags().BoolVarP(&validateVerbose, "verbose", "v", false, "Print detailed debug information")

	_ = validateSessionCmd.MarkFlagRequired("context")

	rootCmd.AddCommand(validateSessionCmd)
}

func runValidateSession(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, validateSessionDir, validateDBURL)
	if err != nil {
		return err
	}
	defer closeStore()

	sess, err := store.Load(ctx, validateContext)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	sub, err := browser.NewChrome(ctx, &browser.Options{
		UserDataDir: validateSessionDir,
		ContextID:   validateContext,
		Headless:    !validateHeadful,
		Verbose:     validateVerbose,
	})
	if err != nil {
		return fmt.Errorf("browser startup failed: %w", err)
	}
	defer func() { _ = sub.Close() }()

	sched := stealth.NewScheduler(stealth.Config{})
	validator := session.NewValidator(sub, sched, "", validateVerbose)

	level, err := validator.Validate(ctx, sess)
	if err != nil {
		return fmt.Errorf("session probe failed: %w", err)
	}

	if err := store.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Context:     %s\n", sess.ContextID)
	fmt.Fprintf(os.Stdout, "Trust level: %s\n", level)
	if !sess.LastValidatedAt.IsZero() {
		fmt.Fprintf(os.Stdout, "Validated:   %s\n", sess.LastValidatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
