package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jonathan/reaction-reach/internal/browser"
	"github.com/jonathan/reaction-reach/internal/session"
	"github.com/jonathan/reaction-reach/internal/stealth"
	"github.com/spf13/cobra"
)

var createContextCmd = &cobra.Command{
	Use:   "create-context",
	Short: "Mint a new browsing context",
	Long: `Creates a fresh browsing context and prints its id. With --login, opens a visible browser window on the LinkedIn sign-in page so the session can be authenticated manually; press Enter once signed in and the session is probed and persisted.`,
	RunE: runCreateContext,
}

const loginURL = "https://www.linkedin.com/login"

var (
	createSessionDir string
	createDBURL      string
	createLogin      bool
	createVerbose    bool
)

func init() {
	createContextCmd.Flags().StringVar(&createSessionDir, "session-dir", ".reach-sessions", "Directory holding session state and browser user data")
	createContextCmd.Flags().StringVar(&createDBURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	createContextCmd.Flags().BoolVar(&createLogin, "login", false, "Open a visible browser for manual sign-in")
	createContextCmd.Flags().BoolVarP(&createVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(createContextCmd)
}

func runCreateContext(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, createSessionDir, createDBURL)
	if err != nil {
		return err
	}
	defer closeStore()

	sess := session.NewContext(time.Now())

	if createLogin {
		sub, err := browser.NewChrome(ctx, &browser.Options{
			UserDataDir: createSessionDir,
			ContextID:   sess.ContextID,
			Headless:    false,
			Verbose:     createVerbose,
		})
		if err != nil {
			return fmt.Errorf("browser startup failed: %w", err)
		}
		defer func() { _ = sub.Close() }()

		if err := sub.Navigate(ctx, loginURL); err != nil {
			return fmt.Errorf("failed to open sign-in page: %w", err)
		}

		fmt.Fprintf(os.Stdout, "Sign in to LinkedIn in the browser window, then press Enter...\n")
		_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')

		sched := stealth.NewScheduler(stealth.Config{})
		validator := session.NewValidator(sub, sched, "", createVerbose)
		level, err := validator.Validate(ctx, sess)
		if err != nil {
			return fmt.Errorf("session probe failed: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Session trust level: %s\n", level)
	}

	if err := store.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Context created: %s\n", sess.ContextID)
	return nil
}

// openStore picks the session backend: PostgreSQL when a URL is configured,
// local files otherwise.
func openStore(ctx context.Context, dir, dbURL string) (session.Store, func(), error) {
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL != "" {
		pg, err := session.ConnectPostgres(ctx, dbURL)
		if err != nil {
			return nil, nil, fmt.Errorf("session store connection failed: %w", err)
		}
		return pg, pg.Close, nil
	}

	fs, err := session.NewFileStore(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("session store setup failed: %w", err)
	}
	return fs, func() {}, nil
}
