// Package main provides the entry point for the ReactionReach extraction CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reach_agent",
	Short: "LinkedIn reaction extraction agent",
	Long:  "ReactionReach extracts the people who reacted to a profile's recent posts, using a persisted browsing session and human-like pacing.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
