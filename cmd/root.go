// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gist-index",
	Short: "A CLI tool to build a markdown index of a user's public gists.",
	Long: `gist-index lists a GitHub user's public gists, enriches them with star, fork and
comment counts, and prints a markdown table. When LIST_GIST_ID and GIST_TOKEN are set,
the table is also written into that gist.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	var exitErr *exitError
	if err != nil && !errors.As(err, &exitErr) {
		// Flag parsing and other usage errors never reach the command's logger.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitConfig)
	}
	os.Exit(exitCode(err))
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringP("config", "c", os.Getenv("GIST_INDEX_CONFIG"), "Optional YAML config file")
}
