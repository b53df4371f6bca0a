package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/gist-index/internal/config"
	"github.com/naka-gawa/gist-index/internal/gateway"
	"github.com/naka-gawa/gist-index/internal/usecase"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Prints the public gist index and optionally updates the index gist",
	Long: `Lists the public gists of GITHUB_USERNAME, prints a markdown table of them to standard output,
and, when both LIST_GIST_ID and GIST_TOKEN are set, writes the table into TARGET_MD_FILENAME of that gist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get the verbose flag from the root command to set up the logger.
		verbose, _ := cmd.InheritedFlags().GetBool("verbose")
		configPath, _ := cmd.InheritedFlags().GetString("config")
		logger := newLogger(cmd.ErrOrStderr(), verbose)

		cfg, err := config.Load(configPath)
		if err != nil {
			return fail(logger, err)
		}
		applyFlags(cmd, cfg)
		if cfg.Verbose {
			logger.Logger.SetLevel(logrus.DebugLevel)
		}

		return runReport(cmd.Context(), cfg, cmd.OutOrStdout(), logger)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringP("user", "u", "", "GitHub user whose public gists are listed (overrides GITHUB_USERNAME)")
	reportCmd.Flags().StringP("target", "t", "", "Gist to write the index into (overrides LIST_GIST_ID)")
	reportCmd.Flags().String("filename", "", "File inside the target gist (overrides TARGET_MD_FILENAME)")
}

// applyFlags lets explicitly set flags win over the environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("user") {
		cfg.Username, _ = cmd.Flags().GetString("user")
	}
	if cmd.Flags().Changed("target") {
		cfg.TargetGistID, _ = cmd.Flags().GetString("target")
	}
	if cmd.Flags().Changed("filename") {
		cfg.TargetFilename, _ = cmd.Flags().GetString("filename")
	}
	if verbose, _ := cmd.InheritedFlags().GetBool("verbose"); verbose {
		cfg.Verbose = true
	}
}

// newLogger returns the diagnostics sink handed to every component.
// Each run is tagged with its own run_id.
func newLogger(w io.Writer, verbose bool) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(logrus.InfoLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger.WithField("run_id", uuid.NewString())
}

// runReport validates cfg, then runs the pipeline. Every failure comes back as an
// *exitError that has already been logged.
func runReport(ctx context.Context, cfg *config.Config, out io.Writer, logger *logrus.Entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fail(logger, fmt.Errorf("unhandled panic: %v", r))
		}
	}()

	if err := cfg.Validate(); err != nil {
		return fail(logger, err)
	}
	loc, _ := cfg.Location()

	retry := gateway.DefaultRetryPolicy()
	retry.Attempts = cfg.HTTPRetries
	retry.Timeout = cfg.HTTPTimeout

	// Inject dependencies and run the main business logic.
	githubGateway, err := gateway.NewGitHubGateway(gateway.Options{
		Token:      cfg.Token,
		APIURL:     cfg.APIURL,
		GraphQLURL: cfg.GraphQLURL,
		Retry:      retry,
	}, logger)
	if err != nil {
		return fail(logger, err)
	}
	pipeline := usecase.NewPipeline(githubGateway, githubGateway, logger, cfg.EnrichConcurrency)

	err = pipeline.Run(ctx, usecase.RunOptions{
		Username:       cfg.Username,
		TargetGistID:   cfg.TargetGistID,
		TargetFilename: cfg.TargetFilename,
		Publish:        cfg.PublishEnabled(),
		Location:       loc,
		DateFormat:     cfg.DateFormat,
		TimeFormat:     cfg.TimeFormat,
	}, out)
	if err != nil {
		return fail(logger, err)
	}
	return nil
}

// fail logs err at the level its exit code calls for and wraps it in an exitError.
func fail(logger logrus.FieldLogger, err error) error {
	code := exitCode(err)
	entry := logger.WithError(err)
	switch code {
	case ExitConfig:
		entry.Error("Invalid configuration.")
	case ExitUserNotFound:
		entry.Error("User not found or gists unavailable.")
	case ExitTargetNotFound:
		entry.Error("LIST_GIST_ID not found or token lacks access to that gist.")
	case ExitPublishFailed:
		entry.Warn("Gist update failed; the report was printed but not published.")
	default:
		entry.Error("Unhandled error.")
	}
	return &exitError{code: code, err: err}
}
