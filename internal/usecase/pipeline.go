package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/naka-gawa/gist-index/internal/gateway"
	"github.com/naka-gawa/gist-index/internal/report"
)

// RunOptions describes one run of the pipeline.
type RunOptions struct {
	Username       string
	TargetGistID   string
	TargetFilename string
	// Publish enables the write-back; it needs both a target and a token.
	Publish    bool
	Location   *time.Location
	DateFormat string
	TimeFormat string
}

// Pipeline lists, enriches, renders and optionally publishes, in that order.
type Pipeline struct {
	lister    *Lister
	enricher  *Enricher
	publisher *Publisher
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewPipeline wires the use cases around one gateway.
func NewPipeline(fetcher gateway.Fetcher, updater gateway.Updater, logger logrus.FieldLogger, concurrency int) *Pipeline {
	return &Pipeline{
		lister:    NewLister(fetcher, logger),
		enricher:  NewEnricher(fetcher, logger, concurrency),
		publisher: NewPublisher(updater, logger),
		logger:    logger,
		now:       time.Now,
	}
}

// Run writes the report to out before attempting to publish it, so a failed publish
// still leaves the report on out.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions, out io.Writer) error {
	p.logger.Debugf("[1/4] Listing public gists of %s...", opts.Username)
	gists, err := p.lister.ListPublicGists(ctx, opts.Username)
	if err != nil {
		return fmt.Errorf("failed to list gists: %w", err)
	}

	p.logger.Debugf("[2/4] Fetching engagement for %d gists...", len(gists))
	engagement, err := p.enricher.Enrich(ctx, opts.Username, gists)
	if err != nil {
		return fmt.Errorf("failed to enrich gists: %w", err)
	}

	p.logger.Debug("[3/4] Rendering report...")
	markdown := report.Build(gists, engagement, report.Options{
		Username:   opts.Username,
		Now:        p.now(),
		Location:   opts.Location,
		DateFormat: opts.DateFormat,
		TimeFormat: opts.TimeFormat,
	})
	if _, err := fmt.Fprintln(out, markdown); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if !opts.Publish {
		if opts.TargetGistID != "" {
			p.logger.Info("Target gist set but no token available; skipping update.")
		}
		return nil
	}
	p.logger.Debugf("[4/4] Publishing report to gist %s...", opts.TargetGistID)
	_, err = p.publisher.Publish(ctx, opts.TargetGistID, opts.TargetFilename, markdown, opts.Username)
	return err
}
