package usecase

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/gist-index/internal/domain"
	"github.com/naka-gawa/gist-index/internal/gateway"
)

// Enricher attaches engagement stats to gists.
// Star counts come from one batched query; comments and forks are fetched per gist.
type Enricher struct {
	fetcher     gateway.Fetcher
	logger      logrus.FieldLogger
	concurrency int
}

// NewEnricher creates a new Enricher. concurrency bounds how many gists are enriched at
// once; 1 enriches them sequentially.
func NewEnricher(fetcher gateway.Fetcher, logger logrus.FieldLogger, concurrency int) *Enricher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Enricher{
		fetcher:     fetcher,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Enrich returns the stats of every gist keyed by gist ID. Failed fetches never abort the
// run; they leave the affected counter unavailable. Only cancellation of ctx is an error.
func (e *Enricher) Enrich(ctx context.Context, username string, gists []domain.Gist) (map[string]domain.EngagementStats, error) {
	e.logger.Debug("Usecase: Starting engagement enrichment...")
	stars := e.fetchStars(ctx, username)

	results := make(map[string]domain.EngagementStats, len(gists))
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.concurrency)
	for _, g := range gists {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			s := e.EnrichGist(egCtx, g.ID)
			mu.Lock()
			results[g.ID] = s
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	missing := 0
	for id, s := range results {
		if n, ok := stars[id]; ok {
			s.Stars = domain.KnownCount(n)
		} else {
			missing++
		}
		results[id] = s
	}
	if stars != nil && missing > 0 {
		e.logger.Warnf("Star counts missing for %d gist(s); marking them unavailable.", missing)
	}

	e.logger.Debug("Usecase: Enrichment complete.")
	return results, nil
}

// EnrichGist fetches the per-gist counters of one gist. Stars are left unavailable; they
// come from the batched query. It depends on nothing but the gist ID and is safe to run
// concurrently.
func (e *Enricher) EnrichGist(ctx context.Context, gistID string) domain.EngagementStats {
	return domain.EngagementStats{
		Comments: e.count(ctx, "comment", gistID, e.fetcher.FetchCommentCount),
		Forks:    e.count(ctx, "fork", gistID, e.fetcher.FetchForkCount),
		Stars:    domain.UnavailableCount(),
	}
}

func (e *Enricher) count(ctx context.Context, metric, gistID string, fetch func(context.Context, string) (int, error)) domain.Count {
	n, err := fetch(ctx, gistID)
	if err != nil {
		e.logger.WithError(err).WithField("gist", gistID).Warnf("Could not fetch %s count; marking it unavailable.", metric)
		return domain.UnavailableCount()
	}
	return domain.KnownCount(n)
}

// fetchStars returns nil when the batched query fails, which makes every star count unavailable.
func (e *Enricher) fetchStars(ctx context.Context, username string) map[string]int {
	stars, err := e.fetcher.FetchStarCounts(ctx, username)
	if err != nil {
		e.logger.WithError(err).Warn("Could not fetch star counts; marking all of them unavailable.")
		return nil
	}
	return stars
}
