// Package usecase contains the business logic of the application.
package usecase

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/naka-gawa/gist-index/internal/domain"
	"github.com/naka-gawa/gist-index/internal/gateway"
)

// Lister lists a user's gists and keeps only the public ones.
type Lister struct {
	fetcher gateway.Fetcher
	logger  logrus.FieldLogger
}

// NewLister creates a new Lister instance.
func NewLister(fetcher gateway.Fetcher, logger logrus.FieldLogger) *Lister {
	return &Lister{fetcher: fetcher, logger: logger}
}

// ListPublicGists returns every public gist of username. The listing endpoint only serves
// public gists for other users, but anything not flagged public is dropped regardless.
func (l *Lister) ListPublicGists(ctx context.Context, username string) ([]domain.Gist, error) {
	gists, err := l.fetcher.ListGists(ctx, username)
	if err != nil {
		return nil, err
	}
	public, skipped := domain.FilterPublic(gists)
	if skipped > 0 {
		l.logger.Infof("Skipped %d non-public gist(s).", skipped)
	}
	l.logger.Debugf("Usecase: %d public gists listed.", len(public))
	return public, nil
}
