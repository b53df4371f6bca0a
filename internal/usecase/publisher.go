package usecase

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/naka-gawa/gist-index/internal/domain"
	"github.com/naka-gawa/gist-index/internal/gateway"
)

// Publisher writes the rendered report into the index gist.
type Publisher struct {
	updater gateway.Updater
	logger  logrus.FieldLogger
}

// NewPublisher creates a new Publisher instance.
func NewPublisher(updater gateway.Updater, logger logrus.FieldLogger) *Publisher {
	return &Publisher{updater: updater, logger: logger}
}

// Publish overwrites filename in gist gistID with content and returns the gist URL.
// Any failure is a *domain.PublishError; a missing or unwritable gist also matches
// domain.ErrTargetNotFound.
func (p *Publisher) Publish(ctx context.Context, gistID, filename, content, username string) (string, error) {
	description := fmt.Sprintf("Public gists from %s", username)
	htmlURL, err := p.updater.UpdateGistFile(ctx, gistID, filename, content, description)
	if err != nil {
		return "", &domain.PublishError{GistID: gistID, Err: err}
	}
	if htmlURL == "" {
		htmlURL = "(unknown)"
	}
	p.logger.Infof("Updated gist: %s", htmlURL)
	return htmlURL, nil
}
