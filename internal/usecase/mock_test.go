package usecase

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"

	"github.com/naka-gawa/gist-index/internal/domain"
)

// mockGateway is a mock implementation of the gateway.Fetcher and gateway.Updater interfaces.
// It allows us to simulate the behavior of the GitHub gateway without making real API calls.
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) ListGists(ctx context.Context, username string) ([]domain.Gist, error) {
	args := m.Called(ctx, username)
	// We need to handle the case where the returned slice is nil (e.g., when an error occurs).
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Gist), args.Error(1)
}

func (m *mockGateway) FetchStarCounts(ctx context.Context, username string) (map[string]int, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *mockGateway) FetchCommentCount(ctx context.Context, gistID string) (int, error) {
	args := m.Called(ctx, gistID)
	return args.Int(0), args.Error(1)
}

func (m *mockGateway) FetchForkCount(ctx context.Context, gistID string) (int, error) {
	args := m.Called(ctx, gistID)
	return args.Int(0), args.Error(1)
}

func (m *mockGateway) UpdateGistFile(ctx context.Context, gistID, filename, content, description string) (string, error) {
	args := m.Called(ctx, gistID, filename, content, description)
	return args.String(0), args.Error(1)
}

// newTestLogger returns a logger that records entries instead of printing them.
func newTestLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetOutput(io.Discard)
	return logger, hook
}

func hasMessage(hook *test.Hook, level logrus.Level, msg string) bool {
	for _, e := range hook.AllEntries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}
