package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/gist-index/internal/domain"
)

var threeGists = []domain.Gist{{ID: "g1", Public: true}, {ID: "g2", Public: true}, {ID: "g3", Public: true}}

func TestEnricher_Enrich(t *testing.T) {
	known := domain.KnownCount
	na := domain.UnavailableCount()

	testCases := []struct {
		name      string
		setupMock func(m *mockGateway)
		expected  map[string]domain.EngagementStats
	}{
		{
			name: "happy path - merges REST counts with batched stars",
			setupMock: func(m *mockGateway) {
				m.On("FetchStarCounts", mock.Anything, "octocat").Return(map[string]int{"g1": 5, "g2": 0, "g3": 1}, nil)
				m.On("FetchCommentCount", mock.Anything, "g1").Return(2, nil)
				m.On("FetchCommentCount", mock.Anything, "g2").Return(0, nil)
				m.On("FetchCommentCount", mock.Anything, "g3").Return(7, nil)
				m.On("FetchForkCount", mock.Anything, "g1").Return(1, nil)
				m.On("FetchForkCount", mock.Anything, "g2").Return(0, nil)
				m.On("FetchForkCount", mock.Anything, "g3").Return(3, nil)
			},
			expected: map[string]domain.EngagementStats{
				"g1": {Stars: known(5), Comments: known(2), Forks: known(1)},
				"g2": {Stars: known(0), Comments: known(0), Forks: known(0)},
				"g3": {Stars: known(1), Comments: known(7), Forks: known(3)},
			},
		},
		{
			name: "comments endpoint always failing leaves forks and stars intact",
			setupMock: func(m *mockGateway) {
				m.On("FetchStarCounts", mock.Anything, "octocat").Return(map[string]int{"g1": 5, "g2": 0, "g3": 1}, nil)
				m.On("FetchCommentCount", mock.Anything, mock.Anything).Return(0, errors.New("502 bad gateway"))
				m.On("FetchForkCount", mock.Anything, "g1").Return(1, nil)
				m.On("FetchForkCount", mock.Anything, "g2").Return(0, nil)
				m.On("FetchForkCount", mock.Anything, "g3").Return(3, nil)
			},
			expected: map[string]domain.EngagementStats{
				"g1": {Stars: known(5), Comments: na, Forks: known(1)},
				"g2": {Stars: known(0), Comments: na, Forks: known(0)},
				"g3": {Stars: known(1), Comments: na, Forks: known(3)},
			},
		},
		{
			name: "failed star query degrades every star count only",
			setupMock: func(m *mockGateway) {
				m.On("FetchStarCounts", mock.Anything, "octocat").Return(nil, errors.New("graphql: bad credentials"))
				m.On("FetchCommentCount", mock.Anything, mock.Anything).Return(1, nil)
				m.On("FetchForkCount", mock.Anything, mock.Anything).Return(2, nil)
			},
			expected: map[string]domain.EngagementStats{
				"g1": {Stars: na, Comments: known(1), Forks: known(2)},
				"g2": {Stars: na, Comments: known(1), Forks: known(2)},
				"g3": {Stars: na, Comments: known(1), Forks: known(2)},
			},
		},
		{
			name: "gist outside the star batch and a single failing fork call",
			setupMock: func(m *mockGateway) {
				m.On("FetchStarCounts", mock.Anything, "octocat").Return(map[string]int{"g1": 5, "g2": 0}, nil)
				m.On("FetchCommentCount", mock.Anything, mock.Anything).Return(0, nil)
				m.On("FetchForkCount", mock.Anything, "g1").Return(0, nil)
				m.On("FetchForkCount", mock.Anything, "g2").Return(0, errors.New("timeout"))
				m.On("FetchForkCount", mock.Anything, "g3").Return(4, nil)
			},
			expected: map[string]domain.EngagementStats{
				"g1": {Stars: known(5), Comments: known(0), Forks: known(0)},
				"g2": {Stars: known(0), Comments: known(0), Forks: na},
				"g3": {Stars: na, Comments: known(0), Forks: known(4)},
			},
		},
	}

	for _, tc := range testCases {
		for _, concurrency := range []int{1, 4} {
			t.Run(fmt.Sprintf("%s/concurrency=%d", tc.name, concurrency), func(t *testing.T) {
				logger, _ := newTestLogger()
				fetcher := new(mockGateway)
				tc.setupMock(fetcher)

				stats, err := NewEnricher(fetcher, logger, concurrency).Enrich(context.Background(), "octocat", threeGists)

				require.NoError(t, err)
				assert.Equal(t, tc.expected, stats)
				fetcher.AssertExpectations(t)
			})
		}
	}
}

func TestEnricher_EnrichGist(t *testing.T) {
	logger, hook := newTestLogger()
	fetcher := new(mockGateway)
	fetcher.On("FetchCommentCount", mock.Anything, "g1").Return(0, errors.New("boom"))
	fetcher.On("FetchForkCount", mock.Anything, "g1").Return(0, nil)

	s := NewEnricher(fetcher, logger, 1).EnrichGist(context.Background(), "g1")

	// A real zero and a failed fetch stay distinguishable.
	assert.Equal(t, domain.UnavailableCount(), s.Comments)
	assert.Equal(t, domain.KnownCount(0), s.Forks)
	assert.False(t, s.Stars.Known())
	assert.Len(t, hook.AllEntries(), 1)
	fetcher.AssertNotCalled(t, "FetchStarCounts", mock.Anything, mock.Anything)
}

func TestEnricher_CancelledContext(t *testing.T) {
	logger, _ := newTestLogger()
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := new(mockGateway)
	fetcher.On("FetchStarCounts", mock.Anything, "octocat").Return(map[string]int{}, nil).Run(func(mock.Arguments) { cancel() })
	fetcher.On("FetchCommentCount", mock.Anything, mock.Anything).Return(0, nil).Maybe()
	fetcher.On("FetchForkCount", mock.Anything, mock.Anything).Return(0, nil).Maybe()

	stats, err := NewEnricher(fetcher, logger, 1).Enrich(ctx, "octocat", threeGists)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, stats)
}
