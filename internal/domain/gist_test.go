package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterPublic(t *testing.T) {
	testCases := []struct {
		name            string
		input           []Gist
		expectedIDs     []string
		expectedSkipped int
	}{
		{
			name:            "mixed visibility keeps public gists in order",
			input:           []Gist{{ID: "a", Public: true}, {ID: "b"}, {ID: "c", Public: true}},
			expectedIDs:     []string{"a", "c"},
			expectedSkipped: 1,
		},
		{
			name:            "all public",
			input:           []Gist{{ID: "a", Public: true}},
			expectedIDs:     []string{"a"},
			expectedSkipped: 0,
		},
		{
			name:            "empty input",
			input:           nil,
			expectedIDs:     []string{},
			expectedSkipped: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			kept, skipped := FilterPublic(tc.input)
			ids := make([]string, 0, len(kept))
			for _, g := range kept {
				ids = append(ids, g.ID)
			}
			assert.Equal(t, tc.expectedIDs, ids)
			assert.Equal(t, tc.expectedSkipped, skipped)

			// Filtering an already filtered list changes nothing.
			again, skippedAgain := FilterPublic(kept)
			assert.Equal(t, kept, again)
			assert.Zero(t, skippedAgain)
		})
	}
}

func TestCount(t *testing.T) {
	zero := KnownCount(0)
	v, ok := zero.Value()
	assert.True(t, ok)
	assert.Equal(t, 0, v)
	assert.Equal(t, "0", zero.String())

	var unset Count
	assert.False(t, unset.Known())
	assert.Equal(t, UnavailableCount(), unset)
	assert.Equal(t, "n/a", unset.String())
	assert.NotEqual(t, zero, unset)
}

func TestPublishError_Unwrap(t *testing.T) {
	err := fmt.Errorf("publishing: %w", &PublishError{GistID: "abc", Err: ErrTargetNotFound})

	var pubErr *PublishError
	assert.True(t, errors.As(err, &pubErr))
	assert.Equal(t, "abc", pubErr.GistID)
	assert.True(t, errors.Is(err, ErrTargetNotFound))
}
