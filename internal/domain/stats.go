// Package domain contains the core data structures and domain logic for the application.
package domain

import "strconv"

// Count is a single engagement counter. A Count either holds a real value
// (which may legitimately be zero) or is unavailable because fetching it failed.
// The zero value is unavailable.
type Count struct {
	value int
	known bool
}

// KnownCount returns an available Count holding n.
func KnownCount(n int) Count {
	return Count{value: n, known: true}
}

// UnavailableCount returns a Count marking a failed or skipped fetch.
func UnavailableCount() Count {
	return Count{}
}

// Value returns the counter and whether it is available.
func (c Count) Value() (int, bool) {
	return c.value, c.known
}

// Known reports whether the counter holds a fetched value.
func (c Count) Known() bool {
	return c.known
}

func (c Count) String() string {
	if !c.known {
		return "n/a"
	}
	return strconv.Itoa(c.value)
}

// EngagementStats holds the engagement counters for a single gist.
// Each field is fetched independently; one being unavailable says nothing about the others.
type EngagementStats struct {
	Comments Count
	Forks    Count
	Stars    Count
}

// UnavailableStats returns stats with every counter unavailable.
func UnavailableStats() EngagementStats {
	return EngagementStats{}
}
