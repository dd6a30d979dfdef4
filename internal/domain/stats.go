package domain

import "time"

// FetchStats holds statistics about one source fetch.
type FetchStats struct {
	SourceSlug string
	Fetched    int
	New        int
	Known      int
	Errors     int
	Duration   time.Duration
}

// AggregateStats holds statistics about a fetch across sources.
type AggregateStats struct {
	Sources   int
	Succeeded int
	Failed    int
	New       int
	Duration  time.Duration
}
