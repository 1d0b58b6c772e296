package domain

import "time"

// DateLayout is the calendar date format used by the NBP API.
const DateLayout = "2006-01-02"

// Observation is one day's mid-market rate for a currency.
type Observation struct {
	Mid  float64   `json:"mid"`
	Date time.Time `json:"date"`
	// No is the NBP table number the rate was published in, when known.
	No string `json:"no,omitempty"`
}

// ChunkResult is the outcome of fetching a single chunk: either the
// observations the source returned or the reason it failed.
type ChunkResult struct {
	Chunk        Chunk
	Observations []Observation
	Err          error
}

// OK reports whether the chunk was fetched successfully.
func (r ChunkResult) OK() bool {
	return r.Err == nil
}

// RangeResult aggregates a range fetch. Observations are ordered by chunk,
// and within a chunk in the order the source returned them.
type RangeResult struct {
	Currency     Currency
	Interval     DateInterval
	Observations []Observation
	Failures     []ChunkResult
}

// Partial reports whether at least one chunk failed.
func (r RangeResult) Partial() bool {
	return len(r.Failures) > 0
}
