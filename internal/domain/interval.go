package domain

import (
	"fmt"
	"time"
)

// DateInterval is an inclusive range of calendar dates.
type DateInterval struct {
	Start time.Time
	End   time.Time
}

// Chunk is a DateInterval short enough to be requested from the source in
// one call.
type Chunk = DateInterval

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDateInterval builds an interval over the calendar days of start and end.
func NewDateInterval(start, end time.Time) DateInterval {
	return DateInterval{Start: Date(start), End: Date(end)}
}

// ParseDateInterval parses two YYYY-MM-DD dates.
func ParseDateInterval(start, end string) (DateInterval, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateInterval{}, fmt.Errorf("parse start date %q: %w", start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateInterval{}, fmt.Errorf("parse end date %q: %w", end, err)
	}
	return NewDateInterval(s, e), nil
}

// LastDays returns the interval of the given number of days ending on asOf.
func LastDays(days int, asOf time.Time) DateInterval {
	end := Date(asOf)
	return DateInterval{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

// Valid reports whether Start is not after End.
func (i DateInterval) Valid() bool {
	return !i.Start.After(i.End)
}

// Days returns the number of calendar days covered, both ends included.
func (i DateInterval) Days() int {
	return daysBetween(i.Start, i.End) + 1
}

func (i DateInterval) String() string {
	return i.Start.Format(DateLayout) + "/" + i.End.Format(DateLayout)
}

// SplitIntoChunks partitions interval into ascending, contiguous chunks each
// covering at most limit+1 days. An invalid interval or negative limit yields
// no chunks.
func SplitIntoChunks(interval DateInterval, limit int) []Chunk {
	if !interval.Valid() || limit < 0 {
		return nil
	}

	cursor := Date(interval.Start)
	remaining := daysBetween(cursor, Date(interval.End))

	chunks := make([]Chunk, 0, remaining/(limit+1)+1)
	for remaining >= 0 {
		if remaining == 0 {
			chunks = append(chunks, Chunk{Start: cursor, End: cursor})
			break
		}

		span := min(remaining, limit)
		end := cursor.AddDate(0, 0, span)
		chunks = append(chunks, Chunk{Start: cursor, End: end})
		cursor = end.AddDate(0, 0, 1)
		remaining -= span + 1
	}
	return chunks
}

const secondsPerDay = 24 * 60 * 60

// daysBetween counts whole calendar days from a to b. It works on Unix
// seconds of the UTC midnights, so it holds for spans a time.Duration
// cannot represent.
func daysBetween(a, b time.Time) int {
	return int((Date(b).Unix() - Date(a).Unix()) / secondsPerDay)
}
