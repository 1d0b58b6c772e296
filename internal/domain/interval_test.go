package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSplitIntoChunksSingleDay(t *testing.T) {
	d := day("2024-03-15")
	for _, limit := range []int{0, 1, 5, 90} {
		chunks := SplitIntoChunks(DateInterval{Start: d, End: d}, limit)
		require.Len(t, chunks, 1, "limit %d", limit)
		assert.Equal(t, d, chunks[0].Start)
		assert.Equal(t, d, chunks[0].End)
	}
}

func TestSplitIntoChunksExactLimit(t *testing.T) {
	start := day("2024-01-01")
	// 91 days inclusive with a limit of 90
	interval := DateInterval{Start: start, End: start.AddDate(0, 0, 90)}
	require.Equal(t, 91, interval.Days())

	chunks := SplitIntoChunks(interval, 90)
	require.Len(t, chunks, 1)
	assert.Equal(t, interval, chunks[0])
}

func TestSplitIntoChunksOffByOne(t *testing.T) {
	start := day("2024-01-01")
	interval := DateInterval{Start: start, End: start.AddDate(0, 0, 91)}
	require.Equal(t, 92, interval.Days())

	chunks := SplitIntoChunks(interval, 90)
	require.Len(t, chunks, 2)
	assert.Equal(t, 91, chunks[0].Days())
	assert.Equal(t, 1, chunks[1].Days())
	assert.Equal(t, interval.End, chunks[1].Start)
	assert.Equal(t, interval.End, chunks[1].End)
}

func TestSplitIntoChunksZeroLimit(t *testing.T) {
	interval := DateInterval{Start: day("2024-02-27"), End: day("2024-03-02")}
	chunks := SplitIntoChunks(interval, 0)
	require.Len(t, chunks, 5)
	for i, c := range chunks {
		assert.Equal(t, interval.Start.AddDate(0, 0, i), c.Start)
		assert.Equal(t, c.Start, c.End)
	}
}

func TestSplitIntoChunksInvalid(t *testing.T) {
	assert.Empty(t, SplitIntoChunks(DateInterval{Start: day("2024-01-02"), End: day("2024-01-01")}, 90))
	assert.Empty(t, SplitIntoChunks(DateInterval{Start: day("2024-01-01"), End: day("2024-01-02")}, -1))
}

func TestSplitIntoChunksPartition(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := day("2019-06-01")

	for i := 0; i < 500; i++ {
		start := base.AddDate(0, 0, rng.Intn(2000))
		end := start.AddDate(0, 0, rng.Intn(800))
		limit := rng.Intn(120)
		interval := DateInterval{Start: start, End: end}

		chunks := SplitIntoChunks(interval, limit)
		require.NotEmpty(t, chunks)
		require.Equal(t, start, chunks[0].Start, "first chunk must start at interval start")
		require.Equal(t, end, chunks[len(chunks)-1].End, "last chunk must end at interval end")

		covered := 0
		for j, c := range chunks {
			require.True(t, c.Valid(), "chunk %d invalid: %s", j, c)
			require.LessOrEqual(t, c.Days(), limit+1, "chunk %d too long: %s", j, c)
			if j > 0 {
				require.Equal(t, chunks[j-1].End.AddDate(0, 0, 1), c.Start, "chunks %d and %d not contiguous", j-1, j)
			}
			covered += c.Days()
		}
		require.Equal(t, interval.Days(), covered)
	}
}

func TestSplitIntoChunksCenturiesWide(t *testing.T) {
	interval, err := ParseDateInterval("1700-01-01", "2024-01-01")
	require.NoError(t, err)
	require.Equal(t, 118339, interval.Days())

	chunks := SplitIntoChunks(interval, 90)
	require.Len(t, chunks, 1301)
	assert.Equal(t, interval.Start, chunks[0].Start)
	assert.Equal(t, interval.End, chunks[len(chunks)-1].End)

	covered := 0
	for _, c := range chunks {
		covered += c.Days()
	}
	assert.Equal(t, interval.Days(), covered)
}

func TestSplitIntoChunksAcrossDST(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	start := time.Date(2024, 3, 30, 23, 0, 0, 0, warsaw)
	end := time.Date(2024, 4, 1, 1, 0, 0, 0, warsaw)

	chunks := SplitIntoChunks(NewDateInterval(start, end), 90)
	require.Len(t, chunks, 1)
	assert.Equal(t, 3, chunks[0].Days())
}

func TestLastDays(t *testing.T) {
	asOf := time.Date(2024, 1, 10, 15, 4, 5, 0, time.UTC)
	interval := LastDays(5, asOf)
	assert.Equal(t, day("2024-01-06"), interval.Start)
	assert.Equal(t, day("2024-01-10"), interval.End)
	assert.Equal(t, 5, interval.Days())
}

func TestParseDateInterval(t *testing.T) {
	interval, err := ParseDateInterval("2024-01-01", "2024-02-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01/2024-02-01", interval.String())

	_, err = ParseDateInterval("2024-13-01", "2024-02-01")
	assert.Error(t, err)
	_, err = ParseDateInterval("2024-01-01", "tomorrow")
	assert.Error(t, err)
}
