package service

import (
	"context"
	"log/slog"
	"time"

	"nbp-rates/internal/domain"
	"nbp-rates/internal/metrics"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultDaysLimit is the widest span, in days past the first, that the NBP
// accepts in a single request.
const DefaultDaysLimit = 90

// ObservationSource returns the observations for one chunk of a range.
type ObservationSource interface {
	FetchObservations(ctx context.Context, currency domain.Currency, chunk domain.Chunk) ([]domain.Observation, error)
}

// RangeFetcher serves arbitrary date ranges from a source that only accepts
// bounded ones, by splitting the range into chunks and stitching the results.
type RangeFetcher struct {
	tracer      trace.Tracer
	source      ObservationSource
	limit       int
	concurrency int
	metrics     *metrics.Metrics
	log         *slog.Logger
}

type RangeFetcherOption func(*RangeFetcher)

// WithDaysLimit overrides DefaultDaysLimit. Negative values are ignored.
func WithDaysLimit(limit int) RangeFetcherOption {
	return func(f *RangeFetcher) {
		if limit >= 0 {
			f.limit = limit
		}
	}
}

// WithConcurrency allows up to n chunks to be in flight at once.
func WithConcurrency(n int) RangeFetcherOption {
	return func(f *RangeFetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) RangeFetcherOption {
	return func(f *RangeFetcher) { f.metrics = m }
}

func WithLogger(log *slog.Logger) RangeFetcherOption {
	return func(f *RangeFetcher) {
		if log != nil {
			f.log = log
		}
	}
}

func NewRangeFetcher(tracer trace.Tracer, source ObservationSource, opts ...RangeFetcherOption) *RangeFetcher {
	f := &RangeFetcher{
		tracer:      tracer,
		source:      source,
		limit:       DefaultDaysLimit,
		concurrency: 1,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchRange returns every observation in interval. A chunk the source fails
// on is logged, reported in RangeResult.Failures and skipped; the remaining
// chunks are still fetched. Observations keep chunk order and, within a
// chunk, the order the source returned them in.
func (f *RangeFetcher) FetchRange(ctx context.Context, currency domain.Currency, interval domain.DateInterval) (domain.RangeResult, error) {
	if !interval.Valid() {
		return domain.RangeResult{}, domain.ErrInvalidRange
	}

	ctx, span := f.tracer.Start(ctx, "range-fetcher.fetch-range")
	defer span.End()

	chunks := domain.SplitIntoChunks(interval, f.limit)
	span.SetAttributes(
		attribute.String("currency", currency.Code),
		attribute.String("interval", interval.String()),
		attribute.Int("chunks", len(chunks)),
	)

	results := make([]domain.ChunkResult, len(chunks))

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			results[i] = notStarted(chunk, err)
			continue
		}
		g.Go(func() error {
			// Go may block on the limit, so the context can be done by now.
			if err := ctx.Err(); err != nil {
				results[i] = notStarted(chunk, err)
				return nil
			}
			results[i] = f.fetchChunk(ctx, currency, chunk)
			return nil
		})
	}
	_ = g.Wait()

	result := domain.RangeResult{Currency: currency, Interval: interval}
	for _, r := range results {
		if !r.OK() {
			result.Failures = append(result.Failures, r)
			continue
		}
		result.Observations = append(result.Observations, r.Observations...)
	}

	span.SetAttributes(
		attribute.Int("observations", len(result.Observations)),
		attribute.Int("failed_chunks", len(result.Failures)),
	)
	return result, nil
}

// LastNDays fetches the days calendar days ending on asOf.
func (f *RangeFetcher) LastNDays(ctx context.Context, currency domain.Currency, days int, asOf time.Time) (domain.RangeResult, error) {
	if days < 1 {
		return domain.RangeResult{}, domain.ErrInvalidDayCount
	}
	return f.FetchRange(ctx, currency, domain.LastDays(days, asOf))
}

func (f *RangeFetcher) fetchChunk(ctx context.Context, currency domain.Currency, chunk domain.Chunk) domain.ChunkResult {
	started := time.Now()
	observations, err := f.source.FetchObservations(ctx, currency, chunk)
	elapsed := time.Since(started)

	if err != nil {
		f.log.Error("failed to fetch chunk",
			"currency", currency.Code,
			"start", chunk.Start.Format(domain.DateLayout),
			"end", chunk.End.Format(domain.DateLayout),
			"error", err,
		)
		f.observe(currency, metrics.StatusFailure, elapsed, 0)
		return domain.ChunkResult{Chunk: chunk, Err: errors.Wrapf(err, "chunk %s", chunk)}
	}

	f.log.Debug("fetched chunk",
		"currency", currency.Code,
		"start", chunk.Start.Format(domain.DateLayout),
		"end", chunk.End.Format(domain.DateLayout),
		"observations", len(observations),
	)
	f.observe(currency, metrics.StatusSuccess, elapsed, len(observations))
	return domain.ChunkResult{Chunk: chunk, Observations: observations}
}

func (f *RangeFetcher) observe(currency domain.Currency, status string, elapsed time.Duration, observations int) {
	if f.metrics == nil {
		return
	}
	f.metrics.ChunkRequestsTotal.WithLabelValues(currency.Code, status).Inc()
	f.metrics.ChunkRequestDuration.WithLabelValues(currency.Code).Observe(elapsed.Seconds())
	if observations > 0 {
		f.metrics.ObservationsFetched.WithLabelValues(currency.Code).Add(float64(observations))
	}
}

func notStarted(chunk domain.Chunk, err error) domain.ChunkResult {
	return domain.ChunkResult{Chunk: chunk, Err: errors.Wrap(err, "chunk not started")}
}
