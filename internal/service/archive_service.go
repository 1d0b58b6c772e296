package service

import (
	"context"
	"log/slog"
	"time"

	"nbp-rates/internal/domain"
	"nbp-rates/internal/metrics"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrArchiveDisabled is returned when no repository is configured.
var ErrArchiveDisabled = errors.New("archive storage is not configured")

type RangeLoader interface {
	LastNDays(ctx context.Context, currency domain.Currency, days int, asOf time.Time) (domain.RangeResult, error)
}

type ObservationRepository interface {
	UpsertObservations(ctx context.Context, currency domain.Currency, observations []domain.Observation) error
	GetObservations(ctx context.Context, currency domain.Currency, interval domain.DateInterval) ([]domain.Observation, error)
	RecordSyncRun(ctx context.Context, run domain.SyncRun) error
}

type EventPublisher interface {
	PublishSynced(ctx context.Context, event domain.SyncEvent) error
}

// ArchiveService copies recent rates into long-term storage and serves them
// back without touching the NBP API.
type ArchiveService struct {
	tracer    trace.Tracer
	loader    RangeLoader
	repo      ObservationRepository
	publisher EventPublisher
	metrics   *metrics.Metrics
	log       *slog.Logger

	now      func() time.Time
	newRunID func() string
}

// NewArchiveService wires the archive. repo and publisher may be nil: without
// a repository syncs only fetch, without a publisher no events are sent.
func NewArchiveService(
	tracer trace.Tracer,
	loader RangeLoader,
	repo ObservationRepository,
	publisher EventPublisher,
	m *metrics.Metrics,
) *ArchiveService {
	return &ArchiveService{
		tracer:    tracer,
		loader:    loader,
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		log:       slog.Default(),
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
}

// Enabled reports whether archived data can be read back.
func (s *ArchiveService) Enabled() bool {
	return s.repo != nil
}

// EventsEnabled reports whether sync runs publish events.
func (s *ArchiveService) EventsEnabled() bool {
	return s.publisher != nil
}

// Sync fetches the last days days up to asOf for every currency and stores
// them. A currency that fails does not stop the others.
func (s *ArchiveService) Sync(ctx context.Context, currencies []domain.Currency, days int, asOf time.Time) (domain.SyncRun, error) {
	if days < 1 {
		return domain.SyncRun{}, domain.ErrInvalidDayCount
	}

	ctx, span := s.tracer.Start(ctx, "archive-service.sync")
	defer span.End()

	interval := domain.LastDays(days, asOf)
	run := domain.SyncRun{
		ID:         s.newRunID(),
		Start:      interval.Start,
		End:        interval.End,
		StartedAt:  s.now().UTC(),
		Currencies: make([]domain.SyncCurrencyResult, 0, len(currencies)),
	}
	span.SetAttributes(attribute.String("run_id", run.ID), attribute.Int("currencies", len(currencies)))

	for _, currency := range currencies {
		run.Currencies = append(run.Currencies, s.syncCurrency(ctx, run.ID, currency, days, asOf))
	}

	run.FinishedAt = s.now().UTC()
	run.Status = syncStatus(run.Currencies)

	if s.repo != nil {
		if err := s.repo.RecordSyncRun(ctx, run); err != nil {
			s.log.Error("failed to record sync run", "run_id", run.ID, "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.ArchiveSyncRunsTotal.WithLabelValues(string(run.Status)).Inc()
	}

	s.log.Info("archive sync finished", "run_id", run.ID, "status", run.Status, "interval", interval.String())
	return run, nil
}

func (s *ArchiveService) syncCurrency(ctx context.Context, runID string, currency domain.Currency, days int, asOf time.Time) domain.SyncCurrencyResult {
	out := domain.SyncCurrencyResult{Currency: currency.Code}

	result, err := s.loader.LastNDays(ctx, currency, days, asOf)
	if err != nil {
		out.Error = err.Error()
		s.log.Error("archive fetch failed", "run_id", runID, "currency", currency.Code, "error", err)
		return out
	}
	out.FailedChunks = len(result.Failures)

	if s.repo != nil && len(result.Observations) > 0 {
		if err := s.repo.UpsertObservations(ctx, currency, result.Observations); err != nil {
			out.Error = err.Error()
			s.log.Error("archive upsert failed", "run_id", runID, "currency", currency.Code, "error", err)
			return out
		}
		if s.metrics != nil {
			s.metrics.ArchiveRowsUpserted.Add(float64(len(result.Observations)))
		}
	}
	out.Observations = len(result.Observations)

	if s.publisher != nil {
		event := domain.SyncEvent{
			RunID:        runID,
			Currency:     currency.Code,
			Start:        result.Interval.Start,
			End:          result.Interval.End,
			Observations: out.Observations,
			FailedChunks: out.FailedChunks,
		}
		if err := s.publisher.PublishSynced(ctx, event); err != nil {
			s.log.Warn("failed to publish sync event", "run_id", runID, "currency", currency.Code, "error", err)
		}
	}
	return out
}

// Archived returns the stored observations for interval, ordered by date.
func (s *ArchiveService) Archived(ctx context.Context, currency domain.Currency, interval domain.DateInterval) ([]domain.Observation, error) {
	if s.repo == nil {
		return nil, ErrArchiveDisabled
	}
	if !interval.Valid() {
		return nil, domain.ErrInvalidRange
	}

	ctx, span := s.tracer.Start(ctx, "archive-service.archived")
	defer span.End()

	return s.repo.GetObservations(ctx, currency, interval)
}

func syncStatus(results []domain.SyncCurrencyResult) domain.SyncStatus {
	failed, partial := 0, 0
	for _, r := range results {
		switch {
		case r.Error != "":
			failed++
		case r.FailedChunks > 0:
			partial++
		}
	}
	switch {
	case len(results) > 0 && failed == len(results):
		return domain.SyncFailure
	case failed > 0 || partial > 0:
		return domain.SyncPartial
	default:
		return domain.SyncSuccess
	}
}
