package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"nbp-rates/internal/domain"
	"nbp-rates/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchive(loader RangeLoader, repo ObservationRepository, pub EventPublisher, m *metrics.Metrics) *ArchiveService {
	svc := NewArchiveService(testTracer, loader, repo, pub, m)
	clock := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	svc.newRunID = func() string { return "run-1" }
	return svc
}

func TestArchiveServiceSyncStoresAndPublishes(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	repo := &mockObservationRepo{}
	pub := &mockPublisher{}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	svc := newTestArchive(NewRangeFetcher(testTracer, source), repo, pub, m)

	run, err := svc.Sync(context.Background(), []domain.Currency{domain.EUR, domain.USD}, 5, date("2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, domain.SyncSuccess, run.Status)
	assert.WithinDuration(t, date("2024-01-06"), run.Start, 0)
	assert.WithinDuration(t, date("2024-01-10"), run.End, 0)

	assert.Equal(t, 2, repo.upsertCalls)
	assert.Len(t, repo.upserted["EUR"], 5)

	require.Len(t, pub.events, 2)
	assert.Equal(t, "EUR", pub.events[0].Currency)
	assert.Equal(t, "run-1", pub.events[0].RunID)

	require.Len(t, repo.runs, 1)
	assert.Equal(t, "run-1", repo.runs[0].ID)

	assert.Equal(t, float64(10), testutil.ToFloat64(m.ArchiveRowsUpserted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ArchiveSyncRunsTotal.WithLabelValues("success")))
}

func TestArchiveServiceSyncContinuesAfterCurrencyFailure(t *testing.T) {
	t.Parallel()

	loader := &stubLoader{fail: map[string]error{"USD": errors.New("boom")}}
	repo := &mockObservationRepo{}
	svc := newTestArchive(loader, repo, nil, nil)

	run, err := svc.Sync(context.Background(), []domain.Currency{domain.USD, domain.EUR}, 3, date("2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, domain.SyncPartial, run.Status)
	require.Len(t, run.Currencies, 2)
	assert.NotEmpty(t, run.Currencies[0].Error)
	assert.Equal(t, 3, run.Currencies[1].Observations)
	assert.Contains(t, repo.upserted, "EUR", "EUR should still be archived")
}

func TestArchiveServiceSyncUpsertFailure(t *testing.T) {
	t.Parallel()

	repo := &mockObservationRepo{upsertErr: errors.New("db down")}
	pub := &mockPublisher{}
	svc := newTestArchive(&stubLoader{}, repo, pub, nil)

	run, err := svc.Sync(context.Background(), []domain.Currency{domain.EUR}, 2, date("2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, domain.SyncFailure, run.Status)
	assert.Empty(t, pub.events, "no event expected when the upsert fails")
}

func TestArchiveServiceSyncReportsFailedChunks(t *testing.T) {
	t.Parallel()

	source := &fakeSource{failOn: map[string]error{"2024-01-09": errors.New("404")}}
	pub := &mockPublisher{}
	svc := newTestArchive(NewRangeFetcher(testTracer, source, WithDaysLimit(1)), &mockObservationRepo{}, pub, nil)

	run, err := svc.Sync(context.Background(), []domain.Currency{domain.EUR}, 4, date("2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, domain.SyncPartial, run.Status)
	require.Len(t, run.Currencies, 1)
	assert.Equal(t, 1, run.Currencies[0].FailedChunks)
	assert.Equal(t, 2, run.Currencies[0].Observations)

	require.Len(t, pub.events, 1)
	assert.Equal(t, 1, pub.events[0].FailedChunks)
}

func TestArchiveServiceSyncPublisherErrorIsNotFatal(t *testing.T) {
	t.Parallel()

	svc := newTestArchive(&stubLoader{}, nil, &mockPublisher{err: errors.New("redis gone")}, nil)

	run, err := svc.Sync(context.Background(), []domain.Currency{domain.EUR}, 1, date("2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, domain.SyncSuccess, run.Status)
}

func TestArchiveServiceSyncInvalidDays(t *testing.T) {
	t.Parallel()

	svc := newTestArchive(&stubLoader{}, nil, nil, nil)
	_, err := svc.Sync(context.Background(), []domain.Currency{domain.EUR}, 0, date("2024-01-10"))
	assert.ErrorIs(t, err, domain.ErrInvalidDayCount)
}

func TestArchiveServiceArchived(t *testing.T) {
	t.Parallel()

	stored := []domain.Observation{{Mid: 4.3, Date: date("2024-01-02")}}
	repo := &mockObservationRepo{getResp: stored}
	svc := newTestArchive(&stubLoader{}, repo, nil, nil)

	interval := domain.DateInterval{Start: date("2024-01-01"), End: date("2024-01-31")}
	got, err := svc.Archived(context.Background(), domain.EUR, interval)
	require.NoError(t, err)
	assert.Equal(t, stored, got)
	assert.Equal(t, interval, repo.lastGetInterval)

	_, err = svc.Archived(context.Background(), domain.EUR, domain.DateInterval{Start: interval.End, End: interval.Start})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestArchiveServiceArchivedDisabled(t *testing.T) {
	t.Parallel()

	svc := newTestArchive(&stubLoader{}, nil, nil, nil)
	assert.False(t, svc.Enabled(), "archive without repository must report disabled")

	_, err := svc.Archived(context.Background(), domain.EUR, domain.LastDays(1, date("2024-01-01")))
	assert.ErrorIs(t, err, ErrArchiveDisabled)
}

func TestArchiveServiceEventsEnabled(t *testing.T) {
	t.Parallel()

	assert.False(t, newTestArchive(&stubLoader{}, nil, nil, nil).EventsEnabled())
	assert.True(t, newTestArchive(&stubLoader{}, nil, &mockPublisher{}, nil).EventsEnabled())
}

type stubLoader struct {
	fail map[string]error
}

func (s *stubLoader) LastNDays(ctx context.Context, currency domain.Currency, days int, asOf time.Time) (domain.RangeResult, error) {
	if err, ok := s.fail[currency.Code]; ok {
		return domain.RangeResult{}, err
	}
	interval := domain.LastDays(days, asOf)
	result := domain.RangeResult{Currency: currency, Interval: interval}
	for d := interval.Start; !d.After(interval.End); d = d.AddDate(0, 0, 1) {
		result.Observations = append(result.Observations, domain.Observation{Mid: 1, Date: d})
	}
	return result, nil
}

type mockObservationRepo struct {
	upserted    map[string][]domain.Observation
	upsertCalls int
	upsertErr   error

	getResp         []domain.Observation
	lastGetInterval domain.DateInterval

	runs []domain.SyncRun
}

func (m *mockObservationRepo) UpsertObservations(ctx context.Context, currency domain.Currency, observations []domain.Observation) error {
	m.upsertCalls++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if m.upserted == nil {
		m.upserted = make(map[string][]domain.Observation)
	}
	m.upserted[currency.Code] = append(m.upserted[currency.Code], observations...)
	return nil
}

func (m *mockObservationRepo) GetObservations(ctx context.Context, currency domain.Currency, interval domain.DateInterval) ([]domain.Observation, error) {
	m.lastGetInterval = interval
	return m.getResp, nil
}

func (m *mockObservationRepo) RecordSyncRun(ctx context.Context, run domain.SyncRun) error {
	m.runs = append(m.runs, run)
	return nil
}

type mockPublisher struct {
	events []domain.SyncEvent
	err    error
}

func (m *mockPublisher) PublishSynced(ctx context.Context, event domain.SyncEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}
