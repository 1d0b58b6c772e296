package repository

import (
	"context"
	"encoding/json"
	"time"

	"nbp-rates/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const upsertObservationSQL = `INSERT INTO observations (currency, effective_on, mid, table_no, updated_at)
 VALUES ($1, $2, $3, $4, $5)
 ON CONFLICT (currency, effective_on) DO UPDATE SET
     mid = EXCLUDED.mid,
     table_no = EXCLUDED.table_no,
     updated_at = EXCLUDED.updated_at`

type ObservationRepository struct {
	pool   PgxPool
	tracer trace.Tracer
	now    func() time.Time
}

func NewObservationRepository(pool PgxPool, tracer trace.Tracer) *ObservationRepository {
	return &ObservationRepository{pool: pool, tracer: tracer, now: time.Now}
}

// UpsertObservations stores observations keyed by currency and date. A
// re-fetched day overwrites the stored mid.
func (r *ObservationRepository) UpsertObservations(ctx context.Context, currency domain.Currency, observations []domain.Observation) error {
	const op = "repository.UpsertObservations"

	if len(observations) == 0 {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "observation-repo.upsert-observations")
	defer span.End()
	span.SetAttributes(attribute.String("currency", currency.Code), attribute.Int("rows", len(observations)))

	updatedAt := r.now().UTC()
	batch := &pgx.Batch{}
	for _, o := range observations {
		batch.Queue(upsertObservationSQL, currency.Code, domain.Date(o.Date), o.Mid, o.No, updatedAt)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range observations {
		if _, err := br.Exec(); err != nil {
			return errors.Wrap(err, op)
		}
	}
	return nil
}

// GetObservations returns stored observations inside interval, oldest first.
func (r *ObservationRepository) GetObservations(ctx context.Context, currency domain.Currency, interval domain.DateInterval) ([]domain.Observation, error) {
	const op = "repository.GetObservations"

	ctx, span := r.tracer.Start(ctx, "observation-repo.get-observations")
	defer span.End()
	span.SetAttributes(attribute.String("currency", currency.Code), attribute.String("interval", interval.String()))

	rows, err := r.pool.Query(ctx,
		`SELECT effective_on, mid, table_no
		 FROM observations
		 WHERE currency = $1 AND effective_on >= $2 AND effective_on <= $3
		 ORDER BY effective_on ASC`,
		currency.Code, interval.Start, interval.End,
	)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	defer rows.Close()

	observations := make([]domain.Observation, 0)
	for rows.Next() {
		var o domain.Observation
		if err := rows.Scan(&o.Date, &o.Mid, &o.No); err != nil {
			return nil, errors.Wrap(err, op)
		}
		o.Date = domain.Date(o.Date)
		observations = append(observations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, op)
	}
	return observations, nil
}

// RecordSyncRun stores the outcome of an archive sync.
func (r *ObservationRepository) RecordSyncRun(ctx context.Context, run domain.SyncRun) error {
	const op = "repository.RecordSyncRun"

	ctx, span := r.tracer.Start(ctx, "observation-repo.record-sync-run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", run.ID), attribute.String("status", string(run.Status)))

	currencies, err := json.Marshal(run.Currencies)
	if err != nil {
		return errors.Wrap(err, op)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO sync_runs (id, range_start, range_end, started_at, finished_at, status, currencies)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Start, run.End, run.StartedAt, run.FinishedAt, string(run.Status), string(currencies),
	)
	if err != nil {
		return errors.Wrap(err, op)
	}
	return nil
}
