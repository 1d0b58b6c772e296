package job

import (
	"context"
	"log/slog"
	"time"

	"nbp-rates/internal/domain"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/trace"
)

type ArchiveSyncer interface {
	Sync(ctx context.Context, currencies []domain.Currency, days int, asOf time.Time) (domain.SyncRun, error)
}

// ArchiveSyncJob copies the last days of rates into the archive on a cron
// schedule with a seconds field, e.g. "0 30 12 * * 1-5".
type ArchiveSyncJob struct {
	tracer     trace.Tracer
	syncer     ArchiveSyncer
	spec       string
	currencies []domain.Currency
	days       int
	now        func() time.Time
}

func NewArchiveSyncJob(tracer trace.Tracer, syncer ArchiveSyncer, spec string, currencies []domain.Currency, days int) *ArchiveSyncJob {
	return &ArchiveSyncJob{
		tracer:     tracer,
		syncer:     syncer,
		spec:       spec,
		currencies: currencies,
		days:       days,
		now:        time.Now,
	}
}

// Start schedules the job and blocks until ctx is cancelled. Runs that would
// overlap a still-running sync are skipped.
func (j *ArchiveSyncJob) Start(ctx context.Context) error {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(j.spec, func() { j.run(ctx) }); err != nil {
		return errors.Wrapf(err, "register archive sync %q", j.spec)
	}

	c.Start()
	slog.Info("archive sync scheduled", "cron", j.spec, "days", j.days, "currencies", len(j.currencies))

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("archive sync stopped")
	return nil
}

// RunNow performs one sync immediately, outside the schedule.
func (j *ArchiveSyncJob) RunNow(ctx context.Context) (domain.SyncRun, error) {
	ctx, span := j.tracer.Start(ctx, "job.archive-sync")
	defer span.End()

	return j.syncer.Sync(ctx, j.currencies, j.days, j.now())
}

func (j *ArchiveSyncJob) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := j.RunNow(ctx); err != nil {
		slog.Error("archive sync failed", "error", err)
	}
}
