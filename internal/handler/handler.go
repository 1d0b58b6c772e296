package handler

import (
	"context"
	"time"

	"nbp-rates/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type RangeFetcher interface {
	FetchRange(ctx context.Context, currency domain.Currency, interval domain.DateInterval) (domain.RangeResult, error)
	LastNDays(ctx context.Context, currency domain.Currency, days int, asOf time.Time) (domain.RangeResult, error)
}

type Archive interface {
	Enabled() bool
	EventsEnabled() bool
	Archived(ctx context.Context, currency domain.Currency, interval domain.DateInterval) ([]domain.Observation, error)
}

type SyncTrigger interface {
	RunNow(ctx context.Context) (domain.SyncRun, error)
}

type Handler struct {
	tracer  trace.Tracer
	fetcher RangeFetcher
	archive Archive
	syncer  SyncTrigger
	now     func() time.Time
}

func New(tracer trace.Tracer, fetcher RangeFetcher, archive Archive, syncer SyncTrigger) *Handler {
	return &Handler{
		tracer:  tracer,
		fetcher: fetcher,
		archive: archive,
		syncer:  syncer,
		now:     time.Now,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/currencies", h.ListCurrencies)
	api.GET("/rates/:code", h.GetLastRates)
	api.GET("/rates/:code/range", h.GetRatesRange)
	api.GET("/archive/:code", h.GetArchivedRates)
	api.POST("/archive/sync", h.TriggerSync)
}
