package handler

import (
	"net/http"
	"strconv"

	"nbp-rates/internal/domain"
	"nbp-rates/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const maxDays = 3650

type ObservationResponse struct {
	Mid  float64 `json:"mid"`
	Date string  `json:"date"`
	No   string  `json:"no,omitempty"`
}

type FailedChunkResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Error string `json:"error"`
}

type RatesResponse struct {
	Currency     domain.Currency       `json:"currency"`
	Start        string                `json:"start"`
	End          string                `json:"end"`
	Observations []ObservationResponse `json:"observations"`
	FailedChunks []FailedChunkResponse `json:"failed_chunks"`
}

// ListCurrencies godoc
// @Summary      List supported currencies
// @Description  Returns every currency code the service can look up, with its NBP table
// @Tags         rates
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/currencies [get]
func (h *Handler) ListCurrencies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"currencies": domain.SupportedCurrencies})
}

// GetLastRates godoc
// @Summary      Get rates for the last N days
// @Description  Fetches mid rates for the given number of calendar days ending today
// @Tags         rates
// @Produce      json
// @Param        code  path   string  true   "Currency code (e.g., EUR, USD)"
// @Param        days  query  int     false  "Number of days (default 1, max 3650)"  default(1)
// @Success      200  {object}  RatesResponse
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/rates/{code} [get]
func (h *Handler) GetLastRates(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-last-rates")
	defer span.End()

	currency, ok := lookupCurrency(c)
	if !ok {
		return
	}

	days := 1
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxDays {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer between 1 and " + strconv.Itoa(maxDays)})
			return
		}
		days = n
	}
	span.SetAttributes(attribute.String("currency", currency.Code), attribute.Int("days", days))

	result, err := h.fetcher.LastNDays(ctx, currency, days, h.now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRatesResponse(result))
}

// GetRatesRange godoc
// @Summary      Get rates for a date range
// @Description  Fetches mid rates between two dates, splitting the range into requests the NBP accepts
// @Tags         rates
// @Produce      json
// @Param        code   path   string  true  "Currency code (e.g., EUR, USD)"
// @Param        start  query  string  true  "First day, YYYY-MM-DD"
// @Param        end    query  string  true  "Last day, YYYY-MM-DD (at most 3650 days after start, inclusive)"
// @Success      200  {object}  RatesResponse
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/rates/{code}/range [get]
func (h *Handler) GetRatesRange(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-rates-range")
	defer span.End()

	currency, ok := lookupCurrency(c)
	if !ok {
		return
	}
	interval, ok := parseInterval(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("currency", currency.Code), attribute.String("interval", interval.String()))

	result, err := h.fetcher.FetchRange(ctx, currency, interval)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRatesResponse(result))
}

// GetArchivedRates godoc
// @Summary      Get archived rates
// @Description  Returns rates previously stored by archive syncs, without calling the NBP
// @Tags         archive
// @Produce      json
// @Param        code   path   string  true  "Currency code (e.g., EUR, USD)"
// @Param        start  query  string  true  "First day, YYYY-MM-DD"
// @Param        end    query  string  true  "Last day, YYYY-MM-DD"
// @Success      200  {object}  RatesResponse
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/archive/{code} [get]
func (h *Handler) GetArchivedRates(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-archived-rates")
	defer span.End()

	if h.archive == nil || !h.archive.Enabled() {
		writeError(c, service.ErrArchiveDisabled)
		return
	}

	currency, ok := lookupCurrency(c)
	if !ok {
		return
	}
	interval, ok := parseInterval(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("currency", currency.Code), attribute.String("interval", interval.String()))

	observations, err := h.archive.Archived(ctx, currency, interval)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRatesResponse(domain.RangeResult{
		Currency:     currency,
		Interval:     interval,
		Observations: observations,
	}))
}

// TriggerSync godoc
// @Summary      Run an archive sync now
// @Description  Fetches the configured currencies for the configured number of days and stores them
// @Tags         archive
// @Produce      json
// @Success      200  {object}  domain.SyncRun
// @Failure      500  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/archive/sync [post]
func (h *Handler) TriggerSync(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-sync")
	defer span.End()

	if h.syncer == nil || h.archive == nil || !h.archive.Enabled() {
		writeError(c, service.ErrArchiveDisabled)
		return
	}

	run, err := h.syncer.RunNow(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	span.SetAttributes(attribute.String("run_id", run.ID), attribute.String("status", string(run.Status)))
	c.JSON(http.StatusOK, run)
}

func lookupCurrency(c *gin.Context) (domain.Currency, bool) {
	code := c.Param("code")
	currency, err := domain.LookupCurrency(code)
	if err != nil {
		codes := make([]string, 0, len(domain.SupportedCurrencies))
		for _, sc := range domain.SupportedCurrencies {
			codes = append(codes, sc.Code)
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":                "unsupported currency: " + code,
			"supported_currencies": codes,
		})
		return domain.Currency{}, false
	}
	return currency, true
}

func parseInterval(c *gin.Context) (domain.DateInterval, bool) {
	interval, err := domain.ParseDateInterval(c.Query("start"), c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return domain.DateInterval{}, false
	}
	if !interval.Valid() {
		writeError(c, domain.ErrInvalidRange)
		return domain.DateInterval{}, false
	}
	if interval.Days() > maxDays {
		c.JSON(http.StatusBadRequest, gin.H{"error": "range must not exceed " + strconv.Itoa(maxDays) + " days"})
		return domain.DateInterval{}, false
	}
	return interval, true
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrInvalidDayCount),
		errors.Is(err, domain.ErrUnsupportedCurrency):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrArchiveDisabled):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func newRatesResponse(result domain.RangeResult) RatesResponse {
	resp := RatesResponse{
		Currency:     result.Currency,
		Start:        result.Interval.Start.Format(domain.DateLayout),
		End:          result.Interval.End.Format(domain.DateLayout),
		Observations: make([]ObservationResponse, 0, len(result.Observations)),
		FailedChunks: make([]FailedChunkResponse, 0, len(result.Failures)),
	}
	for _, o := range result.Observations {
		resp.Observations = append(resp.Observations, ObservationResponse{
			Mid:  o.Mid,
			Date: o.Date.Format(domain.DateLayout),
			No:   o.No,
		})
	}
	for _, f := range result.Failures {
		resp.FailedChunks = append(resp.FailedChunks, FailedChunkResponse{
			Start: f.Chunk.Start.Format(domain.DateLayout),
			End:   f.Chunk.End.Format(domain.DateLayout),
			Error: f.Err.Error(),
		})
	}
	return resp
}
