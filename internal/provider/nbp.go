package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nbp-rates/internal/domain"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const nbpBaseURL = "https://api.nbp.pl/api"

// NBPProvider fetches daily mid rates from the National Bank of Poland API.
type NBPProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

// NewNBPProvider creates a provider. An empty baseURL falls back to the
// public NBP endpoint.
func NewNBPProvider(tracer trace.Tracer, baseURL string, timeout time.Duration) *NBPProvider {
	if baseURL == "" {
		baseURL = nbpBaseURL
	}
	return &NBPProvider{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		tracer:  tracer,
	}
}

// Response shape: {"table":"A","currency":"euro","code":"EUR","rates":[{"no":"001/A/NBP/2024","effectiveDate":"2024-01-02","mid":4.3434}]}
type nbpRatesResponse struct {
	Table    string    `json:"table"`
	Currency string    `json:"currency"`
	Code     string    `json:"code"`
	Rates    []nbpRate `json:"rates"`
}

type nbpRate struct {
	No            string  `json:"no"`
	EffectiveDate string  `json:"effectiveDate"`
	Mid           float64 `json:"mid"`
}

// FetchObservations returns the rates published for currency within chunk,
// in the order the API lists them.
func (p *NBPProvider) FetchObservations(ctx context.Context, currency domain.Currency, chunk domain.Chunk) ([]domain.Observation, error) {
	const op = "provider.nbp.FetchObservations"

	ctx, span := p.tracer.Start(ctx, "nbp.fetch-observations")
	defer span.End()
	span.SetAttributes(
		attribute.String("currency", currency.Code),
		attribute.String("start", chunk.Start.Format(domain.DateLayout)),
		attribute.String("end", chunk.End.Format(domain.DateLayout)),
	)

	body, err := p.doRequest(ctx, p.ratesURL(currency, chunk))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrap(err, op)
	}

	var raw nbpRatesResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrapf(err, "%s: parse rates for %s", op, currency.Code)
	}

	observations := make([]domain.Observation, 0, len(raw.Rates))
	for _, r := range raw.Rates {
		date, err := time.Parse(domain.DateLayout, r.EffectiveDate)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, errors.Wrapf(err, "%s: parse effective date %q", op, r.EffectiveDate)
		}
		observations = append(observations, domain.Observation{
			Mid:  r.Mid,
			Date: date,
			No:   r.No,
		})
	}

	span.SetAttributes(attribute.Int("observations", len(observations)))
	return observations, nil
}

func (p *NBPProvider) ratesURL(currency domain.Currency, chunk domain.Chunk) string {
	return fmt.Sprintf("%s/exchangerates/rates/%s/%s/%s/%s/?format=json",
		p.baseURL,
		currency.Table,
		currency.Code,
		chunk.Start.Format(domain.DateLayout),
		chunk.End.Format(domain.DateLayout),
	)
}

func (p *NBPProvider) doRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("nbp API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return io.ReadAll(resp.Body)
}
