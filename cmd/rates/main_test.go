package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"nbp-rates/internal/config"
	"nbp-rates/internal/domain"
	"nbp-rates/internal/service"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestRunDefaultPrintsLastFiveEuroDays(t *testing.T) {
	source := &recordingSource{}
	restore := stubDeps(source)
	defer restore()

	var stdout bytes.Buffer
	if err := run(context.Background(), nil, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(source.chunks) != 1 {
		t.Fatalf("expected a single request, got %d", len(source.chunks))
	}
	chunk := source.chunks[0]
	if source.currency.Code != "EUR" || chunk.Start.Format(domain.DateLayout) != "2024-01-06" || chunk.End.Format(domain.DateLayout) != "2024-01-10" {
		t.Fatalf("unexpected request: %s %v", source.currency.Code, chunk)
	}

	want := "(4.5, 2024-01-06)\n(4.5, 2024-01-07)\n(4.5, 2024-01-08)\n(4.5, 2024-01-09)\n(4.5, 2024-01-10)\n"
	if stdout.String() != want {
		t.Fatalf("unexpected output:\n%s", stdout.String())
	}
}

func TestRunExplicitRange(t *testing.T) {
	source := &recordingSource{}
	restore := stubDeps(source)
	defer restore()

	var stdout bytes.Buffer
	args := []string{"-currency", "usd", "-start", "2023-01-01", "-end", "2023-12-31"}
	if err := run(context.Background(), args, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.currency.Code != "USD" {
		t.Fatalf("expected USD, got %s", source.currency.Code)
	}
	if len(source.chunks) != 5 {
		t.Fatalf("a year should take 5 requests, got %d", len(source.chunks))
	}
}

func TestRunUsageErrors(t *testing.T) {
	restore := stubDeps(&recordingSource{})
	defer restore()

	for name, args := range map[string][]string{
		"unknown currency": {"-currency", "XYZ"},
		"zero days":        {"-days", "0"},
		"start only":       {"-start", "2024-01-01"},
		"reversed range":   {"-start", "2024-02-01", "-end", "2024-01-01"},
		"bad date":         {"-start", "01/01/2024", "-end", "2024-01-02"},
		"bad flag":         {"-nope"},
		"extra args":       {"EUR"},
	} {
		if err := run(context.Background(), args, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestRunConfigError(t *testing.T) {
	restore := stubDeps(&recordingSource{})
	defer restore()
	loadConfigFunc = func() (*config.Config, error) { return nil, errors.New("bad env") }

	if err := run(context.Background(), nil, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected config error")
	}
}

func TestRunSkipsFailedChunks(t *testing.T) {
	source := &recordingSource{fail: true}
	restore := stubDeps(source)
	defer restore()

	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"-days", "3"}, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatalf("a failed chunk must not fail the command: %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no output, got %q", stdout.String())
	}
}

func stubDeps(source *recordingSource) func() {
	origLoadConfig := loadConfigFunc
	origInitLogging := initLoggingFunc
	origInitTracer := initTracerFunc
	origNewProvider := newProviderFunc
	origNow := nowFunc

	loadConfigFunc = func() (*config.Config, error) {
		cfg := &config.Config{LogLevel: "error"}
		cfg.NBP.DaysLimit = 90
		cfg.NBP.Concurrency = 1
		return cfg, nil
	}
	initLoggingFunc = func(string) *slog.Logger { return slog.Default() }
	initTracerFunc = func(ctx context.Context, enabled bool, endpoint string) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newProviderFunc = func(trace.Tracer, config.NBP) service.ObservationSource { return source }
	nowFunc = func() time.Time { return time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC) }

	return func() {
		loadConfigFunc = origLoadConfig
		initLoggingFunc = origInitLogging
		initTracerFunc = origInitTracer
		newProviderFunc = origNewProvider
		nowFunc = origNow
	}
}

type recordingSource struct {
	mu       sync.Mutex
	currency domain.Currency
	chunks   []domain.Chunk
	fail     bool
}

func (s *recordingSource) FetchObservations(ctx context.Context, currency domain.Currency, chunk domain.Chunk) ([]domain.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currency = currency
	s.chunks = append(s.chunks, chunk)
	if s.fail {
		return nil, errors.New("404 Not Found")
	}

	var out []domain.Observation
	for d := chunk.Start; !d.After(chunk.End); d = d.AddDate(0, 0, 1) {
		out = append(out, domain.Observation{Mid: 4.5, Date: d})
	}
	return out, nil
}
