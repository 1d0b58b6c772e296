package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nbp-rates/internal/config"
	"nbp-rates/internal/domain"
	"nbp-rates/internal/logging"
	"nbp-rates/internal/provider"
	"nbp-rates/internal/service"
	"nbp-rates/pkg/tracing"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
)

var (
	loadConfigFunc  = config.Load
	initLoggingFunc = logging.Init
	initTracerFunc  = tracing.InitTracer
	newProviderFunc = func(tracer trace.Tracer, cfg config.NBP) service.ObservationSource {
		return provider.NewNBPProvider(tracer, cfg.BaseURL, cfg.Timeout)
	}
	nowFunc  = time.Now
	exitFunc = os.Exit
)

type options struct {
	currency string
	days     int
	start    string
	end      string
}

// Prints one "(mid, date)" line per observation. Without flags this is the
// last 5 days of EUR.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		exitFunc(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := loadConfigFunc()
	if err != nil {
		return err
	}
	initLoggingFunc(cfg.LogLevel)

	currency, err := domain.LookupCurrency(opts.currency)
	if err != nil {
		return errors.Wrapf(err, "currency %q", opts.currency)
	}

	tp, tracer, err := initTracerFunc(ctx, cfg.Tracing.Enabled, cfg.Tracing.Endpoint)
	if err != nil {
		return errors.Wrap(err, "initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			slog.Error("error shutting down tracer provider", "error", err)
		}
	}()

	fetcher := service.NewRangeFetcher(tracer, newProviderFunc(tracer, cfg.NBP),
		service.WithDaysLimit(cfg.NBP.DaysLimit),
		service.WithConcurrency(cfg.NBP.Concurrency),
	)

	var result domain.RangeResult
	if opts.start != "" || opts.end != "" {
		interval, err := domain.ParseDateInterval(opts.start, opts.end)
		if err != nil {
			return err
		}
		result, err = fetcher.FetchRange(ctx, currency, interval)
		if err != nil {
			return err
		}
	} else {
		result, err = fetcher.LastNDays(ctx, currency, opts.days, nowFunc())
		if err != nil {
			return err
		}
	}

	for _, o := range result.Observations {
		fmt.Fprintf(stdout, "(%v, %s)\n", o.Mid, o.Date.Format(domain.DateLayout))
	}
	if result.Partial() {
		slog.Warn("some chunks could not be fetched",
			"currency", currency.Code,
			"failed_chunks", len(result.Failures),
		)
	}
	return nil
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("rates", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.currency, "currency", domain.EUR.Code, "currency code, e.g. EUR or USD")
	fs.IntVar(&opts.days, "days", 5, "number of days ending today")
	fs.StringVar(&opts.start, "start", "", "first day of an explicit range, YYYY-MM-DD")
	fs.StringVar(&opts.end, "end", "", "last day of an explicit range, YYYY-MM-DD")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if (opts.start == "") != (opts.end == "") {
		return options{}, errors.New("-start and -end must be given together")
	}
	return opts, nil
}
