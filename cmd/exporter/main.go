package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/pipeline"
	"github.com/aluiziolira/go-scrape-catalog/scraper"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if err := applyEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "API base URL")
	flag.StringVar(&cfg.Authorization, "auth", cfg.Authorization, "Authorization header value")
	flag.StringVar(&cfg.Token, "token", cfg.Token, "Session token (fetched from the API when empty)")
	flag.StringVar(&cfg.SignPrefix, "sign-prefix", cfg.SignPrefix, "Request signature prefix")
	flag.IntVar(&cfg.CategoryID, "category", cfg.CategoryID, "Catalog category ID")
	flag.StringVar(&cfg.Sort, "sort", cfg.Sort, "Catalog sort order")
	flag.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "Products per price request")
	flag.IntVar(&cfg.Parallelism, "parallel", cfg.Parallelism, "Maximum concurrent connections")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	flag.IntVar(&cfg.PriceAttempts, "price-attempts", cfg.PriceAttempts, "Attempts per price chunk")
	flag.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Wait between retries")
	flag.BoolVar(&cfg.PromoteParents, "promote-parents", cfg.PromoteParents, "Keep parents that have no self-referencing price entry")
	flag.StringVar(&cfg.OutputFile, "output", cfg.OutputFile, "Output file path")
	flag.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Output format: xlsx, csv, json, or dual")
	flag.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User-Agent header value")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Enable verbose logging")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")

	flag.Parse()
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting export",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("category", cfg.CategoryID),
		slog.Int("parallel", cfg.Parallelism),
		slog.Int("chunk_size", cfg.ChunkSize),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, aborting in-flight requests")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	result, err := s.Run(ctx)
	if err != nil {
		slog.Error("fetching catalog failed", slog.Any("error", err))
		os.Exit(1)
	}

	writer, outputs, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}

	records := models.Flatten(result.Products)
	p := pipeline.NewPipeline(ctx, writer, cfg)
	p.Start()
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	if err := p.Process(records...); err != nil {
		slog.Error("exporting records failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := p.Close(); err != nil {
		slog.Error("pipeline shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Close(); err != nil {
		slog.Error("close writer", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Validate(); err != nil {
		if len(records) > 0 {
			slog.Error("output validation failed", slog.Any("error", err))
			os.Exit(1)
		}
		slog.Warn("catalog is empty, output has no rows", slog.Any("error", err))
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, outputs, p.GetMetrics())
}

// applyEnv overrides defaults with CATALOG_* variables. Flags are applied afterwards.
func applyEnv(cfg *config.Config) error {
	stringVars := map[string]*string{
		"CATALOG_BASE_URL":     &cfg.BaseURL,
		"CATALOG_AUTH":         &cfg.Authorization,
		"CATALOG_TOKEN":        &cfg.Token,
		"CATALOG_SIGN_PREFIX":  &cfg.SignPrefix,
		"CATALOG_SORT":         &cfg.Sort,
		"CATALOG_OUTPUT":       &cfg.OutputFile,
		"CATALOG_FORMAT":       &cfg.OutputFormat,
		"CATALOG_USER_AGENT":   &cfg.UserAgent,
		"CATALOG_METRICS_ADDR": &cfg.MetricsAddr,
	}
	for key, target := range stringVars {
		if value, ok := config.EnvString(key); ok {
			*target = value
		}
	}

	intVars := map[string]*int{
		"CATALOG_CATEGORY":       &cfg.CategoryID,
		"CATALOG_CHUNK_SIZE":     &cfg.ChunkSize,
		"CATALOG_PARALLEL":       &cfg.Parallelism,
		"CATALOG_PRICE_ATTEMPTS": &cfg.PriceAttempts,
	}
	for key, target := range intVars {
		value, ok, err := config.EnvInt(key)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if ok {
			*target = value
		}
	}

	durationVars := map[string]*time.Duration{
		"CATALOG_TIMEOUT":       &cfg.Timeout,
		"CATALOG_RETRY_BACKOFF": &cfg.RetryBackoff,
	}
	for key, target := range durationVars {
		value, ok, err := config.EnvDuration(key)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if ok {
			*target = value
		}
	}

	boolVars := map[string]*bool{
		"CATALOG_PROMOTE_PARENTS": &cfg.PromoteParents,
		"CATALOG_VERBOSE":         &cfg.Verbose,
	}
	for key, target := range boolVars {
		value, ok, err := config.EnvBool(key)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if ok {
			*target = value
		}
	}
	return nil
}

// createWriter returns the writer for format and the files it produces.
func createWriter(format, filename string) (pipeline.OutputWriter, []string, error) {
	var (
		writer  pipeline.OutputWriter
		outputs = []string{filename}
		err     error
	)
	switch format {
	case "xlsx":
		writer, err = pipeline.NewXLSXWriter(filename)
	case "json":
		writer, err = pipeline.NewJSONWriter(filename)
	case "csv":
		writer, err = pipeline.NewCSVWriter(filename)
	case "dual":
		base := strings.TrimSuffix(filename, filepath.Ext(filename))
		outputs = []string{base + ".csv", base + ".jsonl"}
		writer, err = pipeline.NewDualWriter(outputs[0], outputs[1])
	default:
		return nil, nil, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return nil, nil, err
	}
	return writer, outputs, nil
}

func printSummary(result *models.ScrapeResult, outputs []string, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Export complete")

	rows := int64(0)
	if processed, ok := metrics["processed_records"].(int64); ok {
		rows = processed
	}

	fmt.Printf("  Catalog total: %d\n", result.TotalItems)
	fmt.Printf("  Fetched:       %d\n", result.CatalogSize)
	fmt.Printf("  Top-level:     %d\n", len(result.Products))
	fmt.Printf("  Rows written:  %d\n", rows)
	fmt.Printf("  Price chunks:  %d (%d dropped)\n", result.ChunkCount, result.FailedChunks)
	fmt.Printf("  Requests:      %d\n", result.RequestCount)
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	fmt.Printf("  Retries:       %d\n", result.RetryCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Printf("  Validation:    %v\n", valErrors)
	}
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime))
	fmt.Printf("  Output:        %s\n", strings.Join(outputs, ", "))
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
