package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds exporter configuration.
type Config struct {
	BaseURL            string
	Authorization      string
	Token              string
	SignPrefix         string
	CategoryID         int
	Sort               string
	ChunkSize          int
	Parallelism        int
	Timeout            time.Duration
	PriceAttempts      int
	RetryBackoff       time.Duration
	PromoteParents     bool
	OutputFile         string
	OutputFormat       string // xlsx, csv, json, or dual
	UserAgent          string
	Verbose            bool
	MetricsAddr        string
	PipelineBufferSize int
	BatchSize          int
	DedupeMaxSize      int
}

// DefaultConfig returns the defaults for the 4lapy catalog API.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:            "https://4lapy.ru",
		SignPrefix:         "ABCDEF00G",
		CategoryID:         2,
		Sort:               "popular",
		ChunkSize:          10,
		Parallelism:        10,
		Timeout:            60 * time.Second,
		PriceAttempts:      3,
		RetryBackoff:       2 * time.Second,
		PromoteParents:     false,
		OutputFile:         "output/products.xlsx",
		OutputFormat:       "xlsx",
		UserAgent:          "okhttp/4.9.0",
		Verbose:            false,
		PipelineBufferSize: 512,
		BatchSize:          64,
		DedupeMaxSize:      100000,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.SignPrefix == "" {
		return fmt.Errorf("sign prefix cannot be empty")
	}
	if c.CategoryID <= 0 {
		return fmt.Errorf("category id must be positive")
	}
	if c.Sort == "" {
		return fmt.Errorf("sort cannot be empty")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.PriceAttempts <= 0 {
		return fmt.Errorf("price attempts must be positive")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "xlsx", "csv", "json", "dual":
	default:
		return fmt.Errorf("output format must be xlsx, csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}

	return nil
}
