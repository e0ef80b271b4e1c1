package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
	"github.com/aluiziolira/go-scrape-catalog/signer"
	"github.com/gocolly/colly/v2"
)

type endpoint struct {
	name   string
	path   string
	method string
}

var (
	tokenEndpoint   = endpoint{name: "token", path: "api/start/", method: http.MethodGet}
	catalogEndpoint = endpoint{name: "catalog", path: "api/v2/catalog/product/list/", method: http.MethodGet}
	priceEndpoint   = endpoint{name: "prices", path: "api/v2/catalog/product/info-list/", method: http.MethodPost}
)

// colly.Context keys
const (
	ctxEndpoint = "endpoint"
	ctxStart    = "start"
	ctxBody     = "body"
	ctxError    = "error"
)

// Scraper talks to the catalog API through a colly collector. The collector
// runs synchronously; concurrent callers share its transport and its limit rule,
// which caps open connections.
type Scraper struct {
	cfg       *config.Config
	baseURL   string
	collector *colly.Collector
	signer    *signer.Signer
	retry     *retryManager
	Metrics   *Metrics

	requestCount int64
	errorCount   int64

	mu           sync.Mutex
	errorsByType map[string]int
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.MaxBodySize(0),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     cfg.Parallelism,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
	}); err != nil {
		return nil, fmt.Errorf("configure connection limit: %w", err)
	}

	s := &Scraper{
		cfg:          cfg,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		collector:    collector,
		signer:       signer.New(cfg.SignPrefix),
		errorsByType: make(map[string]int),
		Metrics:      NewMetrics(),
	}
	s.retry = newRetryManager(cfg.RetryBackoff, s.Metrics)
	s.configureHandlers()
	return s, nil
}

// Run fetches the session token (unless configured), the catalog and its
// prices, and returns the reconciled product hierarchy.
func (s *Scraper) Run(ctx context.Context) (*models.ScrapeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	token := s.cfg.Token
	if token == "" {
		fetched, err := s.FetchToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch token: %w", err)
		}
		token = fetched
	}

	catalog, err := s.FetchCatalog(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	lists, err := s.FetchPrices(ctx, token, catalog.IDs)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}

	failed := 0
	for _, list := range lists {
		if list == nil {
			failed++
		}
	}

	hierarchy := Reconcile(catalog.Products, lists, ReconcileOptions{PromoteParents: s.cfg.PromoteParents})
	s.Metrics.SetProducts(hierarchy.Len())
	slog.Info("reconciled catalog",
		slog.Int("catalog_products", catalog.Products.Len()),
		slog.Int("top_level_products", hierarchy.Len()),
		slog.Int("failed_chunks", failed),
	)

	return &models.ScrapeResult{
		Products:     hierarchy.Values(),
		StartTime:    start,
		EndTime:      time.Now(),
		TotalItems:   catalog.TotalItems,
		CatalogSize:  catalog.Products.Len(),
		ChunkCount:   len(lists),
		FailedChunks: failed,
		ErrorCount:   int(atomic.LoadInt64(&s.errorCount)),
		ErrorsByType: s.snapshotErrors(),
		RetryCount:   s.retry.TotalRetries(),
		RequestCount: int(atomic.LoadInt64(&s.requestCount)),
	}, nil
}

func (s *Scraper) configureHandlers() {
	s.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put(ctxStart, time.Now())
		r.Headers.Set("Accept", "application/json")
		r.Headers.Set("User-Agent", s.cfg.UserAgent)
		if s.cfg.Authorization != "" {
			r.Headers.Set("Authorization", s.cfg.Authorization)
		}
		current := atomic.AddInt64(&s.requestCount, 1)
		s.Metrics.IncRequest(r.Ctx.Get(ctxEndpoint))
		if current%50 == 0 {
			slog.Debug("request progress",
				slog.Int64("requests", current),
				slog.String("endpoint", r.Ctx.Get(ctxEndpoint)),
			)
		}
	})

	s.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxBody, r.Body)
		if start, ok := r.Ctx.GetAny(ctxStart).(time.Time); ok {
			s.Metrics.ObserveDuration(time.Since(start))
		}
	})

	s.collector.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
		}
		classified := classifyError(err, statusCode)
		category := errorTypeLabel(classified)
		s.recordError(category)

		if r != nil && r.Ctx != nil {
			r.Ctx.Put(ctxError, classified)
		}
		path := ""
		if r != nil && r.Request != nil && r.Request.URL != nil {
			path = r.Request.URL.Path
		}
		slog.Error("request error",
			slog.String("path", path),
			slog.String("category", category),
			slog.Any("error", err),
		)
	})
}

// request sends params to ep, retrying error-flagged responses up to attempts
// times (forever when attempts <= 0). Transport faults are returned at once.
func (s *Scraper) request(ctx context.Context, ep endpoint, params signer.Params, attempts int) (*parser.Envelope, error) {
	var env *parser.Envelope
	err := s.retry.Do(ctx, ep.name, attempts, func() (bool, error) {
		received, err := s.send(ep, params)
		if err != nil {
			return false, err
		}
		if received.Failed() {
			s.recordError("api_error")
			slog.Debug("api returned error flag",
				slog.String("endpoint", ep.name),
				slog.String("error", string(received.Error)),
			)
			return false, nil
		}
		env = received
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}

// send issues one request and decodes the response envelope.
func (s *Scraper) send(ep endpoint, params signer.Params) (*parser.Envelope, error) {
	target := s.baseURL + "/" + ep.path
	cctx := colly.NewContext()
	cctx.Put(ctxEndpoint, ep.name)

	var err error
	switch ep.method {
	case http.MethodGet:
		if len(params) > 0 {
			target += "?" + params.Encode()
		}
		err = s.collector.Request(http.MethodGet, target, nil, cctx, nil)
	case http.MethodPost:
		hdr := http.Header{}
		hdr.Set("Content-Type", "application/x-www-form-urlencoded")
		err = s.collector.Request(http.MethodPost, target, strings.NewReader(params.Encode()), cctx, hdr)
	default:
		return nil, fmt.Errorf("unsupported method %q", ep.method)
	}
	if err != nil {
		if classified, ok := cctx.GetAny(ctxError).(error); ok && classified != nil {
			err = classified
		}
		return nil, fmt.Errorf("%s %s: %w", ep.method, ep.path, err)
	}

	body, _ := cctx.GetAny(ctxBody).([]byte)
	env, err := parser.DecodeEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", ep.method, ep.path, err)
	}
	return env, nil
}

func (s *Scraper) recordError(category string) {
	atomic.AddInt64(&s.errorCount, 1)
	s.mu.Lock()
	s.errorsByType[category]++
	s.mu.Unlock()
	s.Metrics.IncError(category)
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}
