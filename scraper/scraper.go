package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-minesweeper/config"
	"github.com/aluiziolira/go-scrape-minesweeper/models"
	"github.com/gocolly/colly/v2"
)

const (
	ctxStart      = "start"
	ctxStatus     = "status"
	ctxResult     = "result"
	ctxDifficulty = "difficulty"
)

// Scraper retrieves game result pages through a colly collector.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *Metrics

	requestCount int64
	retryCount   int64
	errorCount   int64
}

// NewScraper builds a scraper restricted to the configured site host.
func NewScraper(cfg *config.Config, metrics *Metrics) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
	)
	// The same game page is requested again on retry.
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	s := &Scraper{
		cfg:       cfg,
		collector: collector,
		Metrics:   metrics,
	}
	s.configureHandlers()
	return s, nil
}

// Fetch retrieves the result block and difficulty marker of one game page.
// Transient failures are retried with capped exponential backoff.
func (s *Scraper) Fetch(ctx context.Context, pageURL string) (models.RawResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			atomic.AddInt64(&s.retryCount, 1)
			s.Metrics.IncRetries()
			if err := sleepCtx(ctx, s.backoff(attempt)); err != nil {
				return models.RawResult{}, err
			}
		}
		if err := ctx.Err(); err != nil {
			return models.RawResult{}, err
		}

		raw, err := s.fetchOnce(ctx, pageURL)
		if err == nil {
			s.Metrics.IncFetched()
			return raw, nil
		}
		lastErr = err

		category := errorTypeLabel(err)
		atomic.AddInt64(&s.errorCount, 1)
		s.Metrics.IncError(category)
		slog.Error("request error",
			slog.String("url", pageURL),
			slog.String("category", category),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err),
		)

		if !Retryable(err) || attempt >= s.cfg.MaxRetries {
			return models.RawResult{}, lastErr
		}
	}
}

func (s *Scraper) fetchOnce(ctx context.Context, pageURL string) (models.RawResult, error) {
	reqCtx := colly.NewContext()
	reqCtx.Put("cancel", ctx)

	err := s.collector.Request(http.MethodGet, pageURL, nil, reqCtx, nil)
	status, _ := reqCtx.GetAny(ctxStatus).(int)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return models.RawResult{}, ctxErr
	}
	if err != nil || status >= http.StatusBadRequest {
		return models.RawResult{}, classifyError(err, status)
	}

	text, found := reqCtx.GetAny(ctxResult).(string)
	if !found {
		return models.RawResult{}, ErrMissingBlock{Selector: s.cfg.ResultSelector}
	}
	marker, _ := reqCtx.GetAny(ctxDifficulty).(string)
	return models.RawResult{Text: text, DifficultyMarker: marker}, nil
}

func (s *Scraper) configureHandlers() {
	s.collector.OnRequest(func(r *colly.Request) {
		if ctx, ok := r.Ctx.GetAny("cancel").(context.Context); ok && ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Ctx.Put(ctxStart, time.Now())
		current := atomic.AddInt64(&s.requestCount, 1)
		s.Metrics.IncRequest("started")
		if current%50 == 0 {
			slog.Debug("scraper request progress",
				slog.Int64("requests", current),
				slog.Int64("retries", atomic.LoadInt64(&s.retryCount)),
				slog.String("url", r.URL.String()),
			)
		}
	})

	s.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxStatus, r.StatusCode)
		if start, ok := r.Request.Ctx.GetAny(ctxStart).(time.Time); ok {
			s.Metrics.ObserveDuration(time.Since(start))
		}
	})

	s.collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Request == nil {
			return
		}
		r.Ctx.Put(ctxStatus, r.StatusCode)
		s.Metrics.IncRequest("failed")
	})

	s.collector.OnHTML(s.cfg.ResultSelector, func(e *colly.HTMLElement) {
		if _, seen := e.Request.Ctx.GetAny(ctxResult).(string); seen {
			return
		}
		e.Request.Ctx.Put(ctxResult, RenderLines(e.DOM))
	})

	s.collector.OnHTML(s.cfg.DifficultySelector, func(e *colly.HTMLElement) {
		if _, seen := e.Request.Ctx.GetAny(ctxDifficulty).(string); seen {
			return
		}
		marker, err := goquery.OuterHtml(e.DOM)
		if err != nil {
			slog.Debug("render difficulty marker", slog.Any("error", err))
			return
		}
		e.Request.Ctx.Put(ctxDifficulty, marker)
	})
}

// Stats reports request, retry and error counters since construction.
func (s *Scraper) Stats() (requests, retries, errs int) {
	return int(atomic.LoadInt64(&s.requestCount)),
		int(atomic.LoadInt64(&s.retryCount)),
		int(atomic.LoadInt64(&s.errorCount))
}

func (s *Scraper) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := s.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := s.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch {
		case statusCode == http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case statusCode == http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case statusCode == http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		case statusCode >= http.StatusInternalServerError:
			return ErrServer{Status: statusCode, Err: wrapped}
		}
	}

	if err == nil {
		return fmt.Errorf("http status %d", statusCode)
	}
	return err
}
