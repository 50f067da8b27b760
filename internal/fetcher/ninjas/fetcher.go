// Package ninjas implements crawler.Fetcher on top of the API Ninjas web
// scraper endpoint, which returns a page's HTML wrapped in JSON.
package ninjas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/contact-crawler/internal/crawler"
)

// DefaultEndpoint is the public web scraper endpoint.
const DefaultEndpoint = "https://api.api-ninjas.com/v1/webscraper"

// ErrProvider wraps any error message reported by the provider.
var ErrProvider = errors.New("page fetch provider error")

var errNoAPIKey = errors.New("ninjas: api key is required")

// Config controls the provider client.
type Config struct {
	APIKey    string
	Endpoint  string
	UserAgent string
	Timeout   time.Duration
}

// Fetcher implements crawler.Fetcher through the provider.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type scraperResponse struct {
	Data  string `json:"data"`
	Error string `json:"error"`
}

// New builds a Fetcher. The API key is mandatory.
func New(cfg Config) (*Fetcher, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errNoAPIKey
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Contact-Scraper/1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	// Error bodies carry the provider's message.
	c.ParseHTTPErrorResponse = true
	return &Fetcher{cfg: cfg, baseCollector: c}, nil
}

// Fetch asks the provider for target and unwraps the HTML.
func (f *Fetcher) Fetch(ctx context.Context, target string) (crawler.Page, error) {
	var (
		status   int
		body     []byte
		fetchErr error
	)
	start := time.Now()

	collector := f.baseCollector.Clone()
	collector.UserAgent = f.cfg.UserAgent
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("X-Api-Key", f.cfg.APIKey)
		r.Headers.Set("Content-Type", "application/json")
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	endpoint := f.cfg.Endpoint + "?url=" + url.QueryEscape(target)
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(endpoint)
	}()

	select {
	case <-ctx.Done():
		return crawler.Page{}, fmt.Errorf("ninjas fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return crawler.Page{}, fmt.Errorf("ninjas visit failed: %w", err)
		}
		if fetchErr != nil {
			return crawler.Page{}, fmt.Errorf("ninjas response failed: %w", fetchErr)
		}
	}

	var resp scraperResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return crawler.Page{}, fmt.Errorf("ninjas decode response (status %d): %w", status, err)
	}
	if status >= 400 || resp.Error != "" {
		if isSizeError(resp.Error) {
			return crawler.Page{}, fmt.Errorf("ninjas %s: %s: %w", target, resp.Error, crawler.ErrOversizedPage)
		}
		msg := resp.Error
		if msg == "" {
			msg = "API Error"
		}
		return crawler.Page{}, fmt.Errorf("%w: %s (status %d)", ErrProvider, msg, status)
	}

	return crawler.Page{
		URL:        target,
		StatusCode: status,
		HTML:       resp.Data,
		Duration:   time.Since(start),
	}, nil
}

func isSizeError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "2mb") || strings.Contains(lower, "size") || strings.Contains(lower, "large")
}
