// Package collyfetcher implements crawler.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/contact-crawler/internal/crawler"
)

// DefaultMaxBodyBytes is the largest page accepted when Config leaves it unset.
const DefaultMaxBodyBytes = 2 << 20

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	// MaxBodyBytes caps the page size; larger pages yield crawler.ErrOversizedPage.
	MaxBodyBytes int
}

// Fetcher implements crawler.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponseHeaders(colly.ResponseHeadersCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// fetchState collects what the collector callbacks observe during one fetch.
type fetchState struct {
	page      crawler.Page
	err       error
	oversized atomic.Bool
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	transport := newHTTPTransport()
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET using Colly.
func (f *Fetcher) Fetch(ctx context.Context, url string) (crawler.Page, error) {
	state := &fetchState{}
	collector := f.buildCollector(time.Now(), state)

	if err := f.runCollector(ctx, collector, url, state); err != nil {
		return crawler.Page{}, err
	}
	return state.page, nil
}

func (f *Fetcher) buildCollector(start time.Time, state *fetchState) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	collector.SetRequestTimeout(f.cfg.Timeout)
	// One byte over the limit is enough to tell an oversized body apart.
	collector.MaxBodySize = f.cfg.MaxBodyBytes + 1
	collector.WithTransport(f.transport)

	f.configureCollectorHooks(collector, start, state)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, start time.Time, state *fetchState) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
	})

	hooks.OnResponseHeaders(func(r *colly.Response) {
		if r.Headers == nil {
			return
		}
		if n, err := strconv.Atoi(r.Headers.Get("Content-Length")); err == nil && n > f.cfg.MaxBodyBytes {
			state.oversized.Store(true)
			r.Request.Abort()
		}
	})

	hooks.OnResponse(func(r *colly.Response) {
		if len(r.Body) > f.cfg.MaxBodyBytes {
			state.oversized.Store(true)
			return
		}
		state.page = crawler.Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			HTML:       string(r.Body),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		state.err = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, state *fetchState) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if state.oversized.Load() {
			return fmt.Errorf("colly fetch %s: %w", url, crawler.ErrOversizedPage)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if state.err != nil {
			return fmt.Errorf("colly response failed: %w", state.err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
