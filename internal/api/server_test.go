package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/config"
	"github.com/JakeFAU/contact-crawler/internal/contact"
	"github.com/JakeFAU/contact-crawler/internal/crawler"
	"github.com/JakeFAU/contact-crawler/internal/dispatcher"
	"github.com/JakeFAU/contact-crawler/internal/storage/memory"
)

const testBatchID = "0190c5a2-6f1e-7a3b-9c4d-1e2f3a4b5c6d"

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(config.Config{}), http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Scrape(t *testing.T) {
	t.Parallel()

	scraper := &fakeScraper{}
	server := newTestServerWith(config.Config{}, scraper, &fakeDiscoverer{})

	rec := serve(t, server, http.MethodPost, "/v1/scrape", `{"url":"https://www.acme.com/contact","mode":"quick"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "acme.com", body["domain"])
	require.Equal(t, []any{"info@acme.com"}, body["generalEmails"])
	require.Equal(t, []string{"acme.com"}, scraper.domains())
	require.Equal(t, []contact.Mode{contact.ModeQuick}, scraper.modes)
}

func TestServer_ScrapeBadRequests(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{"url":`, "invalid JSON"},
		{"missing url", `{"mode":"quick"}`, "missing URL parameter"},
		{"unknown mode", `{"url":"acme.com","mode":"deep"}`, "unknown mode"},
		{"unusable url", `{"url":"https:///"}`, "invalid URL"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := serve(t, newTestServer(config.Config{}), http.MethodPost, "/v1/scrape", tc.body, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestServer_DiscoverLinks(t *testing.T) {
	t.Parallel()

	discoverer := &fakeDiscoverer{links: []string{"http://acme.com/contact", "http://acme.com/team"}}
	server := newTestServerWith(config.Config{}, &fakeScraper{}, discoverer)

	rec := serve(t, server, http.MethodPost, "/v1/discover-links", `{"url":"acme.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"links":["http://acme.com/contact","http://acme.com/team"]}`, rec.Body.String())
	require.Equal(t, "http://acme.com", discoverer.lastURL)
}

func TestServer_DiscoverLinksFailure(t *testing.T) {
	t.Parallel()

	discoverer := &fakeDiscoverer{err: crawler.ErrOversizedPage}
	server := newTestServerWith(config.Config{}, &fakeScraper{}, discoverer)

	rec := serve(t, server, http.MethodPost, "/v1/discover-links", `{"url":"https://huge.com"}`, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "size limit")

	rec = serve(t, server, http.MethodPost, "/v1/discover-links", `{}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_BatchLifecycle(t *testing.T) {
	t.Parallel()

	scraper := &fakeScraper{fail: map[string]bool{"b.com": true}}
	server := newTestServerWith(config.Config{}, scraper, &fakeDiscoverer{})

	rec := serve(t, server, http.MethodPost, "/v1/batches",
		`{"domains":["a.com","https://www.b.com/","  ","c.com"],"mode":"quick"}`, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.JSONEq(t, `{"batch_id":"`+testBatchID+`"}`, rec.Body.String())

	server.Wait()

	rec = serve(t, server, http.MethodGet, "/v1/batches/"+testBatchID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Batch   crawler.Batch          `json:"batch"`
		Results []contact.DomainRecord `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, crawler.BatchStatusSucceeded, body.Batch.Status)
	require.Equal(t, crawler.Progress{Current: 4, Total: 4}, body.Batch.Progress)
	require.Equal(t, []string{"a.com", "b.com", "", "c.com"}, body.Batch.Domains)
	require.Equal(t, "quick", body.Batch.Mode)
	require.NotNil(t, body.Batch.Finished)

	require.Len(t, body.Results, 4)
	require.Equal(t, "a.com", body.Results[0].Domain)
	require.Empty(t, body.Results[0].Error)
	require.Equal(t, "b.com", body.Results[1].Domain)
	require.Equal(t, "scrape failed", body.Results[1].Error)
	require.Equal(t, contact.ErrInvalidDomain.Error(), body.Results[2].Error)
	require.Equal(t, map[string]string{"submitted": "  "}, body.Results[2].Input)
	require.Equal(t, "c.com", body.Results[3].Domain)
}

func TestServer_BatchInvalidDomainsAreReported(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		domains string
		errors  []bool
	}{
		{"blank among valid", `["a.com","   "]`, []bool{false, true}},
		{"scheme only", `["https://","b.com"]`, []bool{true, false}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			server := newTestServerWith(config.Config{}, &fakeScraper{}, &fakeDiscoverer{})

			rec := serve(t, server, http.MethodPost, "/v1/batches", `{"domains":`+tc.domains+`}`, nil)
			require.Equal(t, http.StatusAccepted, rec.Code)
			server.Wait()

			rec = serve(t, server, http.MethodGet, "/v1/batches/"+testBatchID, "", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Contains(t, rec.Body.String(), `"error":null`)

			var body struct {
				Results []contact.DomainRecord `json:"results"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Len(t, body.Results, len(tc.errors))
			for i, failed := range tc.errors {
				require.Equal(t, failed, body.Results[i].Error != "", i)
			}
		})
	}
}

func TestServer_BatchBadRequests(t *testing.T) {
	t.Parallel()

	server := newTestServer(config.Config{})
	for _, body := range []string{`{"domains":[]}`, `{"domains":["  "]}`, `{"domains":["a.com"],"mode":"x"}`, `nope`} {
		rec := serve(t, server, http.MethodPost, "/v1/batches", body, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestServer_GetBatchErrors(t *testing.T) {
	t.Parallel()

	server := newTestServer(config.Config{})

	rec := serve(t, server, http.MethodGet, "/v1/batches/not-a-uuid", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, server, http.MethodGet, "/v1/batches/"+testBatchID, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_APIKeyMiddleware(t *testing.T) {
	t.Parallel()

	server := newTestServer(config.Config{Server: config.ServerConfig{APIKey: "secret"}})
	body := `{"url":"acme.com"}`

	rec := serve(t, server, http.MethodPost, "/v1/scrape", body, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, server, http.MethodPost, "/v1/scrape", body, map[string]string{"X-API-Key": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, server, http.MethodPost, "/v1/scrape?api_key=secret", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Probes stay open.
	rec = serve(t, server, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(config.Config{}), http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "contact_batch_windows_total")
}

func TestServer_RecoversPanics(t *testing.T) {
	t.Parallel()

	server := newTestServerWith(config.Config{}, panicScraper{}, &fakeDiscoverer{})
	rec := serve(t, server, http.MethodPost, "/v1/scrape", `{"url":"acme.com"}`, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestIDMiddlewareSetsHeader(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(config.Config{}), http.MethodGet, "/healthz", "", nil)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestResponseWriterHijackBehavior(t *testing.T) {
	t.Parallel()

	rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}
	_, _, err := rw.Hijack()
	require.EqualError(t, err, "hijacker not supported")

	h := &hijackableRecorder{ResponseRecorder: httptest.NewRecorder()}
	rw = &responseWriter{ResponseWriter: h}
	conn, buf, err := rw.Hijack()
	require.NoError(t, err)
	require.NotNil(t, buf)
	require.NoError(t, conn.Close())
	require.NoError(t, h.CloseClient())
}

// --- helpers/fakes ---

func serve(t *testing.T, s *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

type fakeScraper struct {
	mu    sync.Mutex
	calls []string
	modes []contact.Mode
	fail  map[string]bool
}

func (f *fakeScraper) ScrapeDomain(
	_ context.Context,
	task contact.CrawlTask,
	mode contact.Mode,
	onProgress crawler.ProgressFunc,
) contact.DomainRecord {
	f.mu.Lock()
	f.calls = append(f.calls, task.Domain)
	f.modes = append(f.modes, mode)
	f.mu.Unlock()
	onProgress("scraping")
	if f.fail[task.Domain] {
		return contact.FailedRecord(task, errors.New("scrape failed"))
	}
	rec := contact.NewDomainRecord(task)
	rec.GeneralEmails.Add(contact.Email("info@" + task.Domain))
	rec.PagesScraped = 1
	return rec
}

func (f *fakeScraper) domains() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type panicScraper struct{}

func (panicScraper) ScrapeDomain(context.Context, contact.CrawlTask, contact.Mode, crawler.ProgressFunc) contact.DomainRecord {
	panic("scraper exploded")
}

type fakeDiscoverer struct {
	links   []string
	err     error
	lastURL string
}

func (f *fakeDiscoverer) DiscoverURL(_ context.Context, url string) ([]string, error) {
	f.lastURL = url
	return f.links, f.err
}

type fakeIDGen struct{}

func (fakeIDGen) NewID() (string, error) {
	return testBatchID, nil
}

type fakeClock struct{}

func (fakeClock) Now() time.Time { return time.Unix(100, 0).UTC() }

func (fakeClock) Sleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

type hijackableRecorder struct {
	*httptest.ResponseRecorder
	client net.Conn
}

func (h *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	server, client := net.Pipe()
	h.client = client
	return server, bufio.NewReadWriter(bufio.NewReader(server), bufio.NewWriter(server)), nil
}

func (h *hijackableRecorder) CloseClient() error {
	if h.client == nil {
		return nil
	}
	return h.client.Close()
}

func newTestServer(cfg config.Config) *Server {
	return newTestServerWith(cfg, &fakeScraper{}, &fakeDiscoverer{})
}

func newTestServerWith(cfg config.Config, scraper dispatcher.DomainScraper, discoverer URLDiscoverer) *Server {
	sched := dispatcher.New(scraper, fakeClock{}, dispatcher.Config{WindowSize: 2}, zap.NewNop())
	return NewServer(
		scraper,
		sched,
		discoverer,
		memory.NewBatchStore(),
		fakeIDGen{},
		fakeClock{},
		cfg,
		zap.NewNop(),
	)
}
