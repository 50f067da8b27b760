package crawler

import (
	"context"
	"time"

	"github.com/JakeFAU/contact-crawler/internal/contact"
)

// Fetcher retrieves the HTML of one URL. An oversized page is reported as
// ErrOversizedPage.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// PageExtractor turns one page of HTML into contact information.
type PageExtractor interface {
	ExtractPage(html, pageURL string) (contact.PageResult, error)
}

// LinkDiscoverer proposes subpages of a site that may carry contact details.
type LinkDiscoverer interface {
	// Discover reads links out of already fetched homepage HTML.
	Discover(homeHTML, homeURL string) []string
	// DiscoverURL fetches url and reads links out of it.
	DiscoverURL(ctx context.Context, url string) ([]string, error)
	// Fallback returns conventional contact-page guesses for homeURL.
	Fallback(homeURL string) []string
}

// BatchStore persists batch metadata and results for the HTTP API.
type BatchStore interface {
	CreateBatch(ctx context.Context, batch Batch) error
	UpdateBatch(ctx context.Context, batchID string, status BatchStatus, progress Progress, errText string) error
	AppendResults(ctx context.Context, batchID string, records []contact.DomainRecord) error
	GetBatch(ctx context.Context, batchID string) (Batch, error)
	ListResults(ctx context.Context, batchID string) ([]contact.DomainRecord, error)
}

// Clock returns the current time and sleeps (useful for testing).
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// IDGenerator produces batch IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
