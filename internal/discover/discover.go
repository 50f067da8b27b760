// Package discover proposes the internal pages of a site most likely to carry
// contact details, starting from its homepage.
package discover

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/crawler"
)

const (
	defaultMinLinks = 3
	defaultMaxLinks = 15
)

// Keywords are the fixed lists that steer discovery. They are never mutated.
type Keywords struct {
	// NavSelector selects anchors inside navigation regions.
	NavSelector string
	// Nav matches navigational links by href or text.
	Nav []string
	// Team matches staff and people pages.
	Team []string
	// ContactAbout matches contact and about pages by path or text.
	ContactAbout []string
	// CommonPaths are conventional guesses used when a page yields too little.
	CommonPaths []string
}

// DefaultKeywords returns the built-in lists.
func DefaultKeywords() *Keywords {
	return &Keywords{
		NavSelector: "nav a, header a, .nav a, .navigation a, .menu a, .navbar a, .main-menu a",
		Nav: []string{
			"about", "contact", "team", "staff", "people", "services", "products",
			"about-us", "contact-us", "our-team", "our-staff", "our-people",
			"service", "product", "pricing", "plans", "support", "help",
			"company", "organization", "who-we-are", "what-we-do", "meet",
			"portfolio", "work", "projects", "case-studies", "testimonials",
		},
		Team:         []string{"team", "staff", "people", "meet", "our-team", "about-team", "members"},
		ContactAbout: []string{"contact", "about", "about-us", "company"},
		CommonPaths: []string{
			"/about", "/contact", "/team", "/services", "/products",
			"/about-us", "/contact-us", "/our-team", "/staff", "/people",
			"/about.html", "/contact.html", "/team.html", "/services.html",
			"/meet", "/meet-team", "/about/team", "/company/team",
		},
	}
}

// Service implements crawler.LinkDiscoverer.
type Service struct {
	fetcher  crawler.Fetcher
	keywords *Keywords
	minLinks int
	maxLinks int
	logger   *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithLimits sets how many links trigger widening and how many are returned.
func WithLimits(minLinks, maxLinks int) Option {
	return func(s *Service) {
		if minLinks > 0 {
			s.minLinks = minLinks
		}
		if maxLinks > 0 {
			s.maxLinks = maxLinks
		}
	}
}

// WithKeywords replaces the built-in lists.
func WithKeywords(kw *Keywords) Option {
	return func(s *Service) {
		if kw != nil {
			s.keywords = kw
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a Service. fetcher may be nil when DiscoverURL is never used.
func New(fetcher crawler.Fetcher, opts ...Option) *Service {
	s := &Service{
		fetcher:  fetcher,
		keywords: DefaultKeywords(),
		minLinks: defaultMinLinks,
		maxLinks: defaultMaxLinks,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DiscoverURL fetches pageURL and discovers links on it.
func (s *Service) DiscoverURL(ctx context.Context, pageURL string) ([]string, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("discover %s: no fetcher configured", pageURL)
	}
	page, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", pageURL, err)
	}
	return s.Discover(page.HTML, pageURL), nil
}

// Discover reads candidate links out of homeHTML. Navigation regions are
// scanned first; the whole page is scanned only when they yield too few links,
// and conventional paths are appended when that still is not enough.
func (s *Service) Discover(homeHTML, homeURL string) []string {
	base, err := url.Parse(homeURL)
	if err != nil || base.Host == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(homeHTML))
	if err != nil {
		return s.Fallback(homeURL)
	}

	links := newLinkSet(s.maxLinks)
	doc.Find(s.keywords.NavSelector).Each(func(_ int, a *goquery.Selection) {
		href, text, u, ok := anchor(a, base)
		if !ok {
			return
		}
		if containsAny(strings.ToLower(href), s.keywords.Nav) || containsAny(text, s.keywords.Nav) {
			links.add(u)
		}
	})

	if links.len() < s.minLinks {
		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, text, u, ok := anchor(a, base)
			if !ok {
				return
			}
			lowerHref := strings.ToLower(href)
			path := strings.ToLower(u.Path)
			important := containsAny(path, s.keywords.Nav) || containsAny(text, s.keywords.Nav) ||
				containsAny(lowerHref, s.keywords.Nav)
			team := containsAny(path, s.keywords.Team) || containsAny(text, s.keywords.Team) ||
				containsAny(lowerHref, s.keywords.Team)
			contactAbout := containsAny(path, s.keywords.ContactAbout) || containsAny(text, s.keywords.ContactAbout)
			if important || team || contactAbout {
				links.add(u)
			}
		})
	}

	if links.len() < s.minLinks {
		for _, guess := range s.Fallback(homeURL) {
			if u, err := url.Parse(guess); err == nil {
				links.add(u)
			}
		}
	}

	s.logger.Debug("links discovered", zap.String("url", homeURL), zap.Int("count", links.len()))
	return links.values()
}

// Fallback returns the conventional paths resolved against homeURL's origin.
func (s *Service) Fallback(homeURL string) []string {
	base, err := url.Parse(homeURL)
	if err != nil || base.Host == "" {
		return nil
	}
	out := make([]string, 0, len(s.keywords.CommonPaths))
	for _, p := range s.keywords.CommonPaths {
		out = append(out, (&url.URL{Scheme: base.Scheme, Host: base.Host, Path: p}).String())
	}
	return out
}

// anchor resolves a's href against base and keeps it only when it points to
// the same site over http(s).
func anchor(a *goquery.Selection, base *url.URL) (string, string, *url.URL, bool) {
	href := strings.TrimSpace(a.AttrOr("href", ""))
	if href == "" || strings.HasPrefix(href, "#") {
		return "", "", nil, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", "", nil, false
	}
	u := base.ResolveReference(ref)
	if (u.Scheme != "http" && u.Scheme != "https") || !sameHost(u, base) {
		return "", "", nil, false
	}
	u.Fragment = ""
	u.RawFragment = ""
	text := strings.ToLower(strings.TrimSpace(a.Text()))
	return href, text, u, true
}

// sameHost compares hostnames ignoring case and a leading "www.".
func sameHost(a, b *url.URL) bool {
	return hostKey(a) == hostKey(b)
}

func hostKey(u *url.URL) string {
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func containsAny(s string, terms []string) bool {
	if s == "" {
		return false
	}
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

// linkSet is an insertion-ordered, capped set of absolute URLs.
type linkSet struct {
	max   int
	seen  map[string]struct{}
	order []string
}

func newLinkSet(maxLinks int) *linkSet {
	return &linkSet{max: maxLinks, seen: make(map[string]struct{})}
}

func (l *linkSet) add(u *url.URL) {
	if len(l.order) >= l.max {
		return
	}
	key := u.String()
	if _, ok := l.seen[key]; ok {
		return
	}
	l.seen[key] = struct{}{}
	l.order = append(l.order, key)
}

func (l *linkSet) len() int {
	return len(l.order)
}

func (l *linkSet) values() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}
