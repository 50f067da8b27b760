package discover

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/contact-crawler/internal/crawler"
)

type stubFetcher struct {
	pages map[string]string
	err   error
	calls []string
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (crawler.Page, error) {
	s.calls = append(s.calls, url)
	if s.err != nil {
		return crawler.Page{}, s.err
	}
	html, ok := s.pages[url]
	if !ok {
		return crawler.Page{}, fmt.Errorf("no page for %s", url)
	}
	return crawler.Page{URL: url, HTML: html, StatusCode: 200}, nil
}

func TestDiscover_NavigationLinksFirst(t *testing.T) {
	t.Parallel()

	home := `<html><body>
		<nav>
			<a href="/about-us">About</a>
			<a href="/contact#form">Contact</a>
			<a href="https://www.acme.com/our-team">Team</a>
			<a href="/blog">Blog</a>
			<a href="https://other.com/contact">Partner</a>
		</nav>
		<main><a href="/staff-directory">Directory</a></main>
	</body></html>`

	links := New(nil).Discover(home, "http://acme.com")

	require.Equal(t, []string{
		"http://acme.com/about-us",
		"http://acme.com/contact",
		"https://www.acme.com/our-team",
	}, links)
}

func TestDiscover_WidensWhenNavIsSparse(t *testing.T) {
	t.Parallel()

	home := `<html><body>
		<nav><a href="/pricing">Pricing</a></nav>
		<div>
			<a href="/members">Members</a>
			<a href="/x?ref=company">Our Company</a>
			<a href="/blog">Blog</a>
			<a href="mailto:info@acme.com">Mail</a>
		</div>
	</body></html>`

	links := New(nil).Discover(home, "http://acme.com/")

	require.Equal(t, []string{
		"http://acme.com/pricing",
		"http://acme.com/members",
		"http://acme.com/x?ref=company",
	}, links)
}

func TestDiscover_FallsBackToCommonPaths(t *testing.T) {
	t.Parallel()

	home := `<html><body><a href="/blog">Blog</a><a href="/contact">Contact</a></body></html>`

	links := New(nil).Discover(home, "http://acme.com")

	require.Len(t, links, 15)
	require.Equal(t, "http://acme.com/contact", links[0])
	require.Equal(t, "http://acme.com/about", links[1])
	// The explicit contact link is not repeated by the guesses.
	require.Equal(t, 1, count(links, "http://acme.com/contact"))
}

func TestDiscover_CapsAndDedups(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("<nav>")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, `<a href="/services/%d">Service %d</a><a href="/services/%d#top">again</a>`, i, i, i)
	}
	b.WriteString("</nav>")

	links := New(nil).Discover(b.String(), "https://acme.com")

	require.Len(t, links, 15)
	require.Equal(t, "https://acme.com/services/0", links[0])
	require.Equal(t, "https://acme.com/services/14", links[14])
}

func TestDiscover_CustomLimits(t *testing.T) {
	t.Parallel()

	home := `<nav><a href="/about">About</a></nav>`
	links := New(nil, WithLimits(1, 2)).Discover(home, "http://acme.com")

	require.Equal(t, []string{"http://acme.com/about"}, links)
}

func TestDiscover_InvalidHomeURL(t *testing.T) {
	t.Parallel()

	require.Nil(t, New(nil).Discover("<a href='/about'>About</a>", "::not a url"))
}

func TestFallback(t *testing.T) {
	t.Parallel()

	paths := New(nil).Fallback("https://acme.com/index.html")

	require.Len(t, paths, len(DefaultKeywords().CommonPaths))
	require.Equal(t, "https://acme.com/about", paths[0])
	require.Equal(t, "https://acme.com/company/team", paths[len(paths)-1])
}

func TestDiscoverURL(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{pages: map[string]string{
		"http://acme.com": `<nav><a href="/about">About</a><a href="/team">Team</a><a href="/contact">Contact</a></nav>`,
	}}

	links, err := New(fetcher).DiscoverURL(context.Background(), "http://acme.com")

	require.NoError(t, err)
	require.Equal(t, []string{"http://acme.com/about", "http://acme.com/team", "http://acme.com/contact"}, links)
	require.Equal(t, []string{"http://acme.com"}, fetcher.calls)
}

func TestDiscoverURL_FetchError(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{err: crawler.ErrOversizedPage}

	_, err := New(fetcher).DiscoverURL(context.Background(), "http://acme.com")

	require.Error(t, err)
	require.True(t, errors.Is(err, crawler.ErrOversizedPage))
}

func count(values []string, want string) int {
	n := 0
	for _, v := range values {
		if v == want {
			n++
		}
	}
	return n
}
