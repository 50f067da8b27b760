package crawler

import (
	"net/url"
	"sort"
	"strings"
)

// priorityRule scores a URL when any of its terms appears in it.
type priorityRule struct {
	score int
	terms []string
}

// Ordered from most to least likely to list contacts.
var priorityRules = []priorityRule{
	{score: 100, terms: []string{"contact"}},
	{score: 90, terms: []string{"about"}},
	{score: 85, terms: []string{"team", "staff", "people"}},
	{score: 80, terms: []string{"support", "help"}},
}

const defaultPriority = 50

// Score rates how likely a URL is to list contacts. Only the path and query
// count, so a host such as "contactlens.com" does not inflate every page.
func Score(rawURL string) int {
	lower := strings.ToLower(rawURL)
	if u, err := url.Parse(rawURL); err == nil {
		lower = strings.ToLower(u.Path + "?" + u.RawQuery)
	}
	for _, rule := range priorityRules {
		for _, term := range rule.terms {
			if strings.Contains(lower, term) {
				return rule.score
			}
		}
	}
	return defaultPriority
}

// Prioritize orders candidates by Score, keeping discovery order among equal
// scores, drops the homepage and duplicates, and keeps at most limit URLs.
func Prioritize(candidates []string, homeURL string, limit int) []string {
	home := pageKey(homeURL)
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		key := pageKey(c)
		if key == home {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return Score(out[i]) > Score(out[j])
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// pageKey identifies a page ignoring scheme, "www.", a trailing slash and the fragment.
func pageKey(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.TrimSuffix(strings.ToLower(rawURL), "/")
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	key := host + strings.TrimSuffix(u.EscapedPath(), "/")
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key
}
