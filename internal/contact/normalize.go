package contact

import (
	"regexp"
	"strings"

	"github.com/mcnijman/go-emailaddress"
	"github.com/nyaruka/phonenumbers"
	"golang.org/x/net/idna"
)

var (
	phoneJunk      = regexp.MustCompile(`[^0-9+()\-.\s]`)
	phoneExtension = regexp.MustCompile(`(?i)\s*(?:ext\.?|extension|x)[\s.:]*\d+\s*$`)
	schemePrefix   = regexp.MustCompile(`(?i)^[a-z][a-z0-9+.-]*://`)
)

// CleanEmail lower-cases and validates raw. It returns false for anything that is
// not a plausible public address. Input must already be unescaped; a '%' is rejected.
func (r *Rules) CleanEmail(raw string) (Email, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	cleaned = strings.TrimPrefix(cleaned, "mailto:")
	if i := strings.IndexByte(cleaned, '?'); i >= 0 {
		cleaned = cleaned[:i]
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" || strings.Contains(cleaned, "%") {
		return "", false
	}
	for _, blocked := range r.EmailBlacklist {
		if strings.Contains(cleaned, blocked) {
			return "", false
		}
	}
	for _, suffix := range r.AssetSuffixes {
		if strings.HasSuffix(cleaned, suffix) {
			return "", false
		}
	}
	addr, err := emailaddress.Parse(cleaned)
	if err != nil {
		return "", false
	}
	if !strings.Contains(addr.Domain, ".") || strings.HasSuffix(addr.Domain, ".") {
		return "", false
	}
	return Email(cleaned), true
}

// CleanPhone validates raw and returns its canonical digits. A trailing extension
// is dropped, as is the leading 1 of an 11-digit North American number.
func (r *Rules) CleanPhone(raw string) (Phone, bool) {
	trimmed := phoneExtension.ReplaceAllString(strings.TrimSpace(raw), "")
	cleaned := phoneJunk.ReplaceAllString(trimmed, "")
	digits := onlyDigits(cleaned)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) < 10 || len(digits) > 15 {
		return "", false
	}
	if strings.Trim(digits, digits[:1]) == "" {
		return "", false
	}
	if strings.Contains(digits, "000") || strings.Contains(digits, "111") {
		return "", false
	}
	if !r.possibleNumber(cleaned, digits) {
		return "", false
	}
	return Phone(digits), true
}

// possibleNumber reports whether raw has a dialable length in the rules' region,
// or, read as "+digits", in the country its digits start with. The second form
// keeps canonical international numbers valid on a second pass.
func (r *Rules) possibleNumber(raw, digits string) bool {
	region := r.PhoneRegion
	if region == "" {
		region = DefaultPhoneRegion
	}
	if number, err := phonenumbers.Parse(raw, region); err == nil && phonenumbers.IsPossibleNumber(number) {
		return true
	}
	number, err := phonenumbers.Parse("+"+digits, "")
	return err == nil && phonenumbers.IsPossibleNumber(number)
}

// NormalizeDomain reduces a URL or host to a bare lower-case domain: no scheme,
// no "www.", no path, query, fragment, port or trailing dot.
func NormalizeDomain(raw string) string {
	domain := strings.TrimSpace(raw)
	if domain == "" {
		return ""
	}
	domain = schemePrefix.ReplaceAllString(domain, "")
	if i := strings.IndexAny(domain, "/?#"); i >= 0 {
		domain = domain[:i]
	}
	if i := strings.LastIndexByte(domain, '@'); i >= 0 {
		domain = domain[i+1:]
	}
	if host, _, ok := strings.Cut(domain, ":"); ok {
		domain = host
	}
	domain = strings.ToLower(domain)
	domain = strings.TrimPrefix(domain, "www.")
	domain = strings.TrimSuffix(domain, ".")
	if ascii, err := idna.Lookup.ToASCII(domain); err == nil && ascii != "" {
		domain = ascii
	}
	return domain
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
