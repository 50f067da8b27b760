// Package contact holds the contact data model together with the rules that
// clean, classify and merge contact addresses.
package contact

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Email is a cleaned, lower-cased email address.
type Email string

// Domain returns the part after the last '@'.
func (e Email) Domain() string {
	at := strings.LastIndexByte(string(e), '@')
	if at < 0 {
		return ""
	}
	return string(e)[at+1:]
}

// LocalPart returns the part before the last '@'.
func (e Email) LocalPart() string {
	at := strings.LastIndexByte(string(e), '@')
	if at < 0 {
		return string(e)
	}
	return string(e)[:at]
}

// Phone is a cleaned phone number in canonical digits-only form.
type Phone string

// Origin records how a person was found.
type Origin string

const (
	// OriginDetectedCard marks a person found in a block holding both an email and a phone.
	OriginDetectedCard Origin = "detected_card"
	// OriginInferredFromEmail marks a person synthesized from a personal-looking email.
	OriginInferredFromEmail Origin = "inferred_from_email"
)

// NameNotFound is the name given to a detected person whose card carries no usable name.
const NameNotFound = "Name not found"

// Person is a named individual with the addresses attributed to them.
type Person struct {
	Name   string     `json:"name"`
	Emails Set[Email] `json:"emails"`
	Phones Set[Phone] `json:"phones"`
	Origin Origin     `json:"origin"`
}

// Clone returns a deep copy of p.
func (p Person) Clone() Person {
	return Person{
		Name:   p.Name,
		Emails: p.Emails.Clone(),
		Phones: p.Phones.Clone(),
		Origin: p.Origin,
	}
}

// Platform names a social network.
type Platform string

// Supported platforms.
const (
	PlatformLinkedIn  Platform = "linkedin"
	PlatformFacebook  Platform = "facebook"
	PlatformTwitter   Platform = "twitter"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformPinterest Platform = "pinterest"
)

// SocialLink is an absolute URL to a profile on a social platform.
type SocialLink struct {
	Platform Platform `json:"platform"`
	URL      string   `json:"url"`
}

// ContactForm describes a form that looks like it collects contact requests.
// It encodes as its String form.
type ContactForm struct {
	Method   string
	Target   string
	SamePage bool
}

const samePageMark = " (same page)"

// String renders the form as "METHOD: target", marking forms without an action.
func (f ContactForm) String() string {
	if f.SamePage {
		return fmt.Sprintf("%s: %s%s", f.Method, f.Target, samePageMark)
	}
	return fmt.Sprintf("%s: %s", f.Method, f.Target)
}

// MarshalText implements encoding.TextMarshaler.
func (f ContactForm) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText parses the String form.
func (f *ContactForm) UnmarshalText(text []byte) error {
	method, target, ok := strings.Cut(string(text), ": ")
	if !ok || method == "" || target == "" {
		return fmt.Errorf("contact form %q: want \"METHOD: target\"", text)
	}
	trimmed, samePage := strings.CutSuffix(target, samePageMark)
	*f = ContactForm{Method: method, Target: trimmed, SamePage: samePage}
	return nil
}

// PageResult is the contact information extracted from one page.
// No address in People appears in GeneralEmails or GeneralPhones.
type PageResult struct {
	GeneralEmails Set[Email]       `json:"generalEmails"`
	GeneralPhones Set[Phone]       `json:"generalPhones"`
	Socials       Set[SocialLink]  `json:"socialMedia"`
	Forms         Set[ContactForm] `json:"contactForms"`
	People        []Person         `json:"people"`
}

// ContactCount is the number of general emails, general phones and people.
func (r *PageResult) ContactCount() int {
	return r.GeneralEmails.Len() + r.GeneralPhones.Len() + len(r.People)
}

// DomainRecord is the merged result for one domain across every visited page.
type DomainRecord struct {
	Domain string            `json:"domain"`
	Input  map[string]string `json:"input,omitempty"`
	PageResult
	PagesScraped int    `json:"pagesScraped"`
	PagesFailed  int    `json:"pagesFailed"`
	// Error is empty on success and encodes as null.
	Error string `json:"error"`
}

// MarshalJSON encodes an empty Error as null.
func (d DomainRecord) MarshalJSON() ([]byte, error) {
	type plain DomainRecord
	var errText *string
	if d.Error != "" {
		errText = &d.Error
	}
	data, err := json.Marshal(struct {
		plain
		Error *string `json:"error"`
	}{plain: plain(d), Error: errText})
	if err != nil {
		return nil, fmt.Errorf("marshal domain record: %w", err)
	}
	return data, nil
}

// NewDomainRecord starts an empty record for task.
func NewDomainRecord(task CrawlTask) DomainRecord {
	return DomainRecord{
		Domain:     task.Domain,
		Input:      task.Input,
		PageResult: PageResult{People: []Person{}},
	}
}

// FailedRecord is an all-empty record for task carrying err.
func FailedRecord(task CrawlTask, err error) DomainRecord {
	rec := NewDomainRecord(task)
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// ErrInvalidDomain marks a task whose input normalized to no domain.
var ErrInvalidDomain = errors.New("invalid domain")

// CrawlTask is one domain to crawl plus caller fields passed through untouched.
type CrawlTask struct {
	Domain string            `json:"domain"`
	Input  map[string]string `json:"input,omitempty"`
}

// NewCrawlTask normalizes raw into a domain and attaches input.
func NewCrawlTask(raw string, input map[string]string) CrawlTask {
	return CrawlTask{Domain: NormalizeDomain(raw), Input: input}
}

// Mode selects how much of a domain is crawled.
type Mode string

const (
	// ModeQuick fetches only the homepage.
	ModeQuick Mode = "quick"
	// ModeComprehensive discovers and fetches prioritized subpages as well.
	ModeComprehensive Mode = "comprehensive"
)

// ParseMode maps a string to a Mode. The empty string selects ModeComprehensive.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeQuick:
		return ModeQuick, nil
	case ModeComprehensive, "":
		return ModeComprehensive, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}
