package extract

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/JakeFAU/contact-crawler/internal/contact"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	// strictPhone is a ten-digit North American number with an optional extension.
	strictPhone = regexp.MustCompile(
		`(?:\+?1[-.\s]?)?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}(?:\s?(?:ext|x|extension)[\s.]?\d+)?`)
	// loosePhone accepts any country prefix.
	loosePhone = regexp.MustCompile(`(?:\+\d{1,3}[-.\s]?)?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`)
)

// Signals are the raw, uncleaned findings of one page.
type Signals struct {
	// LinkEmails and LinkPhones come from mailto: and tel: anchors.
	LinkEmails []string
	LinkPhones []string
	// TextEmails and TextPhones are pattern matches over the visible text.
	TextEmails []string
	TextPhones []string
	Socials    []contact.SocialLink
	Forms      []contact.ContactForm
	// Cards are blocks holding both an email and a phone signal, in document order.
	Cards []Card
}

// Card is a candidate person card.
type Card struct {
	Node       *html.Node
	Text       string
	LinkEmails []string
	LinkPhones []string
	TextEmails []string
	TextPhones []string
}

// Signals scans doc, resolving relative links against pageURL.
func (e *Extractor) Signals(doc *goquery.Document, pageURL *url.URL) Signals {
	var sig Signals
	body := bodyNode(doc)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if target, ok := linkTarget(href, "mailto:"); ok {
			sig.LinkEmails = append(sig.LinkEmails, target)
			return
		}
		if target, ok := linkTarget(href, "tel:"); ok {
			sig.LinkPhones = append(sig.LinkPhones, target)
			return
		}
		if link, ok := e.socialLink(href, pageURL); ok {
			sig.Socials = append(sig.Socials, link)
		}
	})

	text := visibleText(body)
	sig.TextEmails = emailPattern.FindAllString(text, -1)
	for _, match := range phoneMatches(text) {
		// Dotted digit runs without a prefix are usually versions or coordinates.
		if strings.Contains(match, ".") && !strings.ContainsAny(match, "(+") {
			continue
		}
		sig.TextPhones = append(sig.TextPhones, match)
	}

	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		if f, ok := contactForm(form, pageURL); ok {
			sig.Forms = append(sig.Forms, f)
		}
	})

	sig.Cards = e.cards(body)
	return sig
}

// cards returns every element under body that qualifies as a person card.
func (e *Extractor) cards(body *html.Node) []Card {
	var out []Card
	walkElements(body, func(n *html.Node) {
		text := collapse(visibleText(n))
		if text == "" || utf8.RuneCountInString(text) > e.cardMaxChars {
			return
		}
		card := Card{Node: n, Text: text}
		walkElements(n, func(d *html.Node) {
			if d.DataAtom != atom.A {
				return
			}
			href := strings.TrimSpace(attr(d, "href"))
			if target, ok := linkTarget(href, "mailto:"); ok {
				card.LinkEmails = append(card.LinkEmails, target)
			} else if target, ok := linkTarget(href, "tel:"); ok {
				card.LinkPhones = append(card.LinkPhones, target)
			}
		})
		card.TextEmails = emailPattern.FindAllString(text, -1)
		card.TextPhones = phoneMatches(text)
		hasEmail := len(card.LinkEmails) > 0 || len(card.TextEmails) > 0
		hasPhone := len(card.LinkPhones) > 0 || len(card.TextPhones) > 0
		if hasEmail && hasPhone {
			out = append(out, card)
		}
	})
	return out
}

func (e *Extractor) socialLink(href string, pageURL *url.URL) (contact.SocialLink, bool) {
	if href == "" {
		return contact.SocialLink{}, false
	}
	u, ok := resolve(href, pageURL)
	if !ok || (u.Scheme != "http" && u.Scheme != "https") {
		return contact.SocialLink{}, false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, platform := range e.rules.Platforms {
		if strings.Contains(host, string(platform)) {
			return contact.SocialLink{Platform: platform, URL: u.String()}, true
		}
	}
	return contact.SocialLink{}, false
}

// contactForm reports whether form looks like a contact form and describes it.
func contactForm(form *goquery.Selection, pageURL *url.URL) (contact.ContactForm, bool) {
	markup, err := form.Html()
	if err != nil {
		return contact.ContactForm{}, false
	}
	markup = strings.ToLower(markup)
	if !strings.Contains(markup, "name") {
		return contact.ContactForm{}, false
	}
	if !strings.Contains(markup, "email") && !strings.Contains(markup, "message") &&
		!strings.Contains(markup, "subject") && !strings.Contains(markup, "phone") {
		return contact.ContactForm{}, false
	}
	method := strings.ToUpper(strings.TrimSpace(form.AttrOr("method", "")))
	if method == "" {
		method = "GET"
	}
	action := strings.TrimSpace(form.AttrOr("action", ""))
	if action == "" {
		return contact.ContactForm{Method: method, Target: pageURL.String(), SamePage: true}, true
	}
	target, ok := resolve(action, pageURL)
	if !ok {
		return contact.ContactForm{}, false
	}
	return contact.ContactForm{Method: method, Target: target.String()}, true
}

// phoneMatches applies the strict pattern then the loose one.
func phoneMatches(text string) []string {
	matches := strictPhone.FindAllString(text, -1)
	return append(matches, loosePhone.FindAllString(text, -1)...)
}

// linkTarget strips a case-insensitive scheme prefix from href.
func linkTarget(href, scheme string) (string, bool) {
	if len(href) < len(scheme) || !strings.EqualFold(href[:len(scheme)], scheme) {
		return "", false
	}
	target := strings.TrimSpace(href[len(scheme):])
	if unescaped, err := url.PathUnescape(target); err == nil {
		target = unescaped
	}
	return target, target != ""
}

func resolve(href string, base *url.URL) (*url.URL, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	if base == nil {
		return ref, ref.IsAbs()
	}
	return base.ResolveReference(ref), true
}

func bodyNode(doc *goquery.Document) *html.Node {
	if body := doc.Find("body"); body.Length() > 0 {
		return body.Nodes[0]
	}
	return doc.Nodes[0]
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
