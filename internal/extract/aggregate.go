package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/contact"
)

// ExtractPage parses one page and returns its contact information. General
// addresses never include an address attributed to a person.
func (e *Extractor) ExtractPage(htmlText, pageURL string) (contact.PageResult, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return contact.PageResult{}, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return contact.PageResult{}, fmt.Errorf("parse html: %w", err)
	}

	sig := e.Signals(doc, base)
	result := contact.PageResult{People: e.People(sig.Cards)}

	var emails contact.Set[contact.Email]
	for _, raw := range append(append([]string(nil), sig.LinkEmails...), sig.TextEmails...) {
		if email, ok := e.rules.CleanEmail(raw); ok {
			emails.Add(email)
		}
	}
	var phones contact.Set[contact.Phone]
	for _, raw := range append(append([]string(nil), sig.LinkPhones...), sig.TextPhones...) {
		if phone, ok := e.rules.CleanPhone(raw); ok {
			phones.Add(phone)
		}
	}

	inferred := e.inferPeople(emails, contact.ClaimedEmails(result.People))
	result.People = contact.MergePeople(result.People, inferred...)
	if result.People == nil {
		result.People = []contact.Person{}
	}

	result.GeneralEmails = emails
	result.GeneralPhones = phones
	result.Socials = contact.NewSet(sig.Socials...)
	result.Forms = contact.NewSet(sig.Forms...)
	result.Exclusive()

	e.logger.Debug("page extracted",
		zap.String("url", pageURL),
		zap.Int("general_emails", result.GeneralEmails.Len()),
		zap.Int("general_phones", result.GeneralPhones.Len()),
		zap.Int("people", len(result.People)),
		zap.Int("socials", result.Socials.Len()),
		zap.Int("forms", result.Forms.Len()),
	)
	return result, nil
}
