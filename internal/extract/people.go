package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/contact-crawler/internal/contact"
)

const (
	headingSelector  = "h1, h2, h3, h4, h5, h6"
	nameMarkSelector = "strong, b, .name, .title, .person-name"
)

var paragraphBreaks = regexp.MustCompile(`[,\n•·|]`)

type candidate struct {
	node   *html.Node
	person contact.Person
}

// People resolves cards into detected people. Blocks that wrap two or more
// cards with distinct emails are skipped so one person never absorbs a whole team.
func (e *Extractor) People(cards []Card) []contact.Person {
	candidates := make([]candidate, 0, len(cards))
	for _, card := range cards {
		p, ok := e.cardPerson(card)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{node: card.Node, person: p})
	}

	var people []contact.Person
	for i, c := range candidates {
		if wrapsSeveral(c, candidates[i+1:]) {
			continue
		}
		people = contact.MergePeople(people, c.person)
	}
	return people
}

// wrapsSeveral reports whether c contains two cards with no email in common,
// named or not. Descendants always follow their ancestor in pre-order.
func wrapsSeveral(c candidate, later []candidate) bool {
	var inner []candidate
	for _, d := range later {
		if isAncestor(c.node, d.node) {
			inner = append(inner, d)
		}
	}
	for i := range inner {
		for j := i + 1; j < len(inner); j++ {
			if !inner[i].person.Emails.Intersects(inner[j].person.Emails) {
				return true
			}
		}
	}
	return false
}

func (e *Extractor) cardPerson(card Card) (contact.Person, bool) {
	var emails contact.Set[contact.Email]
	for _, raw := range append(append([]string(nil), card.LinkEmails...), card.TextEmails...) {
		if email, ok := e.rules.CleanEmail(raw); ok {
			emails.Add(email)
		}
	}
	var phones contact.Set[contact.Phone]
	for _, raw := range append(append([]string(nil), card.LinkPhones...), card.TextPhones...) {
		if phone, ok := e.rules.CleanPhone(raw); ok {
			phones.Add(phone)
		}
	}
	if emails.Len() == 0 || phones.Len() == 0 {
		return contact.Person{}, false
	}
	return contact.Person{
		Name:   cardName(card.Node),
		Emails: emails,
		Phones: phones,
		Origin: contact.OriginDetectedCard,
	}, true
}

// cardName picks the first usable heading, then emphasis or name-marked text,
// then the lead segment of the first paragraph.
func cardName(n *html.Node) string {
	scope := goquery.NewDocumentFromNode(n)
	if name, ok := usableName(firstText(scope.Find(headingSelector))); ok {
		return name
	}
	if name, ok := usableName(firstText(scope.Find(nameMarkSelector))); ok {
		return name
	}
	if p := scope.Find("p"); p.Length() > 0 {
		text := strings.TrimSpace(visibleText(p.Nodes[0]))
		lead := paragraphBreaks.Split(text, 2)[0]
		if name, ok := usableName(lead); ok {
			return name
		}
	}
	return contact.NameNotFound
}

func firstText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return visibleText(sel.Nodes[0])
}

func usableName(raw string) (string, bool) {
	name := collapse(raw)
	if name == "" || utf8.RuneCountInString(name) >= maxNameChars || strings.Contains(name, "@") {
		return "", false
	}
	return name, true
}

// inferPeople synthesizes a person for each unclaimed personal-looking email.
func (e *Extractor) inferPeople(emails contact.Set[contact.Email], claimed contact.Set[contact.Email]) []contact.Person {
	var people []contact.Person
	for _, email := range emails.Values() {
		if claimed.Has(email) || e.rules.ClassifyEmail(email) != contact.EmailPersonal {
			continue
		}
		name, ok := contact.InferName(email)
		if !ok {
			continue
		}
		people = append(people, contact.Person{
			Name:   name,
			Emails: contact.NewSet(email),
			Origin: contact.OriginInferredFromEmail,
		})
	}
	return people
}
