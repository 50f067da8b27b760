package contact

import (
	"regexp"
	"strings"
	"unicode"
)

// EmailKind says whether an email looks like it belongs to one person.
type EmailKind int

const (
	// EmailGeneric is a role or shared mailbox, or anything ambiguous.
	EmailGeneric EmailKind = iota
	// EmailPersonal is shaped like an individual's address.
	EmailPersonal
)

func (k EmailKind) String() string {
	if k == EmailPersonal {
		return "personal"
	}
	return "generic"
}

var personalShapes = []*regexp.Regexp{
	regexp.MustCompile(`^[a-z]{2,}\.[a-z]{2,}$`), // first.last
	regexp.MustCompile(`^[a-z]{2,}_[a-z]{2,}$`),  // first_last
	regexp.MustCompile(`^[a-z]{2,}-[a-z]{2,}$`),  // first-last
	regexp.MustCompile(`^[a-z]\.[a-z]{2,}$`),     // f.last
	regexp.MustCompile(`^[a-z]{6,20}$`),          // firstlast
}

// ClassifyEmail reports whether email looks personal. It depends only on the
// local part, and anything that also matches a generic rule is generic.
func (r *Rules) ClassifyEmail(email Email) EmailKind {
	local := email.LocalPart()
	if r.isGenericLocal(local) {
		return EmailGeneric
	}
	for _, shape := range personalShapes {
		if shape.MatchString(local) {
			return EmailPersonal
		}
	}
	return EmailGeneric
}

func (r *Rules) isGenericLocal(local string) bool {
	if _, ok := r.GenericLocalParts[local]; ok {
		return true
	}
	for _, suffix := range r.GenericSuffixes {
		if strings.HasSuffix(local, suffix) {
			return true
		}
	}
	for _, segment := range splitLocal(local) {
		if _, ok := r.GenericLocalParts[segment]; ok {
			return true
		}
	}
	return false
}

// InferName builds "First Last" from a local part with exactly two alphabetic
// segments separated by '.', '_' or '-'.
func InferName(email Email) (string, bool) {
	segments := splitLocal(email.LocalPart())
	if len(segments) != 2 {
		return "", false
	}
	for _, s := range segments {
		if s == "" || !isAlpha(s) {
			return "", false
		}
	}
	return titleCase(segments[0]) + " " + titleCase(segments[1]), true
}

var localSeparators = regexp.MustCompile(`[._-]`)

// splitLocal keeps empty segments so "a..b" counts as three parts.
func splitLocal(local string) []string {
	return localSeparators.Split(local, -1)
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func titleCase(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
