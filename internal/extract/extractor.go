// Package extract turns one page of HTML into classified, deduplicated contact
// information: general emails and phones, social profiles, contact forms and
// the people the page describes.
package extract

import (
	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/contact"
)

const (
	defaultCardMaxChars = 500
	maxNameChars        = 50
)

// Extractor parses pages. It holds only read-only state and is safe for
// concurrent use.
type Extractor struct {
	rules        *contact.Rules
	cardMaxChars int
	logger       *zap.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithCardMaxChars bounds the visible text of a block treated as a person card.
func WithCardMaxChars(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.cardMaxChars = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New builds an Extractor. A nil rules uses contact.DefaultRules.
func New(rules *contact.Rules, opts ...Option) *Extractor {
	if rules == nil {
		rules = contact.DefaultRules()
	}
	e := &Extractor{
		rules:        rules,
		cardMaxChars: defaultCardMaxChars,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
