package crawler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/contact"
	"github.com/JakeFAU/contact-crawler/internal/metrics"
)

// Config holds the crawl policy for one domain.
type Config struct {
	// MaxPages caps the subpages fetched after the homepage.
	MaxPages int
	// EarlyStopContacts and EarlyStopPeople end a crawl once the record holds at
	// least that many contacts (general emails, phones and people) and people.
	EarlyStopContacts int
	EarlyStopPeople   int
	// MinDiscovered is the link count under which conventional paths are added.
	MinDiscovered int
}

// DefaultConfig returns the standard crawl policy.
func DefaultConfig() Config {
	return Config{
		MaxPages:          8,
		EarlyStopContacts: 5,
		EarlyStopPeople:   2,
		MinDiscovered:     3,
	}
}

// ProgressFunc receives human-readable progress messages.
type ProgressFunc func(message string)

type state int

const (
	stateFetchHome state = iota
	stateDiscoverLinks
	stateFetchPages
	stateDone
)

func (s state) String() string {
	switch s {
	case stateFetchHome:
		return "fetch_home"
	case stateDiscoverLinks:
		return "discover_links"
	case stateFetchPages:
		return "fetch_pages"
	default:
		return "done"
	}
}

// Orchestrator crawls one domain at a time. It keeps no per-domain state, so a
// single Orchestrator serves concurrent ScrapeDomain calls.
type Orchestrator struct {
	fetcher    Fetcher
	extractor  PageExtractor
	discoverer LinkDiscoverer
	cfg        Config
	logger     *zap.Logger
}

// NewOrchestrator wires an Orchestrator. Zero config fields take defaults.
func NewOrchestrator(
	fetcher Fetcher,
	extractor PageExtractor,
	discoverer LinkDiscoverer,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	def := DefaultConfig()
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if cfg.EarlyStopContacts <= 0 {
		cfg.EarlyStopContacts = def.EarlyStopContacts
	}
	if cfg.EarlyStopPeople <= 0 {
		cfg.EarlyStopPeople = def.EarlyStopPeople
	}
	if cfg.MinDiscovered <= 0 {
		cfg.MinDiscovered = def.MinDiscovered
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		fetcher:    fetcher,
		extractor:  extractor,
		discoverer: discoverer,
		cfg:        cfg,
		logger:     logger.Named("orchestrator"),
	}
}

// domainRun is the state owned by one ScrapeDomain call.
type domainRun struct {
	task     contact.CrawlTask
	record   contact.DomainRecord
	homeURL  string
	homeHTML string
	homeOK   bool
	queue    []string
	progress ProgressFunc
	logger   *zap.Logger
}

func (r *domainRun) report(format string, args ...any) {
	if r.progress != nil {
		r.progress(fmt.Sprintf(format, args...))
	}
}

// ScrapeDomain crawls task.Domain and returns its merged record. Quick mode
// reads only the homepage. Page failures are counted and skipped; any other
// failure, including a panic, yields an empty record carrying the error.
func (o *Orchestrator) ScrapeDomain(
	ctx context.Context,
	task contact.CrawlTask,
	mode contact.Mode,
	onProgress ProgressFunc,
) (record contact.DomainRecord) {
	logger := o.logger.With(zap.String("domain", task.Domain), zap.String("mode", string(mode)))
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("domain crawl panicked", zap.Any("panic", rec))
			record = o.fail(task, fmt.Errorf("crawl %s: panic: %v", task.Domain, rec))
		}
	}()

	if task.Domain == "" {
		return o.fail(task, errors.New("crawl: empty domain"))
	}

	run := &domainRun{
		task:     task,
		record:   contact.NewDomainRecord(task),
		homeURL:  "http://" + task.Domain,
		progress: onProgress,
		logger:   logger,
	}

	for st := stateFetchHome; st != stateDone; {
		if err := ctx.Err(); err != nil {
			logger.Warn("domain crawl canceled", zap.Stringer("state", st), zap.Error(err))
			return o.fail(task, fmt.Errorf("crawl %s: %w", task.Domain, err))
		}
		logger.Debug("entering state", zap.Stringer("state", st))
		switch st {
		case stateFetchHome:
			run.report("Fetching homepage %s", run.homeURL)
			run.homeHTML, run.homeOK = o.fetchPage(ctx, run, run.homeURL)
			if mode == contact.ModeQuick {
				st = stateDone
			} else {
				st = stateDiscoverLinks
			}
		case stateDiscoverLinks:
			run.queue = o.plan(ctx, run)
			run.report("Queued %d pages for %s", len(run.queue), task.Domain)
			st = stateFetchPages
		case stateFetchPages:
			if stopped := o.fetchQueue(ctx, run); stopped != nil {
				return o.fail(task, stopped)
			}
			st = stateDone
		}
	}

	metrics.ObserveDomain("succeeded")
	metrics.ObserveContacts(run.record.GeneralEmails.Len(), run.record.GeneralPhones.Len(), len(run.record.People))
	logger.Info("domain crawl finished",
		zap.Int("pages_scraped", run.record.PagesScraped),
		zap.Int("pages_failed", run.record.PagesFailed),
		zap.Int("contacts", run.record.ContactCount()),
	)
	run.report("Finished %s: %d pages scraped, %d failed", task.Domain, run.record.PagesScraped, run.record.PagesFailed)
	return run.record
}

// plan discovers candidate pages and orders them for fetching.
func (o *Orchestrator) plan(ctx context.Context, run *domainRun) []string {
	var links []string
	if run.homeOK {
		links = o.discoverer.Discover(run.homeHTML, run.homeURL)
	} else {
		var err error
		links, err = o.discoverer.DiscoverURL(ctx, run.homeURL)
		if err != nil {
			run.logger.Warn("link discovery failed", zap.Error(err))
		}
	}
	if len(links) < o.cfg.MinDiscovered {
		links = append(links, o.discoverer.Fallback(run.homeURL)...)
	}
	return Prioritize(links, run.homeURL, o.cfg.MaxPages)
}

// fetchQueue fetches queued pages in order until the record is good enough.
// It returns an error only when ctx ends.
func (o *Orchestrator) fetchQueue(ctx context.Context, run *domainRun) error {
	for i, pageURL := range run.queue {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("crawl %s: %w", run.task.Domain, err)
		}
		if o.satisfied(&run.record) {
			run.logger.Info("early stop",
				zap.Int("skipped", len(run.queue)-i),
				zap.Int("contacts", run.record.ContactCount()),
				zap.Int("people", len(run.record.People)),
			)
			run.report("Found enough contacts on %s, skipping %d pages", run.task.Domain, len(run.queue)-i)
			return nil
		}
		run.report("Fetching %s (%d/%d)", pageURL, i+1, len(run.queue))
		o.fetchPage(ctx, run, pageURL)
	}
	return nil
}

func (o *Orchestrator) satisfied(rec *contact.DomainRecord) bool {
	return rec.ContactCount() >= o.cfg.EarlyStopContacts && len(rec.People) >= o.cfg.EarlyStopPeople
}

// fetchPage fetches and folds one page. Failures only bump PagesFailed.
func (o *Orchestrator) fetchPage(ctx context.Context, run *domainRun, pageURL string) (string, bool) {
	page, err := o.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		run.record.PagesFailed++
		status := "failed"
		if errors.Is(err, ErrOversizedPage) {
			status = "oversized"
		}
		metrics.ObservePage(run.task.Domain, status)
		run.logger.Warn("page fetch failed", zap.String("url", pageURL), zap.String("status", status), zap.Error(err))
		run.report("Could not fetch %s", pageURL)
		return "", false
	}
	result, err := o.extractor.ExtractPage(page.HTML, pageURL)
	if err != nil {
		run.record.PagesFailed++
		metrics.ObservePage(run.task.Domain, "unparsable")
		run.logger.Warn("page extraction failed", zap.String("url", pageURL), zap.Error(err))
		return "", false
	}
	run.record.Fold(result)
	run.record.PagesScraped++
	metrics.ObservePage(run.task.Domain, "scraped")
	run.logger.Debug("page merged",
		zap.String("url", pageURL),
		zap.Int("people", len(result.People)),
		zap.Int("contacts", result.ContactCount()),
	)
	return page.HTML, true
}

func (o *Orchestrator) fail(task contact.CrawlTask, err error) contact.DomainRecord {
	metrics.ObserveDomain("failed")
	o.logger.Error("domain crawl failed", zap.String("domain", task.Domain), zap.Error(err))
	return contact.FailedRecord(task, err)
}
