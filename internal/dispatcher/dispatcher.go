// Package dispatcher runs batches of domain crawls in fixed-size windows.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/contact-crawler/internal/contact"
	"github.com/JakeFAU/contact-crawler/internal/crawler"
	"github.com/JakeFAU/contact-crawler/internal/metrics"
)

// DomainScraper crawls a single domain. *crawler.Orchestrator satisfies it.
type DomainScraper interface {
	ScrapeDomain(ctx context.Context, task contact.CrawlTask, mode contact.Mode, onProgress crawler.ProgressFunc) contact.DomainRecord
}

// Config controls batch windowing.
type Config struct {
	// WindowSize is the number of domains crawled concurrently.
	WindowSize int
	// WindowDelay is the pause between windows.
	WindowDelay time.Duration
}

// DefaultConfig returns the standard windowing: 3 domains, 2s apart.
func DefaultConfig() Config {
	return Config{WindowSize: 3, WindowDelay: 2 * time.Second}
}

// WindowFunc receives the records of one finished window, in submission
// order, and the batch progress after it.
type WindowFunc func(records []contact.DomainRecord, progress crawler.Progress)

// Scheduler crawls a batch window by window.
type Scheduler struct {
	scraper DomainScraper
	clock   crawler.Clock
	cfg     Config
	logger  *zap.Logger
}

// New creates a Scheduler. Zero config fields take defaults.
func New(scraper DomainScraper, clock crawler.Clock, cfg Config, logger *zap.Logger) *Scheduler {
	def := DefaultConfig()
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.WindowDelay < 0 {
		cfg.WindowDelay = def.WindowDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		scraper: scraper,
		clock:   clock,
		cfg:     cfg,
		logger:  logger.Named("scheduler"),
	}
}

// Process crawls tasks and hands each window's records to onWindow. Every task
// yields exactly one record. Once ctx ends no new window starts and the
// remaining tasks are delivered as error records.
func (s *Scheduler) Process(ctx context.Context, tasks []contact.CrawlTask, mode contact.Mode, onWindow WindowFunc) {
	total := len(tasks)
	emit := func(records []contact.DomainRecord, current int) {
		if onWindow != nil {
			onWindow(records, crawler.Progress{Current: current, Total: total})
		}
	}

	s.logger.Info("batch started",
		zap.Int("domains", total),
		zap.Int("window_size", s.cfg.WindowSize),
		zap.String("mode", string(mode)),
	)
	for start := 0; start < total; start += s.cfg.WindowSize {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("batch canceled", zap.Int("remaining", total-start), zap.Error(err))
			emit(abandon(tasks[start:], err), total)
			return
		}

		end := min(start+s.cfg.WindowSize, total)
		records := s.runWindow(ctx, tasks[start:end], mode)
		metrics.ObserveBatchWindow()
		s.logger.Info("batch window finished", zap.Int("current", end), zap.Int("total", total))
		emit(records, end)

		if end == total {
			break
		}
		if err := s.clock.Sleep(ctx, s.cfg.WindowDelay); err != nil {
			s.logger.Warn("batch canceled between windows", zap.Int("remaining", total-end), zap.Error(err))
			emit(abandon(tasks[end:], err), total)
			return
		}
	}
	s.logger.Info("batch finished", zap.Int("domains", total))
}

// ProcessAll crawls tasks and returns one record per task in submission order.
func (s *Scheduler) ProcessAll(
	ctx context.Context,
	tasks []contact.CrawlTask,
	mode contact.Mode,
	onProgress func(crawler.Progress),
) []contact.DomainRecord {
	results := make([]contact.DomainRecord, 0, len(tasks))
	s.Process(ctx, tasks, mode, func(records []contact.DomainRecord, progress crawler.Progress) {
		results = append(results, records...)
		if onProgress != nil {
			onProgress(progress)
		}
	})
	return results
}

func (s *Scheduler) runWindow(ctx context.Context, window []contact.CrawlTask, mode contact.Mode) []contact.DomainRecord {
	records := make([]contact.DomainRecord, len(window))
	metrics.AddActiveDomains(len(window))

	var g errgroup.Group
	for i, task := range window {
		g.Go(func() error {
			defer metrics.AddActiveDomains(-1)
			records[i] = s.scrape(ctx, task, mode)
			return nil
		})
	}
	_ = g.Wait()
	return records
}

// scrape shields the batch from a panicking scraper.
func (s *Scheduler) scrape(ctx context.Context, task contact.CrawlTask, mode contact.Mode) (record contact.DomainRecord) {
	logger := s.logger.With(zap.String("domain", task.Domain))
	if task.Domain == "" {
		logger.Warn("skipping invalid domain", zap.Any("input", task.Input))
		return contact.FailedRecord(task, contact.ErrInvalidDomain)
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("domain scrape panicked", zap.Any("panic", rec))
			record = contact.FailedRecord(task, fmt.Errorf("scrape %s: panic: %v", task.Domain, rec))
		}
	}()
	return s.scraper.ScrapeDomain(ctx, task, mode, func(msg string) {
		logger.Debug(msg)
	})
}

func abandon(tasks []contact.CrawlTask, err error) []contact.DomainRecord {
	records := make([]contact.DomainRecord, len(tasks))
	for i, task := range tasks {
		records[i] = contact.FailedRecord(task, fmt.Errorf("batch canceled: %w", err))
	}
	return records
}
