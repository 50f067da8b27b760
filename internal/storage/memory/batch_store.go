// Package memory keeps API batches in process memory.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/JakeFAU/contact-crawler/internal/contact"
	"github.com/JakeFAU/contact-crawler/internal/crawler"
)

var (
	// ErrBatchNotFound is returned for unknown batch IDs.
	ErrBatchNotFound = errors.New("batch not found")
	// ErrBatchExists is returned when a batch ID is reused.
	ErrBatchExists = errors.New("batch already exists")
)

// BatchStore implements crawler.BatchStore for a single process.
type BatchStore struct {
	mu      sync.RWMutex
	batches map[string]crawler.Batch
	results map[string][]contact.DomainRecord
	now     func() time.Time
}

// NewBatchStore constructs a BatchStore.
func NewBatchStore() *BatchStore {
	return &BatchStore{
		batches: make(map[string]crawler.Batch),
		results: make(map[string][]contact.DomainRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateBatch stores a new batch.
func (s *BatchStore) CreateBatch(_ context.Context, batch crawler.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.batches[batch.ID]; exists {
		return fmt.Errorf("%w: %s", ErrBatchExists, batch.ID)
	}
	batch.Domains = slices.Clone(batch.Domains)
	s.batches[batch.ID] = batch
	return nil
}

// UpdateBatch sets the status, progress and error text of a batch.
func (s *BatchStore) UpdateBatch(
	_ context.Context,
	batchID string,
	status crawler.BatchStatus,
	progress crawler.Progress,
	errText string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[batchID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	batch.Status = status
	batch.Progress = progress
	batch.ErrorText = errText
	now := s.now()
	if status != crawler.BatchStatusQueued && batch.Started == nil {
		batch.Started = &now
	}
	if isTerminal(status) && batch.Finished == nil {
		batch.Finished = &now
	}
	s.batches[batchID] = batch
	return nil
}

// AppendResults adds finished domain records to a batch.
func (s *BatchStore) AppendResults(_ context.Context, batchID string, records []contact.DomainRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[batchID]; !ok {
		return fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	s.results[batchID] = append(s.results[batchID], records...)
	return nil
}

// GetBatch fetches a batch by ID.
func (s *BatchStore) GetBatch(_ context.Context, batchID string) (crawler.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batch, ok := s.batches[batchID]
	if !ok {
		return crawler.Batch{}, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	batch.Domains = slices.Clone(batch.Domains)
	return batch, nil
}

// ListResults returns the records appended so far, in append order.
func (s *BatchStore) ListResults(_ context.Context, batchID string) ([]contact.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.batches[batchID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	return slices.Clone(s.results[batchID]), nil
}

func isTerminal(status crawler.BatchStatus) bool {
	switch status {
	case crawler.BatchStatusSucceeded, crawler.BatchStatusFailed:
		return true
	default:
		return false
	}
}
