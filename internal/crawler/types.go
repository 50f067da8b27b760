package crawler

import (
	"errors"
	"time"
)

// ErrOversizedPage signals that a page exceeded the fetch size limit. It is a
// soft failure: counted, never merged, never fatal.
var ErrOversizedPage = errors.New("page exceeds size limit")

// Page is a fetched HTML document.
type Page struct {
	URL        string        `json:"url"`
	StatusCode int           `json:"status_code"`
	HTML       string        `json:"-"`
	Duration   time.Duration `json:"duration"`
}

// BatchStatus represents the lifecycle state of a batch.
type BatchStatus string

// Batch status values persisted in the batch store.
const (
	BatchStatusQueued    BatchStatus = "queued"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusSucceeded BatchStatus = "succeeded"
	BatchStatusFailed    BatchStatus = "failed"
)

// Progress counts finished domains out of the total.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Batch is the metadata kept for each batch submitted through the API.
type Batch struct {
	ID        string      `json:"id"`
	Status    BatchStatus `json:"status"`
	Mode      string      `json:"mode"`
	Domains   []string    `json:"domains"`
	Submitted time.Time   `json:"submitted_at"`
	Started   *time.Time  `json:"started_at,omitempty"`
	Finished  *time.Time  `json:"finished_at,omitempty"`
	Progress  Progress    `json:"progress"`
	ErrorText string      `json:"error_text,omitempty"`
}
