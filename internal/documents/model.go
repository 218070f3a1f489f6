// Package documents runs uploaded medical documents through OCR,
// anonymization, LLM enrichment and lab extraction, synchronously for
// previews and through a background worker for stored uploads.
package documents

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"medj/internal/labs"
)

var log = logrus.WithField("component", "documents")

var (
	ErrNotFound      = errors.New("document not found")
	ErrInvalidUpload = errors.New("invalid upload")
	ErrNotRetryable  = errors.New("document not in FAILED state")
	ErrNoText        = errors.New("no text could be recognised in the document")
)

// Status is the processing state of a stored document.
type Status string

const (
	StatusUploaded   Status = "UPLOADED"
	StatusProcessing Status = "OCR_PROCESSING"
	StatusAnalyzed   Status = "ANALYZED"
	StatusFailed     Status = "FAILED"
)

// File is one stored upload of a document.
type File struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
}

// Document is a stored submission and, once analyzed, its report.
type Document struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Files     []File     `json:"files"`
	Hints     labs.Hints `json:"hints"`
	Status    Status     `json:"status"`
	Error     *string    `json:"error,omitempty"`
	Report    *Report    `json:"report,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Report is the pipeline output with its provenance.
type Report struct {
	Summary    string              `json:"summary"`
	Result     labs.AnalysisResult `json:"result"`
	OCRSource  string              `json:"ocr_source"`
	LLMUsed    bool                `json:"llm_used"`
	LLMError   string              `json:"llm_error,omitempty"`
	Redactions map[string]int      `json:"redactions,omitempty"`
	DurationMS int64               `json:"duration_ms"`
}

// StatusView is the polling payload.
type StatusView struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Error     *string   `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
