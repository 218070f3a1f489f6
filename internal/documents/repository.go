package documents

import (
	"context"

	"medj/internal/labs"
)

// Repository defines all persistence operations for documents.
type Repository interface {
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)

	// ClaimNext atomically moves the oldest UPLOADED document to
	// OCR_PROCESSING and returns it. Returns (nil, nil) when none is waiting.
	ClaimNext(ctx context.Context) (*Document, error)

	// MarkAnalyzed stores the report and replaces the document's
	// measurements in one step.
	MarkAnalyzed(ctx context.Context, id string, report *Report) error
	MarkFailed(ctx context.Context, id string, reason string) error

	// Retry moves a FAILED document back to UPLOADED.
	Retry(ctx context.Context, id string) error
}

// Measurement is one persisted lab row of an analyzed document.
type Measurement struct {
	DocumentID string
	Position   int
	Row        labs.LabRow
}

func measurementsOf(id string, rows []labs.LabRow) []Measurement {
	out := make([]Measurement, 0, len(rows))
	for i, r := range rows {
		out = append(out, Measurement{DocumentID: id, Position: i, Row: r})
	}
	return out
}
