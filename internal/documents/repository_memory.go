package documents

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type InMemoryRepository struct {
	mu           sync.Mutex
	docs         map[string]*Document
	measurements map[string][]Measurement
	now          func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		docs:         make(map[string]*Document),
		measurements: make(map[string][]Measurement),
		now:          time.Now,
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, doc *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	now := r.now()
	doc.CreatedAt, doc.UpdatedAt = now, now
	if doc.Status == "" {
		doc.Status = StatusUploaded
	}
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *InMemoryRepository) ClaimNext(ctx context.Context) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var waiting []*Document
	for _, d := range r.docs {
		if d.Status == StatusUploaded {
			waiting = append(waiting, d)
		}
	}
	if len(waiting) == 0 {
		return nil, nil
	}
	sort.Slice(waiting, func(i, j int) bool {
		if waiting[i].CreatedAt.Equal(waiting[j].CreatedAt) {
			return waiting[i].ID < waiting[j].ID
		}
		return waiting[i].CreatedAt.Before(waiting[j].CreatedAt)
	})

	d := waiting[0]
	d.Status = StatusProcessing
	d.UpdatedAt = r.now()
	cp := *d
	return &cp, nil
}

func (r *InMemoryRepository) MarkAnalyzed(ctx context.Context, id string, report *Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.docs[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = StatusAnalyzed
	d.Report = report
	d.Error = nil
	d.UpdatedAt = r.now()
	if report != nil {
		r.measurements[id] = measurementsOf(id, report.Result.BloodTestResults)
	}
	return nil
}

func (r *InMemoryRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.docs[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = StatusFailed
	d.Error = &reason
	d.UpdatedAt = r.now()
	return nil
}

func (r *InMemoryRepository) Retry(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.docs[id]
	if !ok {
		return ErrNotFound
	}
	if d.Status != StatusFailed {
		return ErrNotRetryable
	}
	d.Status = StatusUploaded
	d.Error = nil
	d.Report = nil
	d.UpdatedAt = r.now()
	return nil
}

// Measurements returns the stored rows of a document.
func (r *InMemoryRepository) Measurements(id string) []Measurement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Measurement(nil), r.measurements[id]...)
}
