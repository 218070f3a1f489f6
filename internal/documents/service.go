package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"medj/internal/labs"
	"medj/internal/ocr"
)

// MaxFileBytes caps a single uploaded file.
const MaxFileBytes = 20 << 20

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Storage keeps uploaded files.
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
}

// FileUpload is one file of a submission.
type FileUpload struct {
	Name string
	Data []byte
}

type staleReleaser interface {
	ReleaseStale(ctx context.Context) (int64, error)
}

type Service struct {
	repo     Repository
	storage  Storage
	pipeline *Pipeline
}

func NewService(repo Repository, storage Storage, pipeline *Pipeline) *Service {
	return &Service{repo: repo, storage: storage, pipeline: pipeline}
}

// --------------------------------------------------
// Upload validation
// --------------------------------------------------

// ValidateUploads accepts PDF, JPG, JPEG and PNG files: either a single PDF
// or any number of images, never both.
func ValidateUploads(files []FileUpload) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: at least one file is required", ErrInvalidUpload)
	}
	var pdfs, images int
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Name))
		if !allowedExtensions[ext] {
			return fmt.Errorf("%w: unsupported file %q, allowed: PDF, JPG, JPEG, PNG", ErrInvalidUpload, f.Name)
		}
		if len(f.Data) == 0 {
			return fmt.Errorf("%w: file %q is empty", ErrInvalidUpload, f.Name)
		}
		if len(f.Data) > MaxFileBytes {
			return fmt.Errorf("%w: file %q is larger than %d MB", ErrInvalidUpload, f.Name, MaxFileBytes>>20)
		}
		if ext == ".pdf" {
			pdfs++
		} else {
			images++
		}
	}
	if pdfs > 1 {
		return fmt.Errorf("%w: only one PDF is allowed", ErrInvalidUpload)
	}
	if pdfs == 1 && images > 0 {
		return fmt.Errorf("%w: do not mix PDF and images in one upload", ErrInvalidUpload)
	}
	return nil
}

// pagesOf turns uploads into OCR pages. Images are ordered by file name so
// multi-page photos keep their numbering.
func pagesOf(files []FileUpload) []ocr.Page {
	pages := make([]ocr.Page, 0, len(files))
	for _, f := range files {
		pages = append(pages, ocr.Page{
			Name:        f.Name,
			ContentType: ocr.DetectContentType(f.Name, f.Data),
			Data:        f.Data,
		})
	}
	sort.SliceStable(pages, func(i, j int) bool {
		return strings.ToLower(pages[i].Name) < strings.ToLower(pages[j].Name)
	})
	return pages
}

// --------------------------------------------------
// Preview (SYNCHRONOUS, NOTHING STORED)
// --------------------------------------------------
func (s *Service) Preview(ctx context.Context, files []FileUpload, hints labs.Hints) (*Report, error) {
	if err := ValidateUploads(files); err != nil {
		return nil, err
	}
	return s.pipeline.Analyze(ctx, pagesOf(files), hints)
}

// --------------------------------------------------
// Upload (ASYNC, PICKED UP BY THE WORKER)
// --------------------------------------------------
func (s *Service) Upload(ctx context.Context, ownerID string, files []FileUpload, hints labs.Hints) (*Document, error) {
	if err := ValidateUploads(files); err != nil {
		return nil, err
	}

	doc := &Document{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		Hints:   hints,
		Status:  StatusUploaded,
	}
	for _, p := range pagesOf(files) {
		key := fmt.Sprintf(
			"documents/%s/%s%s",
			doc.ID,
			uuid.New().String(),
			strings.ToLower(filepath.Ext(p.Name)),
		)
		if _, err := s.storage.Upload(ctx, key, bytes.NewReader(p.Data), p.ContentType); err != nil {
			return nil, fmt.Errorf("store %s: %w", p.Name, err)
		}
		doc.Files = append(doc.Files, File{Key: key, Name: p.Name, ContentType: p.ContentType})
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"document_id": doc.ID,
		"files":       len(doc.Files),
	}).Info("📤 document uploaded")
	return doc, nil
}

// --------------------------------------------------
// Worker step
// --------------------------------------------------

// ProcessOne claims and analyzes one waiting document. It reports whether a
// document was claimed. Analysis failures mark the document FAILED and are
// not returned; only repository errors are.
func (s *Service) ProcessOne(ctx context.Context) (bool, error) {
	doc, err := s.repo.ClaimNext(ctx)
	if err != nil {
		return false, err
	}
	if doc == nil {
		return false, nil
	}

	logger := log.WithField("document_id", doc.ID)
	logger.Info("⚙️ processing document")

	pages := make([]ocr.Page, 0, len(doc.Files))
	for _, f := range doc.Files {
		data, err := s.storage.Download(ctx, f.Key)
		if err != nil {
			logger.WithError(err).WithField("key", f.Key).Error("❌ download failed")
			return true, s.repo.MarkFailed(ctx, doc.ID, "download failed: "+err.Error())
		}
		pages = append(pages, ocr.Page{Name: f.Name, ContentType: f.ContentType, Data: data})
	}

	ctx = ocr.WithRequestMeta(ctx, ocr.RequestMeta{DocumentID: doc.ID})
	report, err := s.pipeline.Analyze(ctx, pages, doc.Hints)
	if err != nil {
		logger.WithError(err).Error("❌ analysis failed")
		return true, s.repo.MarkFailed(ctx, doc.ID, err.Error())
	}

	if err := s.repo.MarkAnalyzed(ctx, doc.ID, report); err != nil {
		return true, err
	}
	logger.Info("✅ document analyzed")
	return true, nil
}

// RunWorker processes documents until ctx is done, draining the queue
// between ticks.
func (s *Service) RunWorker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if r, ok := s.repo.(staleReleaser); ok {
		if n, err := r.ReleaseStale(ctx); err != nil {
			log.WithError(err).Warn("⚠️ could not release stale documents")
		} else if n > 0 {
			log.WithField("documents", n).Info("♻️ released stale documents")
		}
	}

	log.WithField("interval", interval.String()).Info("🧠 document worker started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for {
			claimed, err := s.ProcessOne(ctx)
			if err != nil {
				log.WithError(err).Warn("⚠️ worker step failed")
				break
			}
			if !claimed || ctx.Err() != nil {
				break
			}
		}

		select {
		case <-ctx.Done():
			log.Info("🛑 document worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// --------------------------------------------------
// Reads (owner scoped; empty owner means any)
// --------------------------------------------------
func (s *Service) Get(ctx context.Context, id, ownerID string) (*Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ownerID != "" && doc.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (s *Service) Status(ctx context.Context, id, ownerID string) (*StatusView, error) {
	doc, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	return &StatusView{
		ID:        doc.ID,
		Status:    doc.Status,
		Error:     doc.Error,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// --------------------------------------------------
// Retry FAILED document
// --------------------------------------------------
func (s *Service) Retry(ctx context.Context, id, ownerID string) error {
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.repo.Retry(ctx, id); err != nil {
		return err
	}
	log.WithField("document_id", id).Info("🔁 document queued for retry")
	return nil
}
