// Package ocr turns uploaded document files into raw text by trying a list
// of OCR providers in order.
package ocr

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "ocr")

var (
	// ErrUnsupported is returned by a provider that cannot read the page type.
	ErrUnsupported = errors.New("ocr: unsupported content type")
	// ErrEmptyText is returned when a provider ran but recognised nothing.
	ErrEmptyText = errors.New("ocr: empty text")
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
)

// Page is one uploaded file.
type Page struct {
	Name        string
	ContentType string
	Data        []byte
}

// IsPDF reports whether the page holds a PDF document.
func (p Page) IsPDF() bool {
	return p.ContentType == ContentTypePDF || strings.HasPrefix(string(p.Data), "%PDF")
}

// IsImage reports whether the page holds a raster image.
func (p Page) IsImage() bool {
	return strings.HasPrefix(p.ContentType, "image/")
}

// DetectContentType guesses the MIME type from the file name, falling back
// to the leading bytes.
func DetectContentType(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return ContentTypePDF
	case ".jpg", ".jpeg":
		return ContentTypeJPEG
	case ".png":
		return ContentTypePNG
	}
	switch {
	case strings.HasPrefix(string(data), "%PDF"):
		return ContentTypePDF
	case len(data) > 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return ContentTypeJPEG
	case strings.HasPrefix(string(data), "\x89PNG"):
		return ContentTypePNG
	}
	return "application/octet-stream"
}

// Provider recognises the text of one page.
type Provider interface {
	Name() string
	Extract(ctx context.Context, page Page) (string, error)
}

// Hints steer providers that accept them (language, expected document kind).
type Hints struct {
	Languages string
	DocType   string
}

type hintsKey struct{}

// WithHints attaches hints to ctx for providers that read them.
func WithHints(ctx context.Context, h Hints) context.Context {
	return context.WithValue(ctx, hintsKey{}, h)
}

// HintsFromContext returns the hints attached by WithHints.
func HintsFromContext(ctx context.Context) Hints {
	h, _ := ctx.Value(hintsKey{}).(Hints)
	return h
}
