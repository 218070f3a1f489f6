//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractProvider runs libtesseract in-process through gosseract.
type TesseractProvider struct {
	Languages string
}

func NewTesseractProvider(languages string) *TesseractProvider {
	if languages == "" {
		languages = "bul+eng"
	}
	return &TesseractProvider{Languages: languages}
}

func (p *TesseractProvider) Name() string { return "tesseract" }

func (p *TesseractProvider) Extract(ctx context.Context, page Page) (string, error) {
	if !page.IsImage() {
		return "", ErrUnsupported
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// gosseract clients are not safe for concurrent use; one per call
	client := gosseract.NewClient()
	defer client.Close()

	langs := p.Languages
	if h := HintsFromContext(ctx); h.Languages != "" {
		langs = h.Languages
	}
	if err := client.SetLanguage(strings.Split(langs, "+")...); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(page.Data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}
