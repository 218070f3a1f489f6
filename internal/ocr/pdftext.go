package ocr

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// minTextLayerRunes separates real text layers from the few stray glyphs a
// scanner sometimes embeds.
const minTextLayerRunes = 40

// PDFTextProvider reads the embedded text layer of digitally produced PDFs.
// Scanned PDFs have no usable layer and fall through to the next provider.
type PDFTextProvider struct{}

func NewPDFTextProvider() *PDFTextProvider {
	return &PDFTextProvider{}
}

func (p *PDFTextProvider) Name() string { return "pdf_text" }

func (p *PDFTextProvider) Extract(ctx context.Context, page Page) (text string, err error) {
	if !page.IsPDF() {
		return "", ErrUnsupported
	}
	defer func() {
		// the parser panics on some malformed xref tables
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf text layer: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(page.Data), int64(len(page.Data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		pg := r.Page(i)
		if pg.V.IsNull() {
			continue
		}
		t, err := pg.GetPlainText(nil)
		if err != nil {
			log.WithError(err).WithField("page", i).Debug("pdf page has no readable text")
			continue
		}
		pages = append(pages, t)
	}

	text = strings.Join(pages, "\n"+PageBreak+"\n")
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minTextLayerRunes {
		return "", ErrEmptyText
	}
	return text, nil
}
