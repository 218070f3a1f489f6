//go:build !gosseract

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// TesseractProvider shells out to the tesseract CLI. Build with
// -tags gosseract to link libtesseract instead.
type TesseractProvider struct {
	Binary    string
	Languages string
}

func NewTesseractProvider(languages string) *TesseractProvider {
	if languages == "" {
		languages = "bul+eng"
	}
	return &TesseractProvider{Binary: "tesseract", Languages: languages}
}

func (p *TesseractProvider) Name() string { return "tesseract" }

func (p *TesseractProvider) Extract(ctx context.Context, page Page) (string, error) {
	if !page.IsImage() {
		return "", ErrUnsupported
	}
	if _, err := exec.LookPath(p.Binary); err != nil {
		return "", fmt.Errorf("tesseract not installed: %w", err)
	}

	ext := filepath.Ext(page.Name)
	if ext == "" {
		ext = ".img"
	}
	tmpFile, err := os.CreateTemp("", "medj-ocr-*"+ext)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(page.Data); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to write temp image: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	langs := p.Languages
	if h := HintsFromContext(ctx); h.Languages != "" {
		langs = h.Languages
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Binary, tmpFile.Name(), "stdout", "-l", langs)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}
