package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxServiceResponse caps how much of a service reply is read.
const maxServiceResponse = 8 << 20

// ServiceProvider posts files to a network OCR service as multipart/form-data
// on <BaseURL>/ocr and reads the recognised text from the JSON reply.
type ServiceProvider struct {
	BaseURL string
	Token   string
	client  *http.Client
}

func NewServiceProvider(baseURL, token string, timeout time.Duration) *ServiceProvider {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ServiceProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *ServiceProvider) Name() string { return "ocr_service" }

// serviceResponse accepts both reply shapes the service has used:
// {"ocr_text": "...", "source": "..."} and {"data": {"full_text": "..."}}.
type serviceResponse struct {
	OCRText string `json:"ocr_text"`
	Source  string `json:"source"`
	Error   string `json:"error"`
	Data    struct {
		FullText string `json:"full_text"`
	} `json:"data"`
}

func (c *ServiceProvider) Extract(ctx context.Context, page Page) (string, error) {
	if c.BaseURL == "" {
		return "", fmt.Errorf("ocr service url not configured")
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	name := page.Name
	if name == "" {
		name = "upload.bin"
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	if _, err := fw.Write(page.Data); err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	if h := HintsFromContext(ctx); h.Languages != "" {
		_ = mw.WriteField("lang", h.Languages)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/ocr", body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	meta := RequestMetaFromContext(ctx)
	if meta.DocumentID != "" {
		req.Header.Set("X-Document-ID", meta.DocumentID)
	}
	if meta.PageNumber != 0 {
		req.Header.Set("X-Page", strconv.Itoa(meta.PageNumber))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr service request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxServiceResponse))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr service returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var out serviceResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to parse ocr service response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ocr service: %s", out.Error)
	}

	text := out.OCRText
	if text == "" {
		text = out.Data.FullText
	}
	if out.Source != "" {
		log.WithField("upstream", out.Source).Debug("ocr service engine")
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
