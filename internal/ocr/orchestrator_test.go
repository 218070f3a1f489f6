package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name  string
	text  string
	err   error
	calls int
	wait  time.Duration
	panic bool
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Extract(ctx context.Context, page Page) (string, error) {
	f.calls++
	if f.panic {
		panic("boom")
	}
	if f.wait > 0 {
		select {
		case <-time.After(f.wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func imagePage(name string) Page {
	return Page{Name: name, ContentType: ContentTypeJPEG, Data: []byte{0xFF, 0xD8, 0xFF}}
}

func TestExtractFirstProviderWins(t *testing.T) {
	primary := &fakeProvider{name: "vision", text: "Глюкоза 5.1 mmol/L"}
	fallback := &fakeProvider{name: "ocr_service", text: "other"}
	o := NewOrchestrator(time.Second, primary, fallback)

	res := o.Extract(context.Background(), imagePage("a.jpg"))
	assert.Equal(t, "Глюкоза 5.1 mmol/L", res.Text)
	assert.Equal(t, "vision", res.Source)
	assert.False(t, res.Failed())
	assert.Zero(t, fallback.calls)
}

func TestExtractFallsThroughOnErrorAndEmptyText(t *testing.T) {
	failing := &fakeProvider{name: "vision", err: errors.New("quota")}
	empty := &fakeProvider{name: "pdf_text", text: "  \n "}
	unsupported := &fakeProvider{name: "tesseract", err: ErrUnsupported}
	service := &fakeProvider{name: "ocr_service", text: "HGB 120"}
	o := NewOrchestrator(time.Second, failing, nil, empty, unsupported, service)

	assert.Equal(t, []string{"vision", "pdf_text", "tesseract", "ocr_service"}, o.Providers())

	res := o.Extract(context.Background(), imagePage("a.jpg"))
	assert.Equal(t, "HGB 120", res.Text)
	assert.Equal(t, "ocr_service", res.Source)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, service.calls)
}

func TestExtractTotalFailure(t *testing.T) {
	slow := &fakeProvider{name: "ocr_service", text: "late", wait: time.Second}
	broken := &fakeProvider{name: "vision", panic: true}
	o := NewOrchestrator(20*time.Millisecond, broken, slow)

	res := o.Extract(context.Background(), imagePage("a.jpg"))
	assert.True(t, res.Failed())
	assert.Equal(t, SourceFailed, res.Source)
	assert.Empty(t, res.Text)
	assert.Equal(t, 1, slow.calls)
}

func TestExtractWithoutProviders(t *testing.T) {
	res := NewOrchestrator(0).Extract(context.Background(), imagePage("a.jpg"))
	assert.True(t, res.Failed())
}

func TestExtractAllMergesPages(t *testing.T) {
	pages := map[string]string{
		"p1.jpg": "Глюкоза 5.1 mmol/L\nHGB 120 g/L",
		"p2.jpg": "Глюкоза 5.1 mmol/L\nCRP 3 mg/L",
	}
	p := &perPageProvider{name: "vision", texts: pages}
	o := NewOrchestrator(time.Second, p)

	res := o.ExtractAll(context.Background(), []Page{imagePage("p1.jpg"), imagePage("p2.jpg"), imagePage("p3.jpg")})
	assert.Equal(t, "Глюкоза 5.1 mmol/L\nHGB 120 g/L\nCRP 3 mg/L", res.Text)
	assert.Equal(t, "vision", res.Source)
	assert.Equal(t, []int{1, 2, 3}, p.pageNumbers)
}

func TestExtractAllFailed(t *testing.T) {
	o := NewOrchestrator(time.Second, &fakeProvider{name: "vision", err: errors.New("down")})
	res := o.ExtractAll(context.Background(), []Page{imagePage("a.jpg")})
	assert.True(t, res.Failed())
}

type perPageProvider struct {
	name        string
	texts       map[string]string
	pageNumbers []int
}

func (p *perPageProvider) Name() string { return p.name }

func (p *perPageProvider) Extract(ctx context.Context, page Page) (string, error) {
	p.pageNumbers = append(p.pageNumbers, RequestMetaFromContext(ctx).PageNumber)
	return p.texts[page.Name], nil
}

func TestMergeTexts(t *testing.T) {
	a := "Глюкоза 5.1 mmol/L\nЛаборатория А"
	b := "Лаборатория Б\nГлюкоза 5.1 mmol/L\n"
	assert.Equal(t, "Глюкоза 5.1 mmol/L\nЛаборатория А\nЛаборатория Б", MergeTexts(a, b))
}

func TestMergeTextsIsCaseSensitiveAndSanitizes(t *testing.T) {
	out := MergeTexts("HGB 120\r\nhgb 120", "Ref 3,9–6,1\nPage 2 of 3")
	assert.Equal(t, "HGB 120\nhgb 120\nRef 3,9-6,1", out)
}

func TestResultJSON(t *testing.T) {
	raw, err := json.Marshal(Result{Text: "x", Source: "vision", Duration: 1500 * time.Millisecond})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"x","source":"vision","duration_ms":1500}`, string(raw))
}
