package ocr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestServiceProvider(t *testing.T) {
	var gotFile, gotLang, gotDoc string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ocr", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		gotDoc = r.Header.Get("X-Document-ID")

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		data, _ := io.ReadAll(f)
		gotFile = hdr.Filename + ":" + string(data)
		gotLang = r.FormValue("lang")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ocr_text":"HGB 120 g/L","source":"vision"}`))
	}))
	defer srv.Close()

	p := NewServiceProvider(srv.URL+"/", "secret", time.Second)
	ctx := WithHints(context.Background(), Hints{Languages: "bul"})
	ctx = WithRequestMeta(ctx, RequestMeta{DocumentID: "doc-1"})

	text, err := p.Extract(ctx, Page{Name: "scan.jpg", ContentType: ContentTypeJPEG, Data: []byte("img")})
	require.NoError(t, err)
	assert.Equal(t, "HGB 120 g/L", text)
	assert.Equal(t, "scan.jpg:img", gotFile)
	assert.Equal(t, "bul", gotLang)
	assert.Equal(t, "doc-1", gotDoc)
}

func TestServiceProviderLegacyShapeAndErrors(t *testing.T) {
	status := http.StatusOK
	body := `{"summary":"OCR ok","data":{"full_text":"Глюкоза 5.1"}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	p := NewServiceProvider(srv.URL, "", time.Second)
	page := Page{Name: "a.png", ContentType: ContentTypePNG, Data: []byte("x")}

	text, err := p.Extract(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, "Глюкоза 5.1", text)

	status, body = http.StatusInternalServerError, `{"error":"vision down"}`
	_, err = p.Extract(context.Background(), page)
	assert.ErrorContains(t, err, "status 500")

	status, body = http.StatusOK, `not json`
	_, err = p.Extract(context.Background(), page)
	assert.Error(t, err)

	_, err = NewServiceProvider("", "", 0).Extract(context.Background(), page)
	assert.Error(t, err)
}

type fakeModel struct {
	messages []llms.MessageContent
	reply    string
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return m.reply, nil
}

func TestVisionProvider(t *testing.T) {
	model := &fakeModel{reply: "```text\nHGB 120 g/L\n```"}
	p := NewVisionProviderWithModel(VisionConfig{Provider: "ollama", Model: "llava"}, model)

	text, err := p.Extract(context.Background(), Page{Name: "a.png", ContentType: ContentTypePNG, Data: []byte("img")})
	require.NoError(t, err)
	assert.Equal(t, "HGB 120 g/L", text)

	require.Len(t, model.messages, 1)
	parts := model.messages[0].Parts
	require.Len(t, parts, 2)
	bin, ok := parts[0].(llms.BinaryContent)
	require.True(t, ok)
	assert.Equal(t, ContentTypePNG, bin.MIMEType)

	_, err = p.Extract(context.Background(), Page{Name: "a.pdf", ContentType: ContentTypePDF, Data: []byte("%PDF")})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestVisionProviderOpenAIUsesDataURL(t *testing.T) {
	model := &fakeModel{reply: "x"}
	p := NewVisionProviderWithModel(VisionConfig{Provider: "OpenAI"}, model)
	_, err := p.Extract(context.Background(), Page{ContentType: ContentTypeJPEG, Data: []byte("img")})
	require.NoError(t, err)

	img, ok := model.messages[0].Parts[0].(llms.ImageURLContent)
	require.True(t, ok)
	assert.Equal(t, "data:image/jpeg;base64,aW1n", img.URL)
}

func TestNewVisionProviderRejectsUnknownBackend(t *testing.T) {
	_, err := NewVisionProvider(VisionConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestPDFTextProvider(t *testing.T) {
	p := NewPDFTextProvider()

	_, err := p.Extract(context.Background(), imagePage("a.jpg"))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = p.Extract(context.Background(), Page{Name: "bad.pdf", ContentType: ContentTypePDF, Data: []byte("%PDF-1.4 garbage")})
	assert.Error(t, err)
}

func TestTesseractSkipsPDF(t *testing.T) {
	_, err := NewTesseractProvider("").Extract(context.Background(), Page{ContentType: ContentTypePDF})
	assert.ErrorIs(t, err, ErrUnsupported)
}
