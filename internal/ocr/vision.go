package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

const defaultVisionPrompt = `Transcribe all text in this medical document image exactly as printed.
Keep the original language (Bulgarian or English), line breaks and table rows.
Put each lab result on its own line: name, value, unit, reference range.
Do not translate, summarise or add commentary.`

// VisionConfig selects and configures the vision model.
type VisionConfig struct {
	Provider    string // "openai" or "ollama"
	Model       string
	APIKey      string
	BaseURL     string
	Prompt      string
	MaxTokens   int
	Temperature *float64
}

// VisionProvider recognises images with a multimodal LLM.
type VisionProvider struct {
	provider    string
	model       string
	llm         llms.Model
	prompt      string
	maxTokens   int
	temperature *float64
}

// NewVisionProvider builds the langchaingo client for cfg.
func NewVisionProvider(cfg VisionConfig) (*VisionProvider, error) {
	logger := log.WithFields(logrus.Fields{
		"provider": cfg.Provider,
		"model":    cfg.Model,
	})

	var (
		model llms.Model
		err   error
	)
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		opts := []openai.Option{
			openai.WithModel(cfg.Model),
			openai.WithToken(cfg.APIKey),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported vision provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}

	logger.Info("vision OCR provider ready")
	return NewVisionProviderWithModel(cfg, model), nil
}

// NewVisionProviderWithModel wraps an existing model; tests pass a fake.
func NewVisionProviderWithModel(cfg VisionConfig, model llms.Model) *VisionProvider {
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = defaultVisionPrompt
	}
	return &VisionProvider{
		provider:    strings.ToLower(cfg.Provider),
		model:       cfg.Model,
		llm:         model,
		prompt:      prompt,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (p *VisionProvider) Name() string { return "vision" }

func (p *VisionProvider) Extract(ctx context.Context, page Page) (string, error) {
	if !page.IsImage() {
		return "", ErrUnsupported
	}

	var imagePart llms.ContentPart
	if p.provider == "openai" {
		imagePart = llms.ImageURLPart("data:" + page.ContentType + ";base64," + base64.StdEncoding.EncodeToString(page.Data))
	} else {
		imagePart = llms.BinaryPart(page.ContentType, page.Data)
	}

	prompt := p.prompt
	if h := HintsFromContext(ctx); h.DocType != "" {
		prompt += "\nDocument type: " + h.DocType
	}

	var opts []llms.CallOption
	if p.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(p.maxTokens))
	}
	if p.temperature != nil {
		opts = append(opts, llms.WithTemperature(*p.temperature))
	}

	resp, err := p.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{imagePart, llms.TextPart(prompt)},
		},
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("vision model: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyText
	}
	return stripCodeFence(resp.Choices[0].Content), nil
}

// stripCodeFence removes a ``` wrapper some models put around transcripts.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
