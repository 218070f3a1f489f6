package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"medj/internal/labs"
)

// LangChainConfig selects an OpenAI-compatible or Ollama chat model.
type LangChainConfig struct {
	Provider  string // "openai" or "ollama"
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
}

// LangChainClient analyses documents through any langchaingo chat model.
type LangChainClient struct {
	provider  string
	model     string
	llm       llms.Model
	maxTokens int
}

func NewLangChainClient(cfg LangChainConfig) (*LangChainClient, error) {
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
		opts := []ollama.Option{ollama.WithModel(cfg.Model), ollama.WithFormat("json")}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	return NewLangChainClientWithModel(cfg, model), nil
}

// NewLangChainClientWithModel wraps an existing model.
func NewLangChainClientWithModel(cfg LangChainConfig, model llms.Model) *LangChainClient {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 3000
	}
	return &LangChainClient{
		provider:  strings.ToLower(cfg.Provider),
		model:     cfg.Model,
		llm:       model,
		maxTokens: cfg.MaxTokens,
	}
}

func (c *LangChainClient) Analyze(ctx context.Context, text string, hints labs.Hints) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	started := time.Now()
	resp, err := c.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt(hints)),
		llms.TextParts(schema.ChatMessageTypeHuman, "Document text for analysis:\n\n"+text),
	},
		llms.WithMaxTokens(c.maxTokens),
		llms.WithTemperature(0.2),
		llms.WithJSONMode(),
	)
	if err != nil {
		return "", fmt.Errorf("%s model: %w", c.provider, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	output := extractJSON(resp.Choices[0].Content)
	if output == "" {
		return "", ErrInvalidJSON
	}

	log.WithFields(logrus.Fields{
		"provider": c.provider,
		"model":    c.model,
		"chars":    len(output),
		"took":     time.Since(started).String(),
	}).Debug("🧠 llm analysis received")
	return output, nil
}
