package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"medj/internal/labs"
)

// SourceFailed is the provenance of a result no provider could produce.
const SourceFailed = "failed"

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 60 * time.Second

// Result is the recognised text of a page (or a merged set of pages) and the
// provider that produced it.
type Result struct {
	Text     string        `json:"text"`
	Source   string        `json:"source"`
	Duration time.Duration `json:"-"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Text       string `json:"text"`
		Source     string `json:"source"`
		DurationMS int64  `json:"duration_ms"`
	}{r.Text, r.Source, r.Duration.Milliseconds()})
}

// Failed reports whether no provider produced text.
func (r Result) Failed() bool {
	return r.Source == SourceFailed
}

// Orchestrator tries providers in order, one attempt each.
type Orchestrator struct {
	providers []Provider
	timeout   time.Duration
}

// NewOrchestrator returns an orchestrator over providers. Nil providers are
// skipped. timeout <= 0 selects DefaultTimeout.
func NewOrchestrator(timeout time.Duration, providers ...Provider) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	o := &Orchestrator{timeout: timeout}
	for _, p := range providers {
		if p != nil {
			o.providers = append(o.providers, p)
		}
	}
	return o
}

// Providers lists the configured provider names in order.
func (o *Orchestrator) Providers() []string {
	names := make([]string, 0, len(o.providers))
	for _, p := range o.providers {
		names = append(names, p.Name())
	}
	return names
}

// Extract returns the first non-empty text any provider recognises. It never
// returns an error: total failure yields an empty Result with Source "failed".
func (o *Orchestrator) Extract(ctx context.Context, page Page) Result {
	started := time.Now()
	logger := log.WithField("file", page.Name)

	for _, p := range o.providers {
		if ctx.Err() != nil {
			break
		}
		text, err := o.try(ctx, p, page)
		if err == nil {
			logger.WithFields(logrus.Fields{
				"provider": p.Name(),
				"chars":    len(text),
			}).Info("📄 OCR done")
			return Result{Text: text, Source: p.Name(), Duration: time.Since(started)}
		}
		if errors.Is(err, ErrUnsupported) {
			logger.WithField("provider", p.Name()).Debug("provider skipped")
			continue
		}
		logger.WithError(err).WithField("provider", p.Name()).Warn("⚠️ OCR provider failed, falling back")
	}

	logger.Error("❌ all OCR providers failed")
	return Result{Source: SourceFailed, Duration: time.Since(started)}
}

func (o *Orchestrator) try(ctx context.Context, p Provider, page Page) (text string, err error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	defer func() {
		// one misbehaving provider must not take the request down
		if r := recover(); r != nil {
			text, err = "", errors.New("provider panicked")
		}
	}()

	text, err = p.Extract(ctx, page)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

// ExtractAll runs Extract for every page and merges the texts. The source is
// the distinct provider names joined with "+", or "failed" when every page
// failed.
func (o *Orchestrator) ExtractAll(ctx context.Context, pages []Page) Result {
	started := time.Now()
	var texts, sources []string
	seen := make(map[string]bool)
	for i, page := range pages {
		res := o.Extract(WithRequestMeta(ctx, RequestMeta{FileName: page.Name, PageNumber: i + 1}), page)
		if res.Failed() {
			continue
		}
		texts = append(texts, res.Text)
		if !seen[res.Source] {
			seen[res.Source] = true
			sources = append(sources, res.Source)
		}
	}
	if len(texts) == 0 {
		return Result{Source: SourceFailed, Duration: time.Since(started)}
	}
	return Result{
		Text:     MergeTexts(texts...),
		Source:   strings.Join(sources, "+"),
		Duration: time.Since(started),
	}
}

// MergeTexts sanitizes each text and unions their lines, keeping the first
// occurrence of every line in order. Comparison is case-sensitive on the
// trimmed line; blank lines are dropped.
func MergeTexts(texts ...string) string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range texts {
		for _, line := range strings.Split(labs.Sanitize(CleanPageText(t)), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || seen[line] {
				continue
			}
			seen[line] = true
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
