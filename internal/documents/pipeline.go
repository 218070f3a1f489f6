package documents

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"medj/internal/anonymize"
	"medj/internal/labs"
	"medj/internal/llm"
	"medj/internal/ocr"
)

// DefaultLLMTimeout bounds the enrichment call.
const DefaultLLMTimeout = 90 * time.Second

// maxPromptBytes caps the document text sent to the LLM. Local extraction
// always sees the full text.
const maxPromptBytes = 60000

// snapshotter is a resolver that can hand out a frozen view of itself,
// like indicators.Store.
type snapshotter interface {
	Snapshot() labs.Resolver
}

// Pipeline turns document pages into a Report.
type Pipeline struct {
	ocr        *ocr.Orchestrator
	anonymizer *anonymize.Anonymizer
	llm        llm.Client
	resolver   labs.Resolver
	llmTimeout time.Duration
}

// NewPipeline wires the stages. client may be nil to run without LLM
// enrichment.
func NewPipeline(o *ocr.Orchestrator, a *anonymize.Anonymizer, client llm.Client, resolver labs.Resolver) *Pipeline {
	return &Pipeline{
		ocr:        o,
		anonymizer: a,
		llm:        client,
		resolver:   resolver,
		llmTimeout: DefaultLLMTimeout,
	}
}

// WithLLMTimeout overrides DefaultLLMTimeout.
func (p *Pipeline) WithLLMTimeout(d time.Duration) *Pipeline {
	if d > 0 {
		p.llmTimeout = d
	}
	return p
}

// Analyze runs OCR, sanitization, anonymization, optional enrichment and
// the merge. Extraction and the summary only ever see anonymized text. It
// fails only with ErrNoText, when no OCR provider produced anything; a
// failing LLM is recorded in the report and skipped.
func (p *Pipeline) Analyze(ctx context.Context, pages []ocr.Page, hints labs.Hints) (*Report, error) {
	started := time.Now()
	resolver := p.resolver
	if s, ok := resolver.(snapshotter); ok {
		// one dictionary for the whole document, even if a reload lands mid-request
		resolver = s.Snapshot()
	}
	logger := log.WithFields(logrus.Fields{"pages": len(pages)})
	if id := ocr.RequestMetaFromContext(ctx).DocumentID; id != "" {
		logger = logger.WithField("document_id", id)
	}

	ocrCtx := ocr.WithHints(ctx, ocr.Hints{DocType: hints.DocType})
	res := p.ocr.ExtractAll(ocrCtx, pages)
	if res.Failed() {
		return nil, ErrNoText
	}

	text := labs.Sanitize(res.Text)
	redacted, counts := p.anonymizer.AnonymizeCount(text)

	report := &Report{OCRSource: res.Source, Redactions: counts}

	var enrich *labs.Enrichment
	if p.llm != nil {
		llmCtx, cancel := context.WithTimeout(ctx, p.llmTimeout)
		e, err := llm.Enrich(llmCtx, p.llm, ocr.TruncateForPrompt(redacted, maxPromptBytes), hints)
		cancel()
		if err != nil {
			logger.WithError(err).Warn("⚠️ LLM enrichment failed, using local extraction")
			report.LLMError = err.Error()
		} else {
			enrich = e
			report.LLMUsed = true
		}
	}

	merger := labs.NewMerger(resolver)
	merger.Redact = p.anonymizer.Anonymize
	report.Summary, report.Result = merger.Merge(enrich, redacted, hints)
	if report.Result.EventDate == "" {
		// the anonymizer masks dates, so the fallback scans the clean text
		if d, ok := labs.FindEventDate(text); ok {
			report.Result.EventDate = d
		}
	}
	report.DurationMS = time.Since(started).Milliseconds()

	logger.WithFields(logrus.Fields{
		"ocr_source": report.OCRSource,
		"llm_used":   report.LLMUsed,
		"rows":       len(report.Result.BloodTestResults),
		"abnormal":   len(report.Result.AbnormalFindings),
	}).Info("🧪 document analyzed")
	return report, nil
}
