// Package llm asks a language model for a structured analysis of a medical
// document and decodes its JSON answer.
package llm

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"medj/internal/labs"
)

var log = logrus.WithField("component", "llm")

var (
	ErrEmptyText     = errors.New("llm: empty document text")
	ErrEmptyResponse = errors.New("llm: empty response")
	ErrInvalidJSON   = errors.New("llm: response is not a JSON object")
)

// Client returns the raw JSON analysis of text.
type Client interface {
	Analyze(ctx context.Context, text string, hints labs.Hints) (string, error)
}
