// Package intent classifies free-text HR questions into a QueryIntent.
package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hr-query-engine/internal/models"
)

var (
	// ErrIntentDetection means the query cannot be classified at all.
	ErrIntentDetection = errors.New("INTENT_DETECTION_FAILED")
	// ErrIntentParse means the completion service answered with an unusable payload.
	ErrIntentParse = errors.New("INTENT_PARSE_FAILED")
	// ErrIntentUnavailable means the completion service could not be reached in time.
	ErrIntentUnavailable = errors.New("INTENT_API_UNAVAILABLE")
)

const (
	StrategyLLM     = "llm"
	StrategyKeyword = "keyword"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Classifier turns raw query text into a QueryIntent.
type Classifier interface {
	Classify(ctx context.Context, query string) (*models.QueryIntent, error)
}

// ChainClassifier tries the completion-backed classifier first and degrades to
// keyword matching on any failure.
type ChainClassifier struct {
	primary  Classifier
	fallback *KeywordClassifier
	logger   Logger
}

// NewChainClassifier builds a chain; primary may be nil when no completion service is configured.
func NewChainClassifier(primary Classifier, fallback *KeywordClassifier, log Logger) *ChainClassifier {
	return &ChainClassifier{
		primary:  primary,
		fallback: fallback,
		logger: log.With(map[string]interface{}{
			"component": "intent-classifier",
		}),
	}
}

func (c *ChainClassifier) Classify(ctx context.Context, query string) (*models.QueryIntent, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrIntentDetection)
	}

	if c.primary != nil {
		intent, err := c.primary.Classify(ctx, query)
		if err == nil {
			return intent, nil
		}
		c.logger.Warn("primary classifier failed, using keyword fallback", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return c.fallback.Classify(ctx, query)
}

// Fallback exposes the deterministic classifier.
func (c *ChainClassifier) Fallback() *KeywordClassifier {
	return c.fallback
}
