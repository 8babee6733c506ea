package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hr-query-engine/internal/common/llm"
	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/entities"
)

// LLMConfig bounds the classification call.
type LLMConfig struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

func DefaultLLMConfig() LLMConfig {
	return LLMConfig{MaxTokens: 500, Temperature: 0.1, Timeout: 15 * time.Second}
}

// LLMClassifier asks the completion service for a structured classification.
type LLMClassifier struct {
	completer llm.Completer
	library   *entities.Library
	config    LLMConfig
	logger    Logger
}

func NewLLMClassifier(completer llm.Completer, library *entities.Library, config LLMConfig, log Logger) *LLMClassifier {
	return &LLMClassifier{
		completer: completer,
		library:   library,
		config:    config,
		logger: log.With(map[string]interface{}{
			"component": "llm-classifier",
		}),
	}
}

func (c *LLMClassifier) Classify(ctx context.Context, query string) (*models.QueryIntent, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrIntentDetection)
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	text, err := c.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: c.systemPrompt(),
		UserPrompt:   fmt.Sprintf("Query: %s", query),
		MaxTokens:    c.config.MaxTokens,
		Temperature:  c.config.Temperature,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: timeout: %v", ErrIntentUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrIntentUnavailable, err)
	}

	payload, err := ParsePayload(text)
	if err != nil {
		c.logger.Warn("could not parse classification payload", map[string]interface{}{
			"error":    err.Error(),
			"response": truncate(text, 200),
		})
		return nil, err
	}

	intent, err := payload.toIntent(c.library, query)
	if err != nil {
		return nil, err
	}

	c.logger.Info("intent parsed successfully", map[string]interface{}{
		"intent":     intent.QueryType,
		"confidence": intent.Confidence,
		"dataSource": intent.DataSource,
	})

	return intent, nil
}

func (c *LLMClassifier) systemPrompt() string {
	types := make([]string, 0, len(models.QueryTypes()))
	for _, qt := range models.QueryTypes() {
		types = append(types, string(qt))
	}

	parts := []string{
		"You classify questions about an HR employee dataset.",
		"Respond with a single JSON object and nothing else, using this schema:",
		`{"query_type": string, "data_source": string, "confidence": number, "entities": {` +
			`"departments": [string], "roles": [string], "skills": [string], "locations": [string], ` +
			`"experience_range": {"min": number, "max": number}, "performance_range": {"min": number, "max": number}, ` +
			`"age_range": {"min": number, "max": number}, "leave_threshold": {"min": number, "max": number}, ` +
			`"leave_pattern": string, "performance_level": string, "engagement_level": string, ` +
			`"aggregation_type": string, "aggregation_field": string, "group_by": string, ` +
			`"sort_by": string, "sort_order": string, "limit": integer, "fields": [string]}}`,
		"query_type must be one of: " + strings.Join(types, ", ") + ".",
		"data_source must be one of: aggregation_store, ranked_search, hybrid.",
		"aggregation_type must be one of: count, avg, max, min, sum.",
		"leave_pattern must be one of: maximum, minimum, high. performance_level and engagement_level must be high or low.",
		"sort_order must be asc or desc. Omit entities that are not present.",
		"Known departments: " + strings.Join(c.library.Departments(), ", ") + ".",
		"Known roles: " + strings.Join(c.library.Roles(), ", ") + ".",
		"Known skills: " + strings.Join(c.library.Skills(), ", ") + ".",
		"Known locations: " + strings.Join(c.library.Locations(), ", ") + ".",
	}
	return strings.Join(parts, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
