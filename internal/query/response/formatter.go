// Package response turns query results into natural-language answers.
package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"hr-query-engine/internal/common/llm"
	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/entities"
)

var ErrResponseGeneration = errors.New("RESPONSE_GENERATION_FAILED")

const (
	StrategyLLM      = "llm"
	StrategyTemplate = "template"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Config struct {
	MaxTokens   int
	Temperature float64
	SampleRows  int
	Timeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxTokens:   400,
		Temperature: 0.3,
		SampleRows:  5,
		Timeout:     15 * time.Second,
	}
}

// Formatter writes the answer text. The completer is optional; without it,
// or when it fails, the intent templates are used.
type Formatter struct {
	completer llm.Completer
	library   *entities.Library
	config    Config
	logger    Logger
}

func NewFormatter(completer llm.Completer, lib *entities.Library, config Config, log Logger) *Formatter {
	d := DefaultConfig()
	if config.MaxTokens <= 0 {
		config.MaxTokens = d.MaxTokens
	}
	if config.Temperature <= 0 {
		config.Temperature = d.Temperature
	}
	if config.SampleRows <= 0 {
		config.SampleRows = d.SampleRows
	}
	if config.Timeout <= 0 {
		config.Timeout = d.Timeout
	}
	if lib == nil {
		lib = entities.Default()
	}
	return &Formatter{
		completer: completer,
		library:   lib,
		config:    config,
		logger: log.With(map[string]interface{}{
			"component": "response-formatter",
		}),
	}
}

// Format returns the answer and the strategy that produced it. It never fails.
func (f *Formatter) Format(ctx context.Context, query string, intent *models.QueryIntent, result *models.QueryResult) (string, string) {
	if f.completer != nil && !isEmpty(result) {
		text, err := f.generate(ctx, query, intent, result)
		if err == nil {
			return text, StrategyLLM
		}
		f.logger.Warn("llm response failed, using template", map[string]interface{}{
			"intent": intent.QueryType,
			"error":  err.Error(),
		})
	}
	return f.Template(query, intent, result), StrategyTemplate
}

func (f *Formatter) generate(ctx context.Context, query string, intent *models.QueryIntent, result *models.QueryResult) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	text, err := f.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt(intent.QueryType),
		UserPrompt:   f.userPrompt(query, intent, result),
		MaxTokens:    f.config.MaxTokens,
		Temperature:  f.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrResponseGeneration, err)
	}

	text = strings.TrimSpace(text)
	if text == "" || errorFlagged(text) {
		return "", fmt.Errorf("%w: unusable completion", ErrResponseGeneration)
	}

	f.logger.Info("llm response generated", map[string]interface{}{
		"intent": intent.QueryType,
		"chars":  len(text),
	})
	return text, nil
}

func systemPrompt(qt models.QueryType) string {
	var parts []string
	parts = append(parts, "You are an HR analytics assistant. Answer the user's question using ONLY the provided employee data.")
	parts = append(parts, "\nGuidelines:")
	parts = append(parts, "- Be concise, factual and professional")
	parts = append(parts, "- Give exact numbers when they are available")
	parts = append(parts, "- Use a numbered list when naming several employees")
	parts = append(parts, "- If the data does not answer the question, say so clearly")
	parts = append(parts, "- Never invent employees, figures or departments")

	switch {
	case qt.IsAggregation():
		parts = append(parts, "- Explain which criteria were used for the figures")
	case qt == models.QueryTypeRanking:
		parts = append(parts, "- Keep the ranking order exactly as given")
	}
	return strings.Join(parts, "\n")
}

func (f *Formatter) userPrompt(query string, intent *models.QueryIntent, result *models.QueryResult) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Query: %s", query))
	parts = append(parts, fmt.Sprintf("Intent: %s", intent.QueryType))
	parts = append(parts, fmt.Sprintf("Matching employees: %d", result.Count))

	if len(result.Aggregates) > 0 {
		agg, _ := json.Marshal(result.Aggregates)
		parts = append(parts, "\nAggregates:")
		parts = append(parts, string(agg))
	}

	if len(result.Rows) > 0 {
		n := min(len(result.Rows), f.config.SampleRows)
		sample, _ := json.MarshalIndent(result.Rows[:n], "", "  ")
		parts = append(parts, fmt.Sprintf("\nSample rows (%d of %d):", n, len(result.Rows)))
		parts = append(parts, string(sample))
	}

	parts = append(parts, "\nAnswer:")
	return strings.Join(parts, "\n")
}

func errorFlagged(text string) bool {
	lower := strings.ToLower(text)
	return strings.HasPrefix(lower, "error:") || strings.Contains(lower, "[error]")
}

func isEmpty(result *models.QueryResult) bool {
	return result == nil || (result.Count == 0 && len(result.Rows) == 0)
}
