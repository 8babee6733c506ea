// Package search adapts ranked text and vector search backends.
package search

import (
	"context"
	"errors"

	"hr-query-engine/internal/models"
)

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout     = errors.New("SEARCH_TIMEOUT")
	ErrInvalidRequest    = errors.New("INVALID_SEARCH_REQUEST")
)

const DefaultTopK = 10

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Request asks for the TopK documents most relevant to Query. Vector is
// optional; Filters narrow the candidates before ranking.
type Request struct {
	Query   string
	Vector  []float32
	TopK    int
	Filters []models.Condition
}

func (r Request) validate() error {
	if r.Query == "" && len(r.Vector) == 0 {
		return ErrInvalidRequest
	}
	return nil
}

func (r Request) topK() int {
	if r.TopK <= 0 {
		return DefaultTopK
	}
	return r.TopK
}

// Document is one ranked hit with its flat field map.
type Document struct {
	ID     string     `json:"id"`
	Score  float64    `json:"score"`
	Fields models.Row `json:"fields"`
}

// Row returns the document fields with the score attached.
func (d Document) Row() models.Row {
	row := d.Fields.Clone()
	if row == nil {
		row = models.Row{}
	}
	if _, ok := row["employee_id"]; !ok && d.ID != "" {
		row["employee_id"] = d.ID
	}
	row["score"] = d.Score
	return row
}

// RankedSearcher returns documents ordered by descending relevance.
type RankedSearcher interface {
	Search(ctx context.Context, req Request) ([]Document, error)
}
