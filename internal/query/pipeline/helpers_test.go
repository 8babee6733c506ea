package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/querycontext"
)

// TestLogger implements the Logger interface for testing
type TestLogger struct {
	t *testing.T
}

func NewTestLogger(t *testing.T) *TestLogger { return &TestLogger{t: t} }

func (l *TestLogger) Info(msg string, fields map[string]interface{})  { l.t.Logf("INFO: %s %v", msg, fields) }
func (l *TestLogger) Warn(msg string, fields map[string]interface{})  { l.t.Logf("WARN: %s %v", msg, fields) }
func (l *TestLogger) Error(msg string, fields map[string]interface{}) { l.t.Logf("ERROR: %s %v", msg, fields) }
func (l *TestLogger) With(fields map[string]interface{}) Logger       { return l }

// ctxLogger adapts the test logger to the querycontext package.
type ctxLogger struct{ *TestLogger }

func (l ctxLogger) With(fields map[string]interface{}) querycontext.Logger { return l }

func buildContext(t *testing.T, qt models.QueryType, ents models.Entities) *querycontext.QueryContext {
	t.Helper()
	intent, err := models.NewQueryIntent(qt, models.DataSourceAggregationStore, 0.8, ents, "test")
	require.NoError(t, err)
	b := querycontext.NewBuilder(querycontext.DefaultPolicy(), ctxLogger{NewTestLogger(t)})
	return b.Build(intent)
}

func newSynth(t *testing.T) *Synthesizer {
	return NewSynthesizer(Config{}, NewTestLogger(t))
}
