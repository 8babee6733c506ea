package processhrquery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hr-query-engine/internal/common/errors"
	"hr-query-engine/internal/models"
)

type TestLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *TestLogger) Info(msg string, fields map[string]interface{})  { l.add(msg) }
func (l *TestLogger) Warn(msg string, fields map[string]interface{})  { l.add(msg) }
func (l *TestLogger) Error(msg string, fields map[string]interface{}) { l.add(msg) }
func (l *TestLogger) With(fields map[string]interface{}) Logger       { return l }

func (l *TestLogger) add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, msg)
}

type fakeProcessor struct {
	env     *models.Envelope
	text    string
	filters map[string]interface{}
}

func (f *fakeProcessor) ProcessQueryWithFilters(_ context.Context, text string, filters map[string]interface{}) *models.Envelope {
	f.text = text
	f.filters = filters
	return f.env
}

func TestExecute_Success(t *testing.T) {
	proc := &fakeProcessor{env: &models.Envelope{
		QueryID:  "q-1",
		Intent:   models.QueryTypeCount,
		Response: "Found 7 employees matching your criteria.",
		Status:   models.StatusSuccess,
		Count:    7,
	}}
	h := NewHandler(LoadConfig(time.Second), proc, &TestLogger{})

	out, err := h.Execute(context.Background(), &Input{
		Question: "How many employees work in IT?",
		Filters:  map[string]interface{}{"department": "IT"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Found 7 employees matching your criteria.", out.Answer)
	assert.Equal(t, models.StatusSuccess, out.Status)
	assert.Equal(t, 7, out.Envelope.Count)
	assert.Equal(t, "How many employees work in IT?", proc.text)
	assert.Equal(t, "IT", proc.filters["department"])
}

func TestExecute_FallbackIsNotAnError(t *testing.T) {
	proc := &fakeProcessor{env: &models.Envelope{Status: models.StatusSuccessFallback, Response: "Found 3 employees"}}
	h := NewHandler(LoadConfig(0), proc, &TestLogger{})

	out, err := h.Execute(context.Background(), &Input{Question: "Find managers"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccessFallback, out.Status)
}

func TestExecute_ErrorEnvelope(t *testing.T) {
	tests := []struct {
		name      string
		errText   string
		code      apperrors.ErrorCode
		retryable bool
	}{
		{"blank question", "INTENT_DETECTION_FAILED: empty query", apperrors.ErrCodeIntentDetectionFailed, false},
		{"backends down", "PIPELINE_EXECUTION_FAILED: store down; PIPELINE_EXECUTION_FAILED: fallback down", apperrors.ErrCodePipelineExecutionFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &fakeProcessor{env: &models.Envelope{QueryID: "q-9", Status: models.StatusError, Error: tt.errText}}
			h := NewHandler(LoadConfig(time.Second), proc, &TestLogger{})

			out, err := h.Execute(context.Background(), &Input{Question: ""})
			assert.Nil(t, out)

			var stdErr *apperrors.StandardError
			require.True(t, errors.As(err, &stdErr))
			assert.Equal(t, tt.code, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
			assert.Equal(t, "q-9", stdErr.Metadata["queryId"])
		})
	}
}

func TestExecute_NilEnvelope(t *testing.T) {
	h := NewHandler(LoadConfig(time.Second), &fakeProcessor{}, &TestLogger{})
	_, err := h.Execute(context.Background(), &Input{Question: "x"})
	require.Error(t, err)
}
