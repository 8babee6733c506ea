package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracing_NoEndpoint(t *testing.T) {
	tr, err := NewTracing("hr-query-engine", "", 1)
	require.NoError(t, err)

	_, span := tr.Tracer().Start(context.Background(), "hr.process_query")
	span.End()
	assert.False(t, span.SpanContext().IsValid())
	tr.Shutdown()
}

func TestNewTracing_Jaeger(t *testing.T) {
	tr, err := NewTracing("hr-query-engine", "http://127.0.0.1:14268/api/traces", 1)
	require.NoError(t, err)
	defer tr.Shutdown()

	_, span := tr.Tracer().Start(context.Background(), "hr.process_query")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}

func TestObservability_RecordQuery(t *testing.T) {
	obs := New("hr-query-engine-test")
	defer obs.Shutdown()

	obs.RecordQueryProcessed(context.Background(), "count_query", "success", 12*time.Millisecond)
	assert.NotNil(t, obs.queryCounter)
}
