package errors

import (
	"fmt"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMessage(t *testing.T) {
	tests := []struct {
		msg       string
		code      ErrorCode
		retryable bool
	}{
		{"INTENT_DETECTION_FAILED: empty query", ErrCodeIntentDetectionFailed, false},
		{"PIPELINE_EXECUTION_FAILED: store down; PIPELINE_EXECUTION_FAILED: fallback down", ErrCodePipelineExecutionFailed, true},
		{"context canceled; CACHE_ERROR: redis", ErrCodeCacheError, false},
		{"something odd", ErrCodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			e := FromMessage(tt.msg)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.retryable, e.Retryable)
			assert.Equal(t, tt.msg, e.Details)
		})
	}
}

func TestGetRetryCount(t *testing.T) {
	assert.Equal(t, 3, GetRetryCount(ErrCodePipelineExecutionFailed))
	assert.Equal(t, 2, GetRetryCount(ErrCodeSearchTimeout))
	assert.Equal(t, 1, GetRetryCount(ErrCodeLLMTimeout))
	assert.Equal(t, 0, GetRetryCount(ErrCodeIntentDetectionFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeInvalidQuery))
}

func TestConvertToBPMNError(t *testing.T) {
	bpmn := ConvertToBPMNError(NewPipelineExecutionFailedError(fmt.Errorf("store down")))

	assert.Equal(t, BPMNDataUnavailable, bpmn.Code)
	assert.Equal(t, 3, bpmn.Retries)
	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "PIPELINE_EXECUTION_FAILED", vars["originalErrorCode"])
	assert.Equal(t, "DATABASE", vars["errorCategory"])
	assert.Equal(t, "store down", vars["errorDetails"])

	nonRetry := ConvertToBPMNError(NewIntentDetectionFailedError("empty query"))
	assert.Equal(t, 0, nonRetry.Retries)
	assert.False(t, nonRetry.Retryable)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "CLASSIFICATION", GetErrorCategory(ErrCodeIntentParseFailed))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodePipelineExecutionFailed))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeSearchTimeout))
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeLLMTimeout))
	assert.Equal(t, "CACHE", GetErrorCategory(ErrCodeCacheError))
	assert.Equal(t, "OTHER", GetErrorCategory("SOMETHING"))
}

func TestStandardError_Wraps(t *testing.T) {
	wrapped := fmt.Errorf("job: %w", NewInvalidQueryError("blank"))
	h := NewErrorHandler(nil)
	assert.Equal(t, ErrCodeInvalidQuery, h.normalizeError(wrapped).Code)
}

func TestBPMNCode(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeInvalidQuery, BPMNQueryRejected},
		{ErrCodeIntentDetectionFailed, BPMNQueryNotUnderstood},
		{ErrCodeIntentParseFailed, BPMNQueryNotUnderstood},
		{ErrCodeDatabaseConnectionFailed, BPMNDataUnavailable},
		{ErrCodeSearchQueryFailed, BPMNSearchUnavailable},
		{ErrCodeLLMTimeout, BPMNAnswerUnavailable},
		{ErrCodeQueryTimeout, BPMNQueryTimedOut},
		{ErrCodeCacheError, BPMNQueryFailed},
		{ErrCodeInternal, BPMNQueryFailed},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, BPMNCode(tt.code))
		})
	}
}

func TestConvertToBPMNError_CarriesMetadata(t *testing.T) {
	stdErr := FromMessage("PIPELINE_EXECUTION_FAILED: store down")
	stdErr.Metadata = map[string]interface{}{"queryId": "q-9", "answer": "I apologize"}

	vars := ConvertToBPMNError(stdErr).ToErrorVariables()

	assert.Equal(t, "q-9", vars["queryId"])
	assert.Equal(t, "I apologize", vars["answer"])
	assert.Equal(t, "PIPELINE_EXECUTION_FAILED", vars["originalErrorCode"])
}

type recordingLogger struct {
	errors []map[string]interface{}
}

func (l *recordingLogger) Warn(string, map[string]interface{}) {}
func (l *recordingLogger) Error(_ string, fields map[string]interface{}) {
	l.errors = append(l.errors, fields)
}

func TestErrorHandler_Resolve(t *testing.T) {
	h := NewErrorHandler(&recordingLogger{})
	job := func(retries int32) entities.Job {
		return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 7, Type: "process-hr-query", Retries: retries}}
	}

	tests := []struct {
		name    string
		err     error
		retries int32
		throw   bool
		left    int
		code    string
	}{
		{"retryable failure", NewPipelineExecutionFailedError(fmt.Errorf("store down")), 5, false, 3, BPMNDataUnavailable},
		{"capped by remaining job retries", NewPipelineExecutionFailedError(fmt.Errorf("store down")), 2, false, 1, BPMNDataUnavailable},
		{"last attempt is thrown", NewPipelineExecutionFailedError(fmt.Errorf("store down")), 1, true, 0, BPMNDataUnavailable},
		{"rejected query is thrown", NewInvalidQueryError("blank"), 3, true, 0, BPMNQueryRejected},
		{"plain error parsed from message", fmt.Errorf("SEARCH_TIMEOUT: es slow"), 3, false, 2, BPMNQueryTimedOut},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := h.Resolve(job(tt.retries), tt.err)
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.throw, res.Throw)
			assert.Equal(t, tt.left, res.Retries)
			assert.Equal(t, tt.code, res.Error.Code)
		})
	}
}
