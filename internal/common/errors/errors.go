// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeIntentDetectionFailed ErrorCode = "INTENT_DETECTION_FAILED"
	ErrCodeIntentParseFailed     ErrorCode = "INTENT_PARSE_FAILED"
	ErrCodeIntentAPITimeout      ErrorCode = "INTENT_API_TIMEOUT"

	ErrCodePipelineExecutionFailed ErrorCode = "PIPELINE_EXECUTION_FAILED"
	ErrCodeQueryTimeout            ErrorCode = "QUERY_TIMEOUT"
	ErrCodeInvalidQuery            ErrorCode = "INVALID_QUERY"

	ErrCodeDatabaseConnectionFailed      ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout                 ErrorCode = "SEARCH_TIMEOUT"

	ErrCodeResponseGenerationFailed ErrorCode = "RESPONSE_GENERATION_FAILED"
	ErrCodeLLMTimeout               ErrorCode = "LLM_TIMEOUT"

	ErrCodeCacheError ErrorCode = "CACHE_ERROR"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

var messages = map[ErrorCode]string{
	ErrCodeIntentDetectionFailed:         "Query intent could not be detected",
	ErrCodeIntentParseFailed:             "Classification response could not be parsed",
	ErrCodeIntentAPITimeout:              "Classification service timeout",
	ErrCodePipelineExecutionFailed:       "Query pipeline execution failed",
	ErrCodeQueryTimeout:                  "Aggregation store query timeout",
	ErrCodeInvalidQuery:                  "Invalid query",
	ErrCodeDatabaseConnectionFailed:      "Failed to connect to the aggregation store",
	ErrCodeElasticsearchConnectionFailed: "Failed to connect to Elasticsearch",
	ErrCodeSearchQueryFailed:             "Ranked search failed",
	ErrCodeSearchTimeout:                 "Ranked search timeout",
	ErrCodeResponseGenerationFailed:      "Response generation failed",
	ErrCodeLLMTimeout:                    "Text completion service timeout",
	ErrCodeCacheError:                    "Result cache failure",
	ErrCodeNotificationSendFailed:        "Failed to send alert notification",
	ErrCodeInternal:                      "Unexpected error",
}

// New builds a StandardError for a code; Retryable follows GetRetryCount.
func New(code ErrorCode, details string) *StandardError {
	msg, ok := messages[code]
	if !ok {
		msg = string(code)
	}
	return &StandardError{
		Code:      code,
		Message:   msg,
		Details:   details,
		Retryable: GetRetryCount(code) > 0,
		Timestamp: time.Now().UTC(),
	}
}

// NewIntentDetectionFailedError creates a non-retryable classification error.
func NewIntentDetectionFailedError(details string) *StandardError {
	return New(ErrCodeIntentDetectionFailed, details)
}

// NewPipelineExecutionFailedError creates a retryable execution error.
func NewPipelineExecutionFailedError(err error) *StandardError {
	return New(ErrCodePipelineExecutionFailed, err.Error())
}

// NewDatabaseConnectionFailedError creates a retryable database error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return New(ErrCodeDatabaseConnectionFailed, err.Error())
}

// NewElasticsearchConnectionFailedError creates a retryable search error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return New(ErrCodeElasticsearchConnectionFailed, err.Error())
}

func NewInvalidQueryError(details string) *StandardError {
	return New(ErrCodeInvalidQuery, details)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	e := New(ErrCodeNotificationSendFailed, err.Error())
	e.Metadata = map[string]interface{}{"channel": channel}
	return e
}

// FromMessage parses a "CODE: detail; CODE: detail" error string, as carried
// in an error envelope, into a StandardError keyed by the first known code.
func FromMessage(msg string) *StandardError {
	for _, part := range strings.Split(msg, ";") {
		code, _, _ := strings.Cut(strings.TrimSpace(part), ":")
		code = strings.TrimSpace(code)
		if _, ok := messages[ErrorCode(code)]; ok {
			return New(ErrorCode(code), msg)
		}
	}
	return New(ErrCodeInternal, msg)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodePipelineExecutionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed:
		return 3 // Retryable technical errors

	case ErrCodeQueryTimeout,
		ErrCodeSearchTimeout,
		ErrCodeIntentAPITimeout:
		return 2 // Partial retry for timeouts

	case ErrCodeLLMTimeout, ErrCodeResponseGenerationFailed:
		return 1

	default:
		return 0 // Query errors: no retry
	}
}

// BPMN error names a process model catches. Several internal codes share a
// name when the process cannot act on the difference.
const (
	BPMNQueryRejected      = "HR_QUERY_REJECTED"
	BPMNQueryNotUnderstood = "HR_QUERY_NOT_UNDERSTOOD"
	BPMNDataUnavailable    = "HR_DATA_UNAVAILABLE"
	BPMNSearchUnavailable  = "HR_SEARCH_UNAVAILABLE"
	BPMNAnswerUnavailable  = "HR_ANSWER_UNAVAILABLE"
	BPMNQueryTimedOut      = "HR_QUERY_TIMED_OUT"
	BPMNQueryFailed        = "HR_QUERY_FAILED"
)

var bpmnCodes = map[ErrorCode]string{
	ErrCodeInvalidQuery:                  BPMNQueryRejected,
	ErrCodeIntentDetectionFailed:         BPMNQueryNotUnderstood,
	ErrCodeIntentParseFailed:             BPMNQueryNotUnderstood,
	ErrCodeIntentAPITimeout:              BPMNQueryTimedOut,
	ErrCodePipelineExecutionFailed:       BPMNDataUnavailable,
	ErrCodeDatabaseConnectionFailed:      BPMNDataUnavailable,
	ErrCodeQueryTimeout:                  BPMNQueryTimedOut,
	ErrCodeElasticsearchConnectionFailed: BPMNSearchUnavailable,
	ErrCodeSearchQueryFailed:             BPMNSearchUnavailable,
	ErrCodeSearchTimeout:                 BPMNQueryTimedOut,
	ErrCodeResponseGenerationFailed:      BPMNAnswerUnavailable,
	ErrCodeLLMTimeout:                    BPMNAnswerUnavailable,
}

// BPMNCode returns the BPMN error name thrown for an internal code.
func BPMNCode(code ErrorCode) string {
	if name, ok := bpmnCodes[code]; ok {
		return name
	}
	return BPMNQueryFailed
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
// Metadata such as the query id and the apology answer travel as variables.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"errorCategory":     GetErrorCategory(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           BPMNCode(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INTENT"):
		return "CLASSIFICATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "PIPELINE") || strings.Contains(codeStr, "QUERY_TIMEOUT"):
		return "DATABASE"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "RESPONSE") || strings.Contains(codeStr, "LLM"):
		return "AI"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
