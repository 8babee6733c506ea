// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler settles a failed hr-query job. Retryable failures fail the job
// so Zeebe redelivers it; the rest are thrown as BPMN errors that a boundary
// event can catch by name.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Resolution is what HandleJobError sends back to the broker.
type Resolution struct {
	Throw   bool
	Retries int
	Error   *BPMNError
}

// Resolve decides between a retry and a thrown error. The retry count never
// exceeds what the job has left.
func (h *ErrorHandler) Resolve(job entities.Job, err error) Resolution {
	bpmnErr := ConvertToBPMNError(h.normalizeError(err))

	if bpmnErr.Retries == 0 || job.Retries <= 1 {
		return Resolution{Throw: true, Error: bpmnErr}
	}
	retries := bpmnErr.Retries
	if remaining := int(job.Retries) - 1; remaining < retries {
		retries = remaining
	}
	return Resolution{Retries: retries, Error: bpmnErr}
}

func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	res := h.Resolve(job, err)
	h.logError(job, res)

	vars, _ := json.Marshal(res.Error.ToErrorVariables())
	if res.Throw {
		cmd := client.NewThrowErrorCommand().
			JobKey(job.Key).
			ErrorCode(res.Error.Code).
			ErrorMessage(res.Error.Message)
		withVars, verr := cmd.VariablesFromString(string(vars))
		if verr != nil {
			h.warnSend(job, "throw", verr)
			_, serr := cmd.Send(ctx)
			h.warnSend(job, "throw", serr)
			return
		}
		_, serr := withVars.Send(ctx)
		h.warnSend(job, "throw", serr)
		return
	}

	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(int32(res.Retries)).
		ErrorMessage(res.Error.Message)
	withVars, verr := cmd.VariablesFromString(string(vars))
	if verr != nil {
		h.warnSend(job, "fail", verr)
		_, serr := cmd.Send(ctx)
		h.warnSend(job, "fail", serr)
		return
	}
	_, serr := withVars.Send(ctx)
	h.warnSend(job, "fail", serr)
}

// normalizeError keeps a wrapped StandardError and parses anything else from
// its "CODE: detail" message.
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return FromMessage(err.Error())
}

func (h *ErrorHandler) warnSend(job entities.Job, command string, err error) {
	if err == nil || h.logger == nil {
		return
	}
	h.logger.Warn("job command not delivered", map[string]interface{}{
		"jobKey":  job.Key,
		"command": command,
		"error":   err.Error(),
	})
}

func (h *ErrorHandler) logError(job entities.Job, res Resolution) {
	if h.logger == nil {
		return
	}
	h.logger.Error("hr query job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"bpmnErrorCode":    res.Error.Code,
		"errorCode":        res.Error.ErrorVariables["originalErrorCode"],
		"errorCategory":    res.Error.ErrorVariables["errorCategory"],
		"queryId":          res.Error.ErrorVariables["queryId"],
		"message":          res.Error.Message,
		"details":          res.Error.Details,
		"thrown":           res.Throw,
		"retries":          res.Retries,
		"workflowInstance": job.ProcessInstanceKey,
	})
}
