// internal/workers/hr-query/process-hr-query/handler.go
package processhrquery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "hr-query-engine/internal/common/errors"
	"hr-query-engine/internal/models"
)

const (
	TaskType = "process-hr-query"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// QueryProcessor answers one natural-language question.
type QueryProcessor interface {
	ProcessQueryWithFilters(ctx context.Context, text string, filters map[string]interface{}) *models.Envelope
}

type Handler struct {
	config    *Config
	processor QueryProcessor
	errors    *apperrors.ErrorHandler
	logger    Logger
}

func NewHandler(config *Config, processor QueryProcessor, log Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:    config,
		processor: processor,
		errors:    apperrors.NewErrorHandler(l),
		logger:    l,
	}
}

// Handle completes the job with the answer envelope. Error envelopes become a
// job failure with retries or a BPMN error, depending on the failure code.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, apperrors.NewInvalidQueryError(fmt.Sprintf("parse input: %v", err)))
		return nil
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return nil
	}

	return h.completeJob(ctx, client, job, output)
}

// Execute runs the question through the engine. An error envelope is
// returned as a StandardError keyed by its first failure code.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	env := h.processor.ProcessQueryWithFilters(ctx, input.Question, input.Filters)
	if env == nil {
		return nil, apperrors.New(apperrors.ErrCodeInternal, "no response")
	}
	if env.Status == models.StatusError {
		stdErr := apperrors.FromMessage(env.Error)
		stdErr.Metadata = map[string]interface{}{
			"queryId": env.QueryID,
			"answer":  env.Response,
		}
		return nil, stdErr
	}

	h.logger.Info("query answered", map[string]interface{}{
		"queryId":    env.QueryID,
		"intent":     env.Intent,
		"status":     env.Status,
		"dataSource": env.DataSource,
		"count":      env.Count,
	})
	return &Output{Answer: env.Response, Status: env.Status, Envelope: env}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}
