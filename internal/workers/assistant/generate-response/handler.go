// internal/workers/assistant/generate-response/handler.go

package generateresponse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"widget-assistant/internal/assistant/conversation"
	"widget-assistant/internal/assistant/orchestrator"
	"widget-assistant/internal/common/errors"
	"widget-assistant/internal/common/logger"
	"widget-assistant/internal/common/metrics"
)

const TaskType = "generate-response"

// ContextStore persists conversation contexts between turns.
type ContextStore interface {
	Load(ctx context.Context, conversationID, userID string) (*conversation.Context, error)
	Save(ctx context.Context, c *conversation.Context) error
}

// Responder produces the reply for one turn.
type Responder interface {
	GenerateResponse(ctx context.Context, req orchestrator.Request) *orchestrator.Response
}

// JobRecorder receives per-job outcomes.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

type Handler struct {
	config       *Config
	store        ContextStore
	responder    Responder
	recorder     JobRecorder
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

type HandlerOptions struct {
	CustomConfig *Config
	Store        ContextStore
	Responder    Responder
	Recorder     JobRecorder
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.CustomConfig
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Store == nil || opts.Responder == nil {
		return nil, fmt.Errorf("%s: store and responder are required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       cfg,
		store:        opts.Store,
		responder:    opts.Responder,
		recorder:     opts.Recorder,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"workflowKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.record(ctx, "completed", time.Since(start))
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("parse variables: %v", err))
	}
	if res := inputSchema.Validate(variables); !res.Valid {
		return nil, errors.NewInvalidInputError(res.Error())
	}

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("decode variables: %v", err))
	}
	return &input, nil
}

// Execute runs one turn against the stored context and saves the result.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	conv, err := h.store.Load(ctx, input.ConversationID, input.UserID)
	if err != nil {
		return nil, err
	}

	resp := h.responder.GenerateResponse(ctx, orchestrator.Request{
		Query:    input.Query,
		Context:  conv,
		Language: input.Language,
		UserID:   input.UserID,
	})

	if resp.Context != nil {
		conv = resp.Context
	}
	if err := h.store.Save(ctx, conv); err != nil {
		return nil, err
	}

	logger.ForConversation(h.logger, input.UserID, conv.ConversationID).Info("turn completed", map[string]interface{}{
		"intent": resp.Metadata.Intent,
		"source": resp.Source,
	})

	return &Output{
		ConversationID:  conv.ConversationID,
		Reply:           resp.Reply,
		Source:          resp.Source,
		ConfidenceScore: resp.ConfidenceScore,
		Metadata:        resp.Metadata,
	}, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	code := "INTERNAL_ERROR"
	if stdErr, ok := errors.AsStandardError(err); ok {
		code = string(stdErr.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.record(ctx, "failed", time.Since(start))
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) record(ctx context.Context, status string, d time.Duration) {
	if h.recorder == nil {
		return
	}
	h.recorder.RecordJobProcessed(ctx, TaskType, status)
	h.recorder.RecordJobDuration(ctx, TaskType, d, status)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
	}
}
