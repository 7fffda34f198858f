// internal/workers/assistant/update-context/handler.go

package updatecontext

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"widget-assistant/internal/assistant/conversation"
	"widget-assistant/internal/common/errors"
	"widget-assistant/internal/common/logger"
	"widget-assistant/internal/common/metrics"
)

const TaskType = "update-context"

type ContextStore interface {
	Load(ctx context.Context, conversationID, userID string) (*conversation.Context, error)
	Save(ctx context.Context, c *conversation.Context) error
}

type Handler struct {
	config       *Config
	store        ContextStore
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, store ContextStore, log logger.Logger) (*Handler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if store == nil {
		return nil, fmt.Errorf("%s: store is required", TaskType)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        store,
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
	if err == nil {
		var output *Output
		if output, err = h.Execute(ctx, input); err == nil {
			h.completeJob(ctx, client, job, output)
			metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
			metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
			return
		}
	}

	code := "INTERNAL_ERROR"
	if stdErr, ok := errors.AsStandardError(err); ok {
		code = string(stdErr.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
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

// Execute folds one analysed turn into the stored context.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	conv, err := h.store.Load(ctx, input.ConversationID, input.UserID)
	if err != nil {
		return nil, err
	}

	conv.Update(input.Query, input.Intent, input.Entities)

	if err := h.store.Save(ctx, conv); err != nil {
		return nil, err
	}
	logger.ForConversation(h.logger, input.UserID, conv.ConversationID).Debug("context updated", map[string]interface{}{
		"category":   conv.Category,
		"sufficient": conv.HasSufficientConstraints(),
	})

	return &Output{
		ConversationID:           conv.ConversationID,
		Category:                 conv.Category,
		Subcategory:              conv.Subcategory,
		BudgetRange:              conv.BudgetRange,
		RequiredFeatures:         conv.RequiredFeatures,
		HasSufficientConstraints: conv.HasSufficientConstraints(),
		FilterQuery:              conv.GenerateFilterQuery(),
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
