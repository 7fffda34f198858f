// internal/workers/catalog/update-product/handler.go

package updateproduct

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"widget-assistant/internal/assistant/knowledge"
	"widget-assistant/internal/common/errors"
	"widget-assistant/internal/common/logger"
	"widget-assistant/internal/common/metrics"
	"widget-assistant/internal/models"
)

const TaskType = "update-product"

// ProductWriter is the catalog of record.
type ProductWriter interface {
	UpsertProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, userID, productID string) (bool, error)
}

// ProductIndexer keeps the text index in step with the catalog.
type ProductIndexer interface {
	IndexProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, productID string) error
}

// ProductCache is the in-process knowledge base.
type ProductCache interface {
	UpdateProduct(p models.Product) error
	RemoveProduct(userID, productID string)
}

type Handler struct {
	config       *Config
	catalog      ProductWriter
	index        ProductIndexer
	cache        ProductCache
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
	now          func() time.Time
}

type HandlerOptions struct {
	CustomConfig *Config
	Catalog      ProductWriter
	Index        ProductIndexer // optional
	Cache        ProductCache   // optional
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
	if opts.Catalog == nil {
		return nil, fmt.Errorf("%s: catalog is required", TaskType)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       cfg,
		catalog:      opts.Catalog,
		index:        opts.Index,
		cache:        opts.Cache,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
		now:          func() time.Time { return time.Now().UTC() },
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
		h.fail(ctx, client, job, err)
		return
	}
	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	switch input.Operation {
	case OperationUpsert:
		return h.upsert(ctx, input)
	case OperationDelete:
		return h.remove(ctx, input)
	}
	return nil, errors.NewInvalidInputError(fmt.Sprintf("unknown operation %q", input.Operation))
}

func (h *Handler) upsert(ctx context.Context, input *Input) (*Output, error) {
	p, err := h.decodeProduct(input)
	if err != nil {
		return nil, err
	}

	if err := h.catalog.UpsertProduct(ctx, p); err != nil {
		return nil, errors.NewQueryExecutionFailedError("upsert_product", err)
	}

	out := &Output{Operation: OperationUpsert, UserID: p.UserID, ProductID: p.ID, Changed: true}
	if h.index != nil {
		if err := h.index.IndexProduct(ctx, p); err != nil {
			return nil, errors.NewSearchQueryFailedError("products", err)
		}
		out.Indexed = true
	}
	if h.cache != nil {
		if err := h.cache.UpdateProduct(p); err != nil {
			return nil, err
		}
	}

	h.logger.Info("product updated", map[string]interface{}{
		"userId":    p.UserID,
		"productId": p.ID,
		"indexed":   out.Indexed,
	})
	return out, nil
}

// decodeProduct validates the document and binds it to the job's tenant.
func (h *Handler) decodeProduct(input *Input) (models.Product, error) {
	doc := make(map[string]interface{}, len(input.Product)+1)
	for k, v := range input.Product {
		doc[k] = v
	}
	if owner, ok := doc["user_id"]; !ok || owner == "" {
		doc["user_id"] = input.UserID
	} else if owner != input.UserID {
		return models.Product{}, errors.NewProductValidationFailedError(input.ProductID,
			fmt.Sprintf("product belongs to %v, job is for %s", owner, input.UserID))
	}
	if id, ok := doc["_id"]; ok {
		if _, has := doc["id"]; !has {
			doc["id"] = id
		}
		delete(doc, "_id")
	}
	if _, has := doc["id"]; !has && input.ProductID != "" {
		doc["id"] = input.ProductID
	}

	if err := knowledge.ValidateProduct(doc); err != nil {
		return models.Product{}, err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return models.Product{}, errors.NewProductValidationFailedError(input.ProductID, err.Error())
	}
	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return models.Product{}, errors.NewProductValidationFailedError(input.ProductID, err.Error())
	}
	if p.ID == "" {
		return models.Product{}, errors.NewProductValidationFailedError("", "id is required")
	}
	if input.ProductID != "" && p.ID != input.ProductID {
		return models.Product{}, errors.NewProductValidationFailedError(input.ProductID,
			fmt.Sprintf("document id %s does not match", p.ID))
	}
	p.UpdatedAt = h.now()
	return p, nil
}

func (h *Handler) remove(ctx context.Context, input *Input) (*Output, error) {
	if input.ProductID == "" {
		return nil, errors.NewInvalidInputError("productId is required for delete")
	}

	deleted, err := h.catalog.DeleteProduct(ctx, input.UserID, input.ProductID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("delete_product", err)
	}

	out := &Output{Operation: OperationDelete, UserID: input.UserID, ProductID: input.ProductID, Changed: deleted}
	// the index is keyed by product id alone, so only drop it when the tenant owned the document
	if deleted && h.index != nil {
		if err := h.index.DeleteProduct(ctx, input.ProductID); err != nil {
			return nil, errors.NewSearchQueryFailedError("products", err)
		}
		out.Indexed = true
	}
	if h.cache != nil {
		h.cache.RemoveProduct(input.UserID, input.ProductID)
	}
	return out, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	code := "INTERNAL_ERROR"
	if stdErr, ok := errors.AsStandardError(err); ok {
		code = string(stdErr.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
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
