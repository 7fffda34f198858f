// internal/common/errors/errors.go

// Package errors provides standardized error handling for the assistant
// core and its workflow workers.
package errors

import (
	stderrors "errors"
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
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeIndexNotFound     ErrorCode = "INDEX_NOT_FOUND"

	ErrCodeKnowledgeLookupFailed   ErrorCode = "KNOWLEDGE_LOOKUP_FAILED"
	ErrCodeProductValidationFailed ErrorCode = "PRODUCT_VALIDATION_FAILED"
	ErrCodeProductNotFound         ErrorCode = "PRODUCT_NOT_FOUND"
	ErrCodeContextStoreFailed      ErrorCode = "CONTEXT_STORE_FAILED"
	ErrCodeEscalationPublishFailed ErrorCode = "ESCALATION_PUBLISH_FAILED"

	ErrCodeLLMTimeout          ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMGenerationFailed ErrorCode = "LLM_GENERATION_FAILED"
	ErrCodeLLMOutputInvalid    ErrorCode = "LLM_OUTPUT_INVALID"
	ErrCodeLLMExhausted        ErrorCode = "LLM_EXHAUSTED"
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

// WithMetadata attaches a key to the error metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError unwraps err into a *StandardError when one is in the chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
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

// ToErrorVariables returns a map suitable for setting job fail variables.
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

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidInputError creates a non-retryable input error.
func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()), true)
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(queryType string) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout", fmt.Sprintf("queryType: %s", queryType), true)
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Elasticsearch query error",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
}

// NewIndexNotFoundError creates a non-retryable index not found error.
func NewIndexNotFoundError(indexName string) *StandardError {
	return newError(ErrCodeIndexNotFound, "Elasticsearch index not found", fmt.Sprintf("indexName: %s", indexName), false)
}

// NewKnowledgeLookupFailedError wraps a failed catalog read.
func NewKnowledgeLookupFailedError(source string, err error) *StandardError {
	return newError(ErrCodeKnowledgeLookupFailed, "Knowledge base lookup failed",
		fmt.Sprintf("source: %s, error: %s", source, err.Error()), true)
}

// NewProductValidationFailedError marks a catalog document that fails its schema.
func NewProductValidationFailedError(productID, details string) *StandardError {
	return newError(ErrCodeProductValidationFailed, "Product document failed validation",
		fmt.Sprintf("productId: %s, %s", productID, details), false)
}

// NewProductNotFoundError creates a non-retryable lookup miss.
func NewProductNotFoundError(productID string) *StandardError {
	return newError(ErrCodeProductNotFound, "Product not found", fmt.Sprintf("productId: %s", productID), false)
}

// NewContextStoreFailedError creates a retryable conversation store error.
func NewContextStoreFailedError(conversationID string, err error) *StandardError {
	return newError(ErrCodeContextStoreFailed, "Conversation context store error",
		fmt.Sprintf("conversationId: %s, error: %s", conversationID, err.Error()), true)
}

// NewEscalationPublishFailedError creates a retryable escalation error.
func NewEscalationPublishFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeEscalationPublishFailed, "Escalation notice delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

// NewLLMTimeoutError creates a retryable model timeout error.
func NewLLMTimeoutError(model string) *StandardError {
	return newError(ErrCodeLLMTimeout, "Model call timeout", fmt.Sprintf("model: %s", model), true)
}

// NewLLMGenerationFailedError creates a retryable model error.
func NewLLMGenerationFailedError(model string, err error) *StandardError {
	return newError(ErrCodeLLMGenerationFailed, "Model generation error",
		fmt.Sprintf("model: %s, error: %s", model, err.Error()), true)
}

// NewLLMOutputInvalidError marks well-formed transport but unusable output.
func NewLLMOutputInvalidError(model, details string) *StandardError {
	return newError(ErrCodeLLMOutputInvalid, "Model output failed validation",
		fmt.Sprintf("model: %s, %s", model, details), true)
}

// NewLLMExhaustedError is returned once every attempt of the cascade failed.
func NewLLMExhaustedError(attempts int, last error) *StandardError {
	details := fmt.Sprintf("attempts: %d", attempts)
	if last != nil {
		details += ", last error: " + last.Error()
	}
	return newError(ErrCodeLLMExhausted, "Model cascade exhausted", details, false)
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeKnowledgeLookupFailed,
		ErrCodeContextStoreFailed,
		ErrCodeEscalationPublishFailed,
		ErrCodeLLMGenerationFailed:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeLLMOutputInvalid:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError.
// Internal and BPMN codes are identical.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
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
	case strings.HasPrefix(codeStr, "LLM"):
		return "AI"
	case strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "DATABASE") || strings.HasPrefix(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "KNOWLEDGE") || strings.Contains(codeStr, "PRODUCT"):
		return "CATALOG"
	case strings.Contains(codeStr, "CONTEXT"):
		return "CONVERSATION"
	case strings.Contains(codeStr, "ESCALATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
