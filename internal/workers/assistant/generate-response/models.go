// internal/workers/assistant/generate-response/models.go

package generateresponse

import (
	"widget-assistant/internal/assistant/orchestrator"
	"widget-assistant/internal/common/validation"
)

type Input struct {
	ConversationID string `json:"conversationId,omitempty"`
	UserID         string `json:"userId"`
	Query          string `json:"query"`
	Language       string `json:"language,omitempty"`
}

type Output struct {
	ConversationID  string                `json:"conversationId"`
	Reply           string                `json:"reply"`
	Source          string                `json:"source"`
	ConfidenceScore float64               `json:"confidenceScore"`
	Metadata        orchestrator.Metadata `json:"metadata"`
}

var inputSchema = validation.MustSchema(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"userId", "query"},
	"properties": map[string]interface{}{
		"conversationId": map[string]interface{}{"type": "string", "maxLength": 128},
		"userId":         map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 128},
		"query":          map[string]interface{}{"type": "string", "maxLength": 4000},
		"language":       map[string]interface{}{"type": "string", "maxLength": 16},
	},
})
