// internal/workers/assistant/update-context/models.go

package updatecontext

import (
	"widget-assistant/internal/assistant/conversation"
	"widget-assistant/internal/common/validation"
)

type Input struct {
	ConversationID string                 `json:"conversationId,omitempty"`
	UserID         string                 `json:"userId"`
	Query          string                 `json:"query"`
	Intent         string                 `json:"intent,omitempty"`
	Entities       map[string]interface{} `json:"entities,omitempty"`
}

type Output struct {
	ConversationID           string                   `json:"conversationId"`
	Category                 string                   `json:"category,omitempty"`
	Subcategory              string                   `json:"subcategory,omitempty"`
	BudgetRange              conversation.BudgetRange `json:"budgetRange"`
	RequiredFeatures         []string                 `json:"requiredFeatures"`
	HasSufficientConstraints bool                     `json:"hasSufficientConstraints"`
	FilterQuery              map[string]interface{}   `json:"filterQuery"`
}

var inputSchema = validation.MustSchema(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"userId", "query"},
	"properties": map[string]interface{}{
		"conversationId": map[string]interface{}{"type": "string", "maxLength": 128},
		"userId":         map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 128},
		"query":          map[string]interface{}{"type": "string", "maxLength": 4000},
		"intent":         map[string]interface{}{"type": "string"},
		"entities":       map[string]interface{}{"type": []interface{}{"object", "null"}},
	},
})
