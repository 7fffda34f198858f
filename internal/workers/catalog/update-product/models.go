// internal/workers/catalog/update-product/models.go

package updateproduct

import "widget-assistant/internal/common/validation"

const (
	OperationUpsert = "upsert"
	OperationDelete = "delete"
)

type Input struct {
	Operation string                 `json:"operation"`
	UserID    string                 `json:"userId"`
	ProductID string                 `json:"productId,omitempty"`
	Product   map[string]interface{} `json:"product,omitempty"`
}

type Output struct {
	Operation string `json:"operation"`
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Changed   bool   `json:"changed"`
	Indexed   bool   `json:"indexed"`
}

var inputSchema = validation.MustSchema(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"operation", "userId"},
	"properties": map[string]interface{}{
		"operation": map[string]interface{}{"type": "string", "enum": []interface{}{OperationUpsert, OperationDelete}},
		"userId":    map[string]interface{}{"type": "string", "minLength": 1},
		"productId": map[string]interface{}{"type": "string"},
		"product":   map[string]interface{}{"type": "object"},
	},
})
