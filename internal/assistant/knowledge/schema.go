// internal/assistant/knowledge/schema.go

package knowledge

import (
	"encoding/json"
	"fmt"

	"widget-assistant/internal/common/errors"
	"widget-assistant/internal/common/validation"
	"widget-assistant/internal/models"
)

var amountSchema = map[string]interface{}{
	"type": []interface{}{"number", "string", "null"},
}

// productSchema accepts both the stored form (_id) and the API form (id).
var productSchema = validation.MustSchema(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"user_id", "name"},
	"properties": map[string]interface{}{
		"user_id":     map[string]interface{}{"type": "string", "minLength": 1},
		"name":        map[string]interface{}{"type": "string", "minLength": 1},
		"category":    map[string]interface{}{"type": "string"},
		"subcategory": map[string]interface{}{"type": "string"},
		"brand":       map[string]interface{}{"type": "string"},
		"features": map[string]interface{}{
			"type":  []interface{}{"array", "null"},
			"items": map[string]interface{}{"type": "string"},
		},
		"compatible_with": map[string]interface{}{
			"type":  []interface{}{"array", "null"},
			"items": map[string]interface{}{"type": "string"},
		},
		"pricing": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"one_time": amountSchema,
				"monthly":  amountSchema,
				"annual":   amountSchema,
				"currency": map[string]interface{}{"type": "string"},
			},
		},
		"admin_priority": map[string]interface{}{"type": "number", "minimum": 0, "maximum": 10},
	},
})

// ValidateProduct checks a product document, stored or decoded.
func ValidateProduct(doc interface{}) error {
	res := productSchema.Validate(doc)
	if res.Valid {
		return nil
	}
	return errors.NewProductValidationFailedError(documentID(doc), res.Error())
}

func documentID(doc interface{}) string {
	switch d := doc.(type) {
	case *models.Product:
		return d.ID
	case models.Product:
		return d.ID
	case map[string]interface{}:
		for _, k := range []string{"_id", "id"} {
			if v, ok := d[k]; ok {
				return fmt.Sprint(v)
			}
		}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	var probe struct {
		ID  interface{} `json:"_id"`
		ID2 interface{} `json:"id"`
	}
	if json.Unmarshal(data, &probe) != nil {
		return ""
	}
	if probe.ID != nil {
		return fmt.Sprint(probe.ID)
	}
	if probe.ID2 != nil {
		return fmt.Sprint(probe.ID2)
	}
	return ""
}
