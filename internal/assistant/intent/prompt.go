// internal/assistant/intent/prompt.go

package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"widget-assistant/internal/assistant/conversation"
	"widget-assistant/internal/assistant/knowledge"
	"widget-assistant/internal/assistant/llm"
	"widget-assistant/internal/common/validation"
)

var intentDescriptions = map[Intent]string{
	ProductRecommendation:   "the user wants a product suggested",
	ProductComparison:       "the user compares two or more products",
	TechnicalExplanation:    "the user asks how something works or what a parameter means",
	AccessoryRecommendation: "the user wants accessories for a product",
	StoreNavigation:         "the user looks for a section, category or page of the shop",
	ShippingPayment:         "delivery, shipping costs or payment methods",
	CustomerService:         "returns, complaints, warranty, repairs or a request for a human",
	OrderStatus:             "the state of an existing order",
	GeneralQuestion:         "anything else",
}

const entitySchemaExample = `{
  "intent": "<one of the intents>",
  "entities": {
    "products": ["product names mentioned"],
    "categories": ["product categories"],
    "features": ["required features"],
    "brands": ["brands"],
    "price_range": {"min": null, "max": null},
    "comparison": false,
    "accessories": ["accessory types"],
    "service_requests": ["return | complaint | warranty | repair | human_agent"],
    "order_number": "",
    "email": ""
  }
}`

// outputSchema accepts a model reply only with a known intent and an
// entities object.
var outputSchema = validation.MustSchema(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"intent", "entities"},
	"properties": map[string]interface{}{
		"intent": map[string]interface{}{
			"type": "string",
			"enum": intentEnum(),
		},
		"entities": map[string]interface{}{"type": "object"},
	},
})

func intentEnum() []interface{} {
	out := make([]interface{}, len(All))
	for i, it := range All {
		out[i] = string(it)
	}
	return out
}

// buildPrompt asks the model for a single JSON object.
func buildPrompt(query string, conv *conversation.Context, lang language.Tag) string {
	var b strings.Builder
	b.WriteString("You classify messages sent to the support chat of an e-commerce shop.\n")
	b.WriteString("Return exactly one JSON object and nothing else.\n\nIntents:\n")
	for _, it := range All {
		fmt.Fprintf(&b, "- %s: %s\n", it, intentDescriptions[it])
	}
	b.WriteString("\nReply format:\n")
	b.WriteString(entitySchemaExample)
	b.WriteString("\n")

	if conv != nil {
		if qs := conv.RecentQueries(3); len(qs) > 0 {
			b.WriteString("\nPrevious messages:\n")
			for _, q := range qs {
				fmt.Fprintf(&b, "- %s\n", q)
			}
		}
		if is := conv.RecentIntents(3); len(is) > 0 {
			fmt.Fprintf(&b, "Previous intents: %s\n", strings.Join(is, ", "))
		}
		if known := knownAttributes(conv); known != "" {
			fmt.Fprintf(&b, "Known preferences: %s\n", known)
		}
	}

	fmt.Fprintf(&b, "\nThe user writes in language %q. Keep extracted values in that language.\n", knowledge.LanguageCode(lang))
	fmt.Fprintf(&b, "Message: %s\n", strings.TrimSpace(query))
	return b.String()
}

// knownAttributes renders the domain state as compact JSON.
func knownAttributes(conv *conversation.Context) string {
	known := map[string]interface{}{}
	if conv.Category != "" {
		known["category"] = conv.Category
	}
	if conv.Subcategory != "" {
		known["subcategory"] = conv.Subcategory
	}
	if conv.BudgetRange.IsSet() {
		known["budget"] = conv.BudgetRange
	}
	if len(conv.RequiredFeatures) > 0 {
		known["features"] = conv.RequiredFeatures
	}
	for k, v := range conv.Attributes {
		known[k] = v
	}
	if len(known) == 0 {
		return ""
	}
	data, err := json.Marshal(known)
	if err != nil {
		return ""
	}
	return string(data)
}

// parseModelOutput validates a reply and converts it to an Analysis.
func parseModelOutput(text string) (Analysis, error) {
	body := []byte(llm.ExtractJSONObject(text))
	if res := outputSchema.ValidateJSON(body); !res.Valid {
		return Analysis{}, fmt.Errorf("model reply rejected: %s", res.Error())
	}
	var raw struct {
		Intent   string                 `json:"intent"`
		Entities map[string]interface{} `json:"entities"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Analysis{}, fmt.Errorf("decode model reply: %w", err)
	}
	return Analysis{
		Intent:     Parse(raw.Intent),
		Entities:   entitiesFromMap(raw.Entities),
		Confidence: ConfidenceAI,
		Source:     SourceAI,
	}, nil
}
