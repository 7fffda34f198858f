// internal/assistant/intent/analyzer.go

package intent

import (
	"context"
	"strings"

	"golang.org/x/text/language"

	"widget-assistant/internal/assistant/conversation"
	"widget-assistant/internal/assistant/lexicon"
	"widget-assistant/internal/assistant/llm"
	"widget-assistant/internal/common/logger"
	"widget-assistant/internal/common/metrics"
)

const classifyTemperature = 0.1

// Analyzer classifies utterances. The zero value is not usable; build one
// with NewAnalyzer.
type Analyzer struct {
	cascade *llm.Cascade
	logger  logger.Logger
}

// NewAnalyzer builds an analyzer. A nil cascade disables the model path
// and every non-trivial query goes through the rules.
func NewAnalyzer(cascade *llm.Cascade, log logger.Logger) *Analyzer {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Analyzer{
		cascade: cascade,
		logger:  log.With(map[string]interface{}{"component": "intent_analyzer"}),
	}
}

// Analyze runs the context pre-bias, then the model, then the rules when
// the model path came back with the fixed fallback. It never fails.
func (a *Analyzer) Analyze(ctx context.Context, query string, conv *conversation.Context, lang language.Tag) Analysis {
	if strings.TrimSpace(query) == "" {
		return Fallback()
	}
	if res, ok := PreBias(query, conv); ok {
		a.logger.Debug("intent resolved from context", map[string]interface{}{
			"intent":   res.Intent,
			"products": len(res.Entities.Products),
		})
		return res
	}

	res := a.ExtractWithModel(ctx, query, conv, lang)
	if res.Source != SourceFallback {
		return res
	}
	rules := Rules(query, conv)
	a.logger.Info("intent resolved by rules", map[string]interface{}{
		"intent": rules.Intent,
	})
	return rules
}

// ExtractWithModel asks the model for intent and entities. After the
// cascade is exhausted it returns Fallback().
func (a *Analyzer) ExtractWithModel(ctx context.Context, query string, conv *conversation.Context, lang language.Tag) Analysis {
	if a.cascade == nil {
		return Fallback()
	}

	cfg := a.cascade.Policy().Defaults
	cfg.Temperature = classifyTemperature
	cfg.JSON = true

	var parsed Analysis
	validate := func(text string) error {
		res, err := parseModelOutput(text)
		if err != nil {
			return err
		}
		parsed = res
		return nil
	}

	result, err := a.cascade.Run(ctx, buildPrompt(query, conv, lang), &cfg, validate)
	if err != nil {
		metrics.LLMFallbacks.WithLabelValues("intent").Inc()
		a.logger.Warn("intent extraction fell back", map[string]interface{}{
			"attempts": len(result.Attempts),
			"error":    err.Error(),
		})
		return Fallback()
	}

	a.logger.Debug("intent extracted", map[string]interface{}{
		"intent": parsed.Intent,
		"model":  result.Model,
	})
	return parsed
}

// PreBias resolves follow-ups such as "a helmu k tomu?" without a model
// call: accessory vocabulary together with a deictic pronoun, or with
// products already referenced by the conversation.
func PreBias(query string, conv *conversation.Context) (Analysis, bool) {
	folded := lexicon.Fold(query)
	tokens := lexicon.Tokens(folded)
	if !hasAccessoryVocabulary(tokens) {
		return Analysis{}, false
	}
	for _, other := range [][]string{serviceStems, orderStems, shippingStems, comparisonStems, technicalStems} {
		if matchStems(folded, tokens, other) {
			return Analysis{}, false
		}
	}
	var refs []string
	if conv != nil {
		refs = conv.ProductReferences()
	}
	if !hasDeictic(tokens) && len(refs) == 0 {
		return Analysis{}, false
	}

	e := ruleEntities(query, folded, tokens)
	e.Products = append(e.Products, refs...)
	return Analysis{
		Intent:     AccessoryRecommendation,
		Entities:   e.normalized(),
		Confidence: ConfidenceContext,
		Source:     SourceContext,
	}, true
}
