// internal/assistant/orchestrator/orchestrator.go

// Package orchestrator runs one conversational turn: analyze, retrieve
// knowledge, dispatch to an intent handler, generate the reply and attach
// metadata. GenerateResponse never fails.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	"widget-assistant/internal/assistant/conversation"
	"widget-assistant/internal/assistant/intent"
	"widget-assistant/internal/assistant/knowledge"
	"widget-assistant/internal/assistant/llm"
	"widget-assistant/internal/assistant/scoring"
	"widget-assistant/internal/common/logger"
	"widget-assistant/internal/common/metrics"
	"widget-assistant/internal/models"
)

// Reply sources.
const (
	SourceAI       = "ai"
	SourceTemplate = "template"
	SourcePhrase   = "phrase"
	SourceFallback = "fallback"
)

const (
	defaultMaxRecommendations = 3
	candidateLimit            = 20
	knowledgeItemLimit        = 5
	replyTemperature          = 0.7
)

// Knowledge is the catalog surface used by a turn. Every call is scoped by
// the tenant's user id.
type Knowledge interface {
	FindProductsByName(ctx context.Context, userID, name string, limit int) ([]models.Product, error)
	FindProductsByCategory(ctx context.Context, userID, category string, limit int) ([]models.Product, error)
	FindProductsByQuery(ctx context.Context, userID, query string, limit int) ([]models.Product, error)
	FindProductByID(ctx context.Context, userID, id string) (*models.Product, error)
	FindAccessories(ctx context.Context, userID string, p *models.Product, limit int) ([]models.Product, error)
	GetProductComparison(ctx context.Context, userID, id1, id2 string, lang language.Tag) (*knowledge.Comparison, error)
	Categories(ctx context.Context, userID string) (map[string]int, error)
	Template(ctx context.Context, userID, key, lang string) (string, bool)
	MatchCommonPhrase(ctx context.Context, userID, query, lang string) (string, bool)
	FindQAItemsByKeyword(ctx context.Context, userID, keyword string, limit int) ([]models.QAItem, error)
	FindWidgetFAQsByKeyword(ctx context.Context, userID, keyword string, limit int) ([]models.WidgetFAQ, error)
}

// IntentAnalyzer is satisfied by *intent.Analyzer.
type IntentAnalyzer interface {
	Analyze(ctx context.Context, query string, conv *conversation.Context, lang language.Tag) intent.Analysis
}

// TurnRecorder receives per-turn telemetry.
type TurnRecorder interface {
	RecordTurn(ctx context.Context, intent, source, language string, d time.Duration)
}

type Request struct {
	Query    string                `json:"query"`
	Context  *conversation.Context `json:"-"`
	Language string                `json:"language"`
	UserID   string                `json:"user_id"`
}

type Response struct {
	Reply           string   `json:"reply"`
	Source          string   `json:"source"`
	ConfidenceScore float64  `json:"confidence_score"`
	Metadata        Metadata `json:"metadata"`

	// Context is the conversation after this turn.
	Context *conversation.Context `json:"-"`
}

type Metadata struct {
	Intent              string                `json:"intent"`
	QueryType           string                `json:"query_type"`
	Entities            intent.Entities       `json:"entities"`
	Knowledge           KnowledgeSummary      `json:"knowledge"`
	FollowupQuestions   []string              `json:"followup_questions"`
	RecommendedProducts []Recommendation      `json:"recommended_products,omitempty"`
	ComparisonData      *knowledge.Comparison `json:"comparison_data,omitempty"`
	Accessories         []Recommendation      `json:"accessories,omitempty"`
	Escalated           bool                  `json:"escalated,omitempty"`
	NeedsClarification  bool                  `json:"needs_clarification,omitempty"`
	Language            string                `json:"language"`
	AnalysisSource      string                `json:"analysis_source"`
	Model               string                `json:"model,omitempty"`
}

// KnowledgeSummary tells the frontend what the reply was grounded on.
type KnowledgeSummary struct {
	Products int      `json:"products"`
	QAItems  int      `json:"qa_items"`
	FAQs     int      `json:"faqs"`
	Sources  []string `json:"sources"`
}

// Orchestrator is safe for concurrent turns on different conversations.
type Orchestrator struct {
	kb          Knowledge
	analyzer    IntentAnalyzer
	cascade     *llm.Cascade
	scorer      *scoring.Scorer
	escalator   Escalator
	recorder    TurnRecorder
	logger      logger.Logger
	maxRecs     int
	defaultLang string
	convOpts    []conversation.Option
}

type Option func(*Orchestrator)

func WithEscalator(e Escalator) Option {
	return func(o *Orchestrator) { o.escalator = e }
}

func WithScorer(s *scoring.Scorer) Option {
	return func(o *Orchestrator) { o.scorer = s }
}

func WithMaxRecommendations(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRecs = n
		}
	}
}

// WithDefaultLanguage sets the language used when a request names none.
func WithDefaultLanguage(code string) Option {
	return func(o *Orchestrator) { o.defaultLang = code }
}

// WithContextOptions are applied to contexts the orchestrator creates or
// receives.
func WithContextOptions(opts ...conversation.Option) Option {
	return func(o *Orchestrator) { o.convOpts = append(o.convOpts, opts...) }
}

func WithRecorder(r TurnRecorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// New builds an orchestrator. cascade may be nil, in which case every reply
// comes from templates.
func New(kb Knowledge, analyzer IntentAnalyzer, cascade *llm.Cascade, log logger.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	o := &Orchestrator{
		kb:          kb,
		analyzer:    analyzer,
		cascade:     cascade,
		scorer:      scoring.Default(),
		logger:      log.With(map[string]interface{}{"component": "orchestrator"}),
		maxRecs:     defaultMaxRecommendations,
		defaultLang: "cs",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// turn carries the state of one request through the pipeline.
type turn struct {
	req       Request
	userID    string
	lang      language.Tag
	langCode  string
	conv      *conversation.Context
	analysis  intent.Analysis
	know      retrieved
	resp      *Response
	facts     []string          // fed to the generation prompt
	vars      map[string]string // tenant template placeholders
	fallback  string            // deterministic reply
	tplKey    string            // tenant template overriding fallback
	skipModel bool
}

// GenerateResponse answers one message. Any failure, including a panic,
// ends in a fallback response of the same shape.
func (o *Orchestrator) GenerateResponse(ctx context.Context, req Request) (resp *Response) {
	start := time.Now()
	var t *turn

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("turn panicked", map[string]interface{}{
				"panic":  fmt.Sprint(r),
				"userId": req.UserID,
			})
			resp = o.failedResponse(t)
		}
		elapsed := time.Since(start)
		metrics.AssistantTurns.WithLabelValues(resp.Metadata.Intent, resp.Source).Inc()
		metrics.AssistantTurnDuration.WithLabelValues(resp.Metadata.Intent).Observe(elapsed.Seconds())
		if o.recorder != nil {
			o.recorder.RecordTurn(ctx, resp.Metadata.Intent, resp.Source, resp.Metadata.Language, elapsed)
		}
	}()

	t = o.newTurn(req)
	return o.run(ctx, t)
}

func (o *Orchestrator) newTurn(req Request) *turn {
	code := strings.TrimSpace(req.Language)
	if code == "" {
		code = o.defaultLang
	}
	lang := knowledge.ParseLanguage(code)

	conv := req.Context
	if conv == nil {
		conv = conversation.New("", req.UserID, o.convOpts...)
	} else if len(o.convOpts) > 0 {
		conv.Apply(o.convOpts...)
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = conv.UserID
	}

	t := &turn{
		req:      req,
		userID:   userID,
		lang:     lang,
		langCode: knowledge.LanguageCode(lang),
		conv:     conv,
		analysis: intent.Fallback(),
		vars:     map[string]string{},
	}
	t.resp = &Response{
		Source:  SourceFallback,
		Context: conv,
		Metadata: Metadata{
			Intent:         string(intent.GeneralQuestion),
			QueryType:      queryType(intent.GeneralQuestion),
			Entities:       intent.EmptyEntities(),
			Knowledge:      KnowledgeSummary{Sources: []string{}},
			Language:       t.langCode,
			AnalysisSource: string(intent.SourceFallback),
		},
	}
	return t
}

func (o *Orchestrator) run(ctx context.Context, t *turn) *Response {
	query := strings.TrimSpace(t.req.Query)
	if query == "" {
		t.resp.Reply = o.localized(ctx, t, msgGreeting, text(t.lang, msgGreeting))
		t.resp.Metadata.FollowupQuestions = fallbackFollowups(t.lang)
		return t.resp
	}

	if answer, ok := o.kb.MatchCommonPhrase(ctx, t.userID, query, t.langCode); ok {
		o.logger.Debug("answered from common phrase", map[string]interface{}{"userId": t.userID})
		t.conv.Update(query, string(intent.GeneralQuestion), nil)
		t.resp.Reply = answer
		t.resp.Source = SourcePhrase
		t.resp.ConfidenceScore = 1
		t.resp.Metadata.FollowupQuestions = o.followups(t)
		return t.resp
	}

	// ANALYZE
	t.analysis = o.analyzer.Analyze(ctx, query, t.conv, t.lang)
	t.conv.Update(query, string(t.analysis.Intent), t.analysis.Entities.ContextEntities(t.analysis.Confidence))

	md := &t.resp.Metadata
	md.Intent = string(t.analysis.Intent)
	md.QueryType = queryType(t.analysis.Intent)
	md.Entities = t.analysis.Entities
	md.AnalysisSource = string(t.analysis.Source)
	t.resp.ConfidenceScore = t.analysis.Confidence

	// RETRIEVE_KNOWLEDGE
	t.know = o.retrieve(ctx, t)
	md.Knowledge = t.know.summary()

	// DISPATCH
	switch t.analysis.Intent {
	case intent.ProductRecommendation:
		o.handleRecommendation(ctx, t)
	case intent.ProductComparison:
		o.handleComparison(ctx, t)
	case intent.TechnicalExplanation:
		o.handleTechnical(ctx, t)
	case intent.AccessoryRecommendation:
		o.handleAccessory(ctx, t)
	case intent.CustomerService, intent.OrderStatus, intent.ShippingPayment:
		o.handleCustomerService(ctx, t)
	case intent.StoreNavigation:
		o.handleNavigation(ctx, t)
	default:
		o.handleGeneral(ctx, t)
	}

	// GENERATE_NL_RESPONSE
	o.generate(ctx, t)

	// ATTACH_METADATA
	md.FollowupQuestions = o.followups(t)
	o.logger.Info("turn completed", map[string]interface{}{
		"userId":         t.userID,
		"intent":         md.Intent,
		"source":         t.resp.Source,
		"analysisSource": md.AnalysisSource,
		"products":       len(md.RecommendedProducts),
	})
	return t.resp
}

// generate asks the model for the final wording. It keeps the handler's
// deterministic reply on failure, or when the handler asked to skip.
func (o *Orchestrator) generate(ctx context.Context, t *turn) {
	fallbackKey := t.tplKey
	if fallbackKey == "" {
		fallbackKey = string(t.analysis.Intent)
	}
	if t.skipModel || o.cascade == nil {
		o.useFallback(ctx, t, fallbackKey)
		return
	}

	cfg := o.cascade.Policy().Defaults
	cfg.Temperature = replyTemperature
	validate := func(s string) error {
		if strings.TrimSpace(llm.StripCodeFence(s)) == "" {
			return fmt.Errorf("empty reply")
		}
		return nil
	}
	result, err := o.cascade.Run(ctx, o.buildPrompt(t), &cfg, validate)
	if err != nil {
		metrics.LLMFallbacks.WithLabelValues("response").Inc()
		o.logger.Warn("reply generation fell back", map[string]interface{}{
			"intent": t.analysis.Intent,
			"error":  err.Error(),
		})
		o.useFallback(ctx, t, fallbackKey)
		return
	}
	t.resp.Reply = strings.TrimSpace(llm.StripCodeFence(result.Text))
	t.resp.Source = SourceAI
	t.resp.Metadata.Model = result.Model
}

func (o *Orchestrator) useFallback(ctx context.Context, t *turn, key string) {
	if tpl, ok := o.kb.Template(ctx, t.userID, key, t.langCode); ok {
		t.resp.Reply = fillTemplate(tpl, t.vars)
		t.resp.Source = SourceTemplate
		return
	}
	t.resp.Reply = t.fallback
	if t.resp.Reply == "" {
		t.resp.Reply = text(t.lang, msgGeneral)
	}
	t.resp.Source = SourceFallback
}

// localized returns a tenant template for key when one exists, def otherwise.
func (o *Orchestrator) localized(ctx context.Context, t *turn, key, def string) string {
	if tpl, ok := o.kb.Template(ctx, t.userID, key, t.langCode); ok {
		return fillTemplate(tpl, t.vars)
	}
	return def
}

// failedResponse is built after a panic. It touches nothing that could
// panic again.
func (o *Orchestrator) failedResponse(t *turn) *Response {
	lang := knowledge.Czech
	code := "cs"
	var conv *conversation.Context
	if t != nil {
		lang, code, conv = t.lang, t.langCode, t.conv
	}
	return &Response{
		Reply:   text(lang, msgTurnFailed),
		Source:  SourceFallback,
		Context: conv,
		Metadata: Metadata{
			Intent:            string(intent.GeneralQuestion),
			QueryType:         queryType(intent.GeneralQuestion),
			Entities:          intent.EmptyEntities(),
			Knowledge:         KnowledgeSummary{Sources: []string{}},
			FollowupQuestions: fallbackFollowups(lang),
			Language:          code,
			AnalysisSource:    string(intent.SourceFallback),
		},
	}
}

func (o *Orchestrator) buildPrompt(t *turn) string {
	var parts []string

	parts = append(parts, "You are a friendly shopping assistant of an e-shop. Answer the customer using ONLY the facts below.")
	if t.langCode == "en" {
		parts = append(parts, "Reply in English.")
	} else {
		parts = append(parts, "Reply in Czech.")
	}
	parts = append(parts, fmt.Sprintf("\nCustomer message: %s", t.req.Query))
	parts = append(parts, fmt.Sprintf("Detected intent: %s", t.analysis.Intent))

	if recent := t.conv.RecentQueries(4); len(recent) > 1 {
		parts = append(parts, "\nEarlier messages:")
		for _, q := range recent[:len(recent)-1] {
			parts = append(parts, "- "+q)
		}
	}

	if len(t.facts) > 0 {
		parts = append(parts, "\nFacts:")
		for _, f := range t.facts {
			parts = append(parts, "- "+f)
		}
	}

	if t.fallback != "" {
		parts = append(parts, "\nDraft answer you may rephrase:")
		parts = append(parts, t.fallback)
	}

	parts = append(parts, "\nInstructions:")
	parts = append(parts, "- Do not invent products, prices or policies")
	parts = append(parts, "- Keep it short: at most 5 sentences")
	parts = append(parts, "- Plain text, no markdown headings")

	parts = append(parts, "\nAnswer:")
	return strings.Join(parts, "\n")
}

func queryType(i intent.Intent) string {
	switch i {
	case intent.ProductRecommendation:
		return "product_search"
	case intent.ProductComparison:
		return "comparison"
	case intent.TechnicalExplanation:
		return "technical"
	case intent.AccessoryRecommendation:
		return "accessory"
	case intent.StoreNavigation:
		return "navigation"
	case intent.CustomerService, intent.OrderStatus, intent.ShippingPayment:
		return "support"
	default:
		return "general"
	}
}
