package orchestrator

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"widget-assistant/internal/assistant/conversation"
	"widget-assistant/internal/assistant/intent"
	"widget-assistant/internal/assistant/knowledge"
	"widget-assistant/internal/assistant/llm"
	"widget-assistant/internal/common/logger"
	"widget-assistant/internal/models"
)

// ==========================
// Fakes
// ==========================

const (
	shop  = "shop-1"
	other = "shop-2"
)

type fakeCatalog struct {
	products  []models.Product
	templates []models.ResponseTemplate
	phrases   []models.CommonPhrase
}

func (f *fakeCatalog) ListProducts(_ context.Context, _ string) ([]models.Product, error) {
	return append([]models.Product(nil), f.products...), nil
}

func (f *fakeCatalog) SearchProducts(_ context.Context, _, _ string, _ int) ([]models.Product, error) {
	return nil, nil
}

func (f *fakeCatalog) ListTemplates(_ context.Context, _ string) ([]models.ResponseTemplate, error) {
	return f.templates, nil
}

func (f *fakeCatalog) ListPhrases(_ context.Context, _ string) ([]models.CommonPhrase, error) {
	return f.phrases, nil
}

type fakeQA struct {
	items []models.QAItem
	faqs  []models.WidgetFAQ
}

func (f *fakeQA) FindQAItems(_ context.Context, _, _ string, _ int) ([]models.QAItem, error) {
	return f.items, nil
}

func (f *fakeQA) FindWidgetFAQs(_ context.Context, _, _ string, _ int) ([]models.WidgetFAQ, error) {
	return f.faqs, nil
}

type fakeEscalator struct {
	mu      sync.Mutex
	notices []EscalationNotice
	err     error
}

func (f *fakeEscalator) Escalate(_ context.Context, n EscalationNotice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
	return f.err
}

type fakeRecorder struct {
	intents []string
	sources []string
	langs   []string
}

func (f *fakeRecorder) RecordTurn(_ context.Context, intent, source, language string, _ time.Duration) {
	f.intents = append(f.intents, intent)
	f.sources = append(f.sources, source)
	f.langs = append(f.langs, language)
}

// panickingKB blows up on the first lookup of a turn.
type panickingKB struct {
	Knowledge
}

func (panickingKB) MatchCommonPhrase(context.Context, string, string, string) (string, bool) {
	panic("catalog exploded")
}

func testProducts() []models.Product {
	return []models.Product{
		{
			ID: "b1", UserID: shop, Name: "Horské kolo Trek Marlin", Category: "kola", Subcategory: "horská kola",
			Brand: "Trek", Features: []string{"Odpružení", "Kotoučové brzdy"},
			Pricing: models.Pricing{OneTime: 15990.0, Currency: "CZK"}, AdminPriority: 8,
			ImageURL: "https://shop.example/b1.jpg", ProductURL: "https://shop.example/b1",
		},
		{
			ID: "b2", UserID: shop, Name: "Silniční kolo Specialized Allez", Category: "kola",
			Brand: "Specialized", Features: []string{"Karbonová vidlice", "Kotoučové brzdy"},
			Pricing: models.Pricing{OneTime: "24 990 Kč"},
		},
		{
			ID: "h1", UserID: shop, Name: "Cyklistická helma Trek Starvos", Category: "helmy",
			Brand: "Trek", Features: []string{"MIPS"}, Pricing: models.Pricing{OneTime: 1290.0},
			CompatibleWith: []string{"b1"},
		},
		{
			ID: "t1", UserID: shop, Name: "Televize Samsung QLED 55", Category: "televize",
			Brand: "Samsung", Features: []string{"4K", "Smart TV"}, Pricing: models.Pricing{OneTime: 18990.0},
		},
		{
			ID: "a1", UserID: shop, Name: "Sluchátka Sony", Category: "příslušenství",
			Description: "Bezdrátová sluchátka pro televize Samsung", Pricing: models.Pricing{OneTime: 2490.0},
		},
		{
			ID: "x1", UserID: other, Name: "Horské kolo jiného obchodu", Category: "kola",
			Brand: "Trek", Pricing: models.Pricing{OneTime: 9990.0},
		},
	}
}

type testSetup struct {
	orch      *Orchestrator
	catalog   *fakeCatalog
	qa        *fakeQA
	escalator *fakeEscalator
	recorder  *fakeRecorder
}

// newTestOrchestrator classifies with the rules only; gen, when set,
// drives the reply cascade.
func newTestOrchestrator(t *testing.T, gen llm.Generator, opts ...Option) *testSetup {
	t.Helper()
	s := &testSetup{
		catalog: &fakeCatalog{
			products: testProducts(),
			phrases: []models.CommonPhrase{
				{UserID: shop, Patterns: []string{"otevírací doba"}, Language: "cs", Answer: "Po–Pá 9–17."},
			},
		},
		qa:        &fakeQA{},
		escalator: &fakeEscalator{},
		recorder:  &fakeRecorder{},
	}
	log := logger.NewTestLogger(t)
	kb := knowledge.New(s.catalog, log, knowledge.WithQARepository(s.qa))

	var cascade *llm.Cascade
	if gen != nil {
		policy := llm.Policy{
			Models:         []string{"m-reply", "m-reply-large"},
			MaxAttempts:    2,
			BaseDelay:      10 * time.Millisecond,
			MaxDelay:       20 * time.Millisecond,
			CallTimeout:    time.Second,
			FinalMaxTokens: 128,
			Defaults:       llm.GenerateConfig{Temperature: 0.3, MaxTokens: 512},
		}
		noSleep := func(context.Context, time.Duration) error { return nil }
		cascade = llm.NewCascade(gen, policy, log, llm.WithSleep(noSleep))
	}

	opts = append([]Option{WithEscalator(s.escalator), WithRecorder(s.recorder)}, opts...)
	s.orch = New(kb, intent.NewAnalyzer(nil, log), cascade, log, opts...)
	return s
}

func recIDs(recs []Recommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ProductID)
	}
	return out
}

func assertWellFormed(t *testing.T, resp *Response) {
	t.Helper()
	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.Reply)
	assert.NotEmpty(t, resp.Source)
	assert.True(t, intent.Valid(resp.Metadata.Intent), resp.Metadata.Intent)
	assert.NotEmpty(t, resp.Metadata.QueryType)
	assert.NotNil(t, resp.Metadata.Knowledge.Sources)
	assert.NotEmpty(t, resp.Metadata.FollowupQuestions)
	assert.LessOrEqual(t, len(resp.Metadata.FollowupQuestions), maxFollowups)
	assert.Contains(t, []string{"cs", "en"}, resp.Metadata.Language)
	assert.GreaterOrEqual(t, resp.ConfidenceScore, 0.0)
	assert.LessOrEqual(t, resp.ConfidenceScore, 1.0)
}

// ==========================
// Recommendation
// ==========================

func TestGenerateResponse_RecommendationWithoutModel(t *testing.T) {
	s := newTestOrchestrator(t, nil)
	conv := conversation.New("conv-1", shop)

	resp := s.orch.GenerateResponse(context.Background(), Request{
		Query:    "Potřebuji horské kolo do 20000 Kč s odpružením",
		Context:  conv,
		Language: "cs",
		UserID:   shop,
	})

	assertWellFormed(t, resp)
	assert.Equal(t, SourceFallback, resp.Source)
	assert.Equal(t, "product_recommendation", resp.Metadata.Intent)
	assert.Equal(t, "product_search", resp.Metadata.QueryType)
	assert.Equal(t, "rules", resp.Metadata.AnalysisSource)
	assert.Equal(t, intent.ConfidenceRules, resp.ConfidenceScore)

	require.Equal(t, []string{"b1", "b2"}, recIDs(resp.Metadata.RecommendedProducts))
	top := resp.Metadata.RecommendedProducts[0]
	require.NotNil(t, top.Price)
	assert.Equal(t, 15990.0, *top.Price)
	assert.NotEmpty(t, top.FormattedPrice)
	assert.Contains(t, top.Explanation, "odpovídá vašemu rozpočtu")
	assert.Equal(t, 1.0, top.Components.PriceScore)
	assert.Equal(t, "https://shop.example/b1.jpg", top.ImageURL)
	assert.Equal(t, "https://shop.example/b1", top.ProductURL)
	assert.Greater(t, top.Score, resp.Metadata.RecommendedProducts[1].Score)

	assert.True(t, strings.HasPrefix(resp.Reply, "Podle vašich požadavků doporučuji:"))
	assert.Contains(t, resp.Reply, "Horské kolo Trek Marlin")
	assert.NotContains(t, resp.Reply, "jiného obchodu")

	// context is updated in place
	assert.Same(t, conv, resp.Context)
	assert.Equal(t, "kolo", conv.Category)
	refs, ok := conv.Attributes["recommended_products"].AsList()
	require.True(t, ok)
	assert.Equal(t, []string{"b1", "b2"}, refs)

	assert.Equal(t, []string{"product_recommendation"}, s.recorder.intents)
	assert.Equal(t, []string{SourceFallback}, s.recorder.sources)
}

func TestGenerateResponse_MaxRecommendations(t *testing.T) {
	s := newTestOrchestrator(t, nil, WithMaxRecommendations(1))
	resp := s.orch.GenerateResponse(context.Background(), Request{
		Query:  "Potřebuji horské kolo do 20000 Kč s odpružením",
		UserID: shop,
	})
	assert.Equal(t, []string{"b1"}, recIDs(resp.Metadata.RecommendedProducts))
}

func TestGenerateResponse_AsksForClarification(t *testing.T) {
	s := newTestOrchestrator(t, nil)
	resp := s.orch.GenerateResponse(context.Background(), Request{
		Query:    "Chci kolo",
		Language: "cs",
		UserID:   shop,
	})

	assertWellFormed(t, resp)
	assert.Equal(t, "product_recommendation", resp.Metadata.Intent)
	assert.True(t, resp.Metadata.NeedsClarification)
	assert.Empty(t, resp.Metadata.RecommendedProducts)
	assert.Contains(t, resp.Reply, "Jaký máte rozpočet?")
	assert.NotContains(t, resp.Reply, "Jaký typ produktu hledáte?", "category is already known")
}

func TestGenerateResponse_ClarifyTemplateOverride(t *testing.T) {
	s := newTestOrchestrator(t, nil)
	s.catalog.templates = []models.ResponseTemplate{
		{UserID: shop, Key: "clarify", Language: "cs", Text: "Upřesněte prosím: {questions}"},
	}
	resp := s.orch.GenerateResponse(context.Background(), Request{Query: "Chci kolo", UserID: shop})

	assert.Equal(t, SourceTemplate, resp.Source)
	assert.True(t, strings.HasPrefix(resp.Reply, "Upřesněte prosím: "))
	assert.Contains(t, resp.Reply, "Jaký máte rozpočet?")
}

// ==========================
// Generation
// ==========================

func TestGenerateResponse_ModelReply(t *testing.T) {
	var prompts []string
	gen := llm.GeneratorFunc(func(_ context.Context, model, prompt string, _ llm.GenerateConfig) (string, error) {
		prompts = append(prompts, prompt)
		return "Doporučuji Horské kolo Trek Marlin za 15 990 Kč.", nil
	})
	s := newTestOrchestrator(t, gen)

	resp := s.orch.GenerateResponse(context.Background(), Request{
		Query:  "Potřebuji horské kolo do 20000 Kč s odpružením",
		UserID: shop,
	})

	assertWellFormed(t, resp)
	assert.Equal(t, SourceAI, resp.Source)
	assert.Equal(t, "m-reply", resp.Metadata.Model)
	assert.Equal(t, "Doporučuji Horské kolo Trek Marlin za 15 990 Kč.", resp.Reply)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Reply in Czech.")
	assert.Contains(t, prompts[0], "Recommended: Horské kolo Trek Marlin")
	assert.NotContains(t, prompts[0], "jiného obchodu")
	assert.Equal(t, []string{SourceAI}, s.recorder.sources)
}

func TestGenerateResponse_ModelFailureUsesTenantTemplate(t *testing.T) {
	calls := 0
	gen := llm.GeneratorFunc(func(context.Context, string, string, llm.GenerateConfig) (string, error) {
		calls++
		return "", stderrors.New("503 overloaded")
	})
	s := newTestOrchestrator(t, gen)
	s.catalog.templates = []models.ResponseTemplate{
		{UserID: shop, Key: "product_recommendation", Language: "cs", Text: "Máme pro vás {count} tipy: {products}"},
		{UserID: shop, Key: "product_recommendation", Language: "en", Text: "English only"},
	}

	resp := s.orch.GenerateResponse(context.Background(), Request{
		Query:    "Potřebuji horské kolo do 20000 Kč s odpružením",
		Language: "cs",
		UserID:   shop,
	})

	assert.Equal(t, 2, calls)
	assert.Equal(t, SourceTemplate, resp.Source)
	assert.Equal(t, "Máme pro vás 2 tipy: Horské kolo Trek Marlin, Silniční kolo Specialized Allez", resp.Reply)
	assert.Len(t, resp.Metadata.RecommendedProducts, 2)
}

func TestGenerateResponse_BlankModelReplyIsRetried(t *testing.T) {
	replies := []string{"  ", "```\nDobrý den, rádi pomůžeme.\n```"}
	n := 0
	gen := llm.GeneratorFunc(func(context.Context, string, string, llm.GenerateConfig) (string, error) {
		r := replies[n]
		n++
		return r, nil
	})
	s := newTestOrchestrator(t, gen)
	resp := s.orch.GenerateResponse(context.Background(), Request{Query: "Dobrý den, mám dotaz", UserID: shop})

	assert.Equal(t, SourceAI, resp.Source)
	assert.Equal(t, "Dobrý den, rádi pomůžeme.", resp.Reply)
	assert.Equal(t, "m-reply-large", resp.Metadata.Model)
}

// ==========================
// Comparison and accessories
// ==========================

func TestGenerateResponse_ComparisonFromContext(t *testing.T) {
	s := newTestOrchestrator(t, nil)
	conv := conversation.New("conv-2", shop)
	conv.Attributes["recommended_products"] = conversation.List([]string{"b1", "b2"})

	resp := s.orch.GenerateResponse(context.Background(), Request{
		Query:   "Můžete je porovnat?",
		Context: conv,
		UserID:  shop,
	})

	assertWellFormed(t, resp)
	assert.Equal(t, "product_comparison", resp.Metadata.Intent)
	assert.Equal(t, "comparison", resp.Metadata.QueryType)
	require.NotNil(t, resp.Metadata.ComparisonData)
	cmp := resp.Metadata.ComparisonData
	assert.Equal(t, "b1", cmp.CheaperProductID)
	assert.Equal(t, []string{"Kotoučové brzdy"}, cmp.CommonFeatures)
	assert.Equal(t, strings.TrimSpace(cmp.PriceComparison+" "+cmp.OverallRecommendation), resp.Reply)
	assert.ElementsMatch(t, []string{"b1", "b2"}, recIDs(resp.Metadata.RecommendedProducts))
}

func TestGenerateResponse_ComparisonNeedsTwoProducts(t *testing.T) {
	s := newTestOrchestrator(t, nil)
	resp := s.orch.GenerateResponse(context.Background(), Request{
		Query:    "Can you compare them?",
		Language: "en",
		UserID:   shop,
	})

	assert.Equal(t, "product_comparison", resp.Metadata.Intent)
	assert.Nil(t, resp.Metadata.ComparisonData)
	assert.Equal(t, text(knowledge.English, msgCompareNeedTwo), resp.Reply)
}

func TestGenerateResponse_AccessoryFollowUp(t *testing.T) {
	s := newTestOrchestrator(t, nil)
	conv := conversation.New("conv-3", shop)
	ctx := context.Background()

	first := s.orch.GenerateResponse(ctx, Request{
		Query:   "Potřebuji horské kolo do 20000 Kč s odpružením",
		Context: conv,
		UserID:  shop,
	})
	require.Equal(t, "b1", first.Metadata.RecommendedProducts[0].ProductID)

	resp := s.orch.GenerateResponse(ctx, Request{Query: "A helmu k tomu?", Context: conv, UserID: shop})

	assertWellFormed(t, resp)
	assert.Equal(t, "accessory_recommendation", resp.Metadata.Intent)
	assert.Equal(t, "context", resp.Metadata.AnalysisSource)
	assert.Equal(t, []string{"h1"}, recIDs(resp.Metadata.Accessories))
	assert.Contains(t, resp.Reply, "K produktu Horské kolo Trek Marlin se hodí:")
	assert.Contains(t, resp.Reply, "Cyklistická helma Trek Starvos")
	assert.Equal(t, []string{"Potřebuji horské kolo do 20000 Kč s odpružením", "A helmu k tomu?"}, conv.RecentQueries(5))
}

// ==========================
// Support, navigation, phrases
// ==========================

func TestGenerateResponse_HumanHandoffEscalates(t *testing.T) {
	s := newTestOrchestrator(t, nil)
	resp := s.orch.GenerateResponse(context.Background(), Request{
		Query:  "Chci mluvit s operátorem, můj email je jana@example.cz",
		UserID: shop,
	})

	assertWellFormed(t, resp)
	assert.Equal(t, "customer_service", resp.Metadata.Intent)
	assert.Equal(t, "support", resp.Metadata.QueryType)
	assert.True(t, resp.Metadata.Escalated)
	assert.Equal(t, text(knowledge.Czech, msgHandoff), resp.Reply)

	require.Len(t, s.escalator.notices, 1)
	n := s.escalator.notices[0]
	assert.Equal(t, ReasonHumanAgent, n.Reason)
	assert.Equal(t, shop, n.UserID)
	assert.Equal(t, "jana@example.cz", n.Email)
	assert.Equal(t, "cs", n.Language)
	assert.NotEmpty(t, n.ConversationID)
}

func TestGenerateResponse_FailedEscalationIsNotReported(t *testing.T) {
	s := newTestOrchestrator(t, nil)
	s.escalator.err = stderrors.New("sns down")
	resp := s.orch.GenerateResponse(context.Background(), Request{Query: "Chci mluvit s operátorem", UserID: shop})

	assert.False(t, resp.Metadata.Escalated)
	assert.Equal(t, text(knowledge.Czech, msgCustomerService), resp.Reply)
}

func TestGenerateResponse_OrderStatus(t *testing.T) {
	s := newTestOrchestrator(t, nil)
	resp := s.orch.GenerateResponse(context.Background(), Request{
		Query:  "Kde je moje objednávka 12345678?",
		UserID: shop,
	})

	assert.Equal(t, "order_status", resp.Metadata.Intent)
	assert.Equal(t, "12345678", resp.Metadata.Entities.OrderNumber)
	assert.True(t, resp.Metadata.Escalated)
	assert.Contains(t, resp.Reply, "12345678")
	require.Len(t, s.escalator.notices, 1)
	assert.Equal(t, ReasonOrderStatus, s.escalator.notices[0].Reason)
	assert.Equal(t, "12345678", s.escalator.notices[0].OrderNumber)
}

func TestGenerateResponse_ShippingAnsweredFromFAQ(t *testing.T) {
	s := newTestOrchestrator(t, nil)
	s.qa.faqs = []models.WidgetFAQ{
		{UserID: shop, Question: "Kolik stojí doprava?", Answer: "Doprava je zdarma od 2 000 Kč.", IsActive: true},
		{UserID: other, Question: "Cizí FAQ", Answer: "cizí", IsActive: true},
		{UserID: shop, Question: "Skrytá", Answer: "neaktivní", IsActive: false},
	}

	resp := s.orch.GenerateResponse(context.Background(), Request{Query: "Kolik stojí doprava?", UserID: shop})

	assert.Equal(t, "shipping_payment", resp.Metadata.Intent)
	assert.Equal(t, "Doprava je zdarma od 2 000 Kč.", resp.Reply)
	assert.Equal(t, 1, resp.Metadata.Knowledge.FAQs)
	assert.Contains(t, resp.Metadata.Knowledge.Sources, "widget_faqs")
	assert.NotContains(t, resp.Metadata.FollowupQuestions, "Kolik stojí doprava?")
}

func TestGenerateResponse_Navigation(t *testing.T) {
	s := newTestOrchestrator(t, nil)
	resp := s.orch.GenerateResponse(context.Background(), Request{Query: "Jaké kategorie máte?", UserID: shop})

	assert.Equal(t, "store_navigation", resp.Metadata.Intent)
	assert.Equal(t, "V našem obchodě najdete tyto kategorie: kola, helmy, příslušenství, televize.", resp.Reply)
}

func TestGenerateResponse_CommonPhrase(t *testing.T) {
	gen := llm.GeneratorFunc(func(context.Context, string, string, llm.GenerateConfig) (string, error) {
		t.Fatal("model must not be called for a canned answer")
		return "", nil
	})
	s := newTestOrchestrator(t, gen)
	resp := s.orch.GenerateResponse(context.Background(), Request{Query: "Jaká je otevírací doba?", UserID: shop})

	assertWellFormed(t, resp)
	assert.Equal(t, SourcePhrase, resp.Source)
	assert.Equal(t, "Po–Pá 9–17.", resp.Reply)
	assert.Equal(t, 1.0, resp.ConfidenceScore)
}

// ==========================
// Fallback totality
// ==========================

func TestGenerateResponse_NeverFails(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		lang string
	}{
		{name: "empty query", req: Request{Query: "", UserID: shop}, lang: "cs"},
		{name: "whitespace query", req: Request{Query: "   \n", UserID: shop, Language: "en"}, lang: "en"},
		{name: "nil context, no user", req: Request{Query: "Chci televizi"}, lang: "cs"},
		{name: "unsupported language", req: Request{Query: "Guten Tag", Language: "de", UserID: shop}, lang: "cs"},
		{name: "regional english", req: Request{Query: "I need a bike", Language: "en-GB", UserID: shop}, lang: "en"},
		{name: "unknown tenant", req: Request{Query: "Potřebuji kolo do 5000 Kč", UserID: "nobody"}, lang: "cs"},
		{name: "binary noise", req: Request{Query: "\x00\xff{{}}", UserID: shop}, lang: "cs"},
	}
	s := newTestOrchestrator(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *Response
			require.NotPanics(t, func() {
				resp = s.orch.GenerateResponse(context.Background(), tt.req)
			})
			assertWellFormed(t, resp)
			assert.Equal(t, tt.lang, resp.Metadata.Language)
			assert.NotNil(t, resp.Context)
		})
	}
}

func TestGenerateResponse_RecoversFromPanic(t *testing.T) {
	s := newTestOrchestrator(t, nil)
	orch := New(panickingKB{Knowledge: s.orch.kb}, s.orch.analyzer, nil, logger.NewTestLogger(t), WithRecorder(s.recorder))

	var resp *Response
	require.NotPanics(t, func() {
		resp = orch.GenerateResponse(context.Background(), Request{Query: "Ahoj", Language: "en", UserID: shop})
	})
	assertWellFormed(t, resp)
	assert.Equal(t, SourceFallback, resp.Source)
	assert.Equal(t, text(knowledge.English, msgTurnFailed), resp.Reply)
	assert.Equal(t, fallbackFollowups(knowledge.English), resp.Metadata.FollowupQuestions)
	assert.Equal(t, []string{"general_question"}, s.recorder.intents)
}

// ==========================
// Follow-ups
// ==========================

func TestSelectFollowups_PrefersUnseenSources(t *testing.T) {
	cands := []followup{
		{text: "Intent A?", source: sourceIntentTemplate, score: 0.6},
		{text: "Gap A?", source: sourceContextGap, score: 0.9},
		{text: "Gap B?", source: sourceContextGap, score: 0.9},
		{text: "Product A?", source: sourceProduct, score: 0.8},
		{text: "gap a?", source: sourceKnowledge, score: 0.7},
	}
	got := selectFollowups(cands, 3, "")
	assert.Equal(t, []string{"Gap A?", "Product A?", "Intent A?"}, got)

	got = selectFollowups([]followup{
		{text: "Gap A?", source: sourceContextGap, score: 0.9},
		{text: "Gap B?", source: sourceContextGap, score: 0.9},
	}, 3, "")
	assert.Equal(t, []string{"Gap A?", "Gap B?"}, got, "falls back to used sources")

	got = selectFollowups([]followup{{text: "Kolik stojí doprava?", source: sourceKnowledge, score: 0.7}}, 3, "kolik stoji doprava?")
	assert.Empty(t, got, "the user's own question is never suggested")

	assert.Empty(t, selectFollowups(nil, 3, "x"))
}

func TestFollowups_RecommendationTurn(t *testing.T) {
	s := newTestOrchestrator(t, nil)
	resp := s.orch.GenerateResponse(context.Background(), Request{
		Query:  "Potřebuji horské kolo do 20000 Kč s odpružením",
		UserID: shop,
	})

	fq := resp.Metadata.FollowupQuestions
	require.Len(t, fq, 3)
	assert.Contains(t, fq, "Jakou velikost rámu potřebujete?")
	assert.Contains(t, fq, "Chcete vědět víc o produktu Horské kolo Trek Marlin?")
	assert.Contains(t, fq, "Mám porovnat Horské kolo Trek Marlin a Silniční kolo Specialized Allez?")
}

func TestFollowups_EnglishFallbackTriple(t *testing.T) {
	assert.Equal(t, []string{
		"Can I help you choose a product?",
		"Would you like to know about shipping or payment?",
		"Do you have a question about your order?",
	}, fallbackFollowups(knowledge.English))
}

// ==========================
// Helpers
// ==========================

func TestKeywords(t *testing.T) {
	got := keywords("Jaká je záruka na baterii elektrokola?", []string{"Výdrž baterie"})
	assert.Equal(t, []string{"výdrž baterie", "elektrokola", "baterii"}, got)
	assert.Empty(t, keywords("a je to", nil))
}

func TestFillTemplate(t *testing.T) {
	got := fillTemplate("{a} a {b}, {missing}", map[string]string{"a": "kolo", "b": "helma"})
	assert.Equal(t, "kolo a helma, {missing}", got)
	assert.Equal(t, "beze změny", fillTemplate("beze změny", nil))
}

func TestTopCategories(t *testing.T) {
	got := topCategories(map[string]int{"b": 1, "a": 1, "c": 5, " ": 9}, 2)
	assert.Equal(t, []string{"c", "a"}, got)
}
