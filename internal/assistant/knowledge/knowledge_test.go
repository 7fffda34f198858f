package knowledge

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "widget-assistant/internal/common/errors"
	"widget-assistant/internal/common/logger"
	"widget-assistant/internal/models"
)

// ==========================
// Fakes
// ==========================

type fakeCatalog struct {
	mu        sync.Mutex
	products  []models.Product
	templates []models.ResponseTemplate
	phrases   []models.CommonPhrase
	searchHit []models.Product
	listErr   error
	searchErr error
	loads     int
}

func (f *fakeCatalog) ListProducts(_ context.Context, _ string) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.listErr != nil {
		return nil, f.listErr
	}
	// returns every tenant's products; the knowledge base must filter
	out := make([]models.Product, len(f.products))
	copy(out, f.products)
	return out, nil
}

func (f *fakeCatalog) SearchProducts(_ context.Context, _, _ string, _ int) ([]models.Product, error) {
	return f.searchHit, f.searchErr
}

func (f *fakeCatalog) ListTemplates(_ context.Context, _ string) ([]models.ResponseTemplate, error) {
	return f.templates, nil
}

func (f *fakeCatalog) ListPhrases(_ context.Context, _ string) ([]models.CommonPhrase, error) {
	return f.phrases, nil
}

type fakeIndex struct {
	ids []string
	err error
}

func (f *fakeIndex) SearchProductIDs(_ context.Context, _, _ string, _ int) ([]string, error) {
	return f.ids, f.err
}

type fakeQA struct {
	items []models.QAItem
	faqs  []models.WidgetFAQ
	err   error
}

func (f *fakeQA) FindQAItems(_ context.Context, _, _ string, _ int) ([]models.QAItem, error) {
	return f.items, f.err
}

func (f *fakeQA) FindWidgetFAQs(_ context.Context, _, _ string, _ int) ([]models.WidgetFAQ, error) {
	return f.faqs, f.err
}

const (
	shop  = "shop-1"
	other = "shop-2"
)

func testProducts() []models.Product {
	return []models.Product{
		{
			ID: "b1", UserID: shop, Name: "Horské kolo Trek Marlin", Category: "kola", Subcategory: "horská kola",
			Brand: "Trek", Features: []string{"Odpružení", "Kotoučové brzdy", "Hliníkový rám"},
			Pricing: models.Pricing{OneTime: 15990.0}, AdminPriority: 5,
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
			Brand: "Samsung", Features: []string{"4K", "Smart TV", "WiFi"}, Pricing: models.Pricing{OneTime: 18990.0},
		},
		{
			ID: "a1", UserID: shop, Name: "Sluchátka Sony", Category: "příslušenství",
			Description: "Bezdrátová sluchátka pro televize Samsung", Pricing: models.Pricing{OneTime: 2490.0},
		},
		{
			ID: "x1", UserID: other, Name: "Kolo jiného obchodu", Category: "kola",
			Brand: "Trek", Pricing: models.Pricing{OneTime: 9990.0},
		},
	}
}

func newTestKB(t *testing.T, opts ...Option) (*KnowledgeBase, *fakeCatalog) {
	cat := &fakeCatalog{
		products: testProducts(),
		templates: []models.ResponseTemplate{
			{UserID: shop, Key: "clarify", Language: "cs", Text: "Upřesněte prosím, co hledáte."},
			{UserID: other, Key: "clarify", Language: "en", Text: "foreign"},
		},
		phrases: []models.CommonPhrase{
			{UserID: shop, Patterns: []string{"otevírací doba", "kdy máte otevřeno"}, Language: "cs", Answer: "Po–Pá 9–17."},
			{UserID: shop, Patterns: []string{"opening hours"}, Language: "en", Answer: "Mon–Fri 9–5."},
		},
	}
	return New(cat, logger.NewTestLogger(t), opts...), cat
}

func ids(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

// ==========================
// Loading and isolation
// ==========================

func TestKnowledgeBase_TenantIsolation(t *testing.T) {
	kb, _ := newTestKB(t)
	ctx := context.Background()

	_, err := kb.FindProductByID(ctx, shop, "x1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProductNotFound))

	mine, err := kb.FindProductsByBrand(ctx, shop, "trek", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "h1"}, ids(mine))

	theirs, err := kb.FindProductsByCategory(ctx, other, "kola", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"x1"}, ids(theirs))

	tpl, ok := kb.Template(ctx, other, "clarify", "cs")
	assert.False(t, ok)
	assert.Empty(t, tpl)
}

func TestKnowledgeBase_LazyLoadAndInvalidate(t *testing.T) {
	kb, cat := newTestKB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := kb.FindProductsByCategory(ctx, shop, "kola", 0)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, cat.loads)

	kb.Invalidate(shop)
	_, err := kb.FindProductsByCategory(ctx, shop, "kola", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.loads)
}

func TestKnowledgeBase_LoadFailureIsRetried(t *testing.T) {
	kb, cat := newTestKB(t)
	ctx := context.Background()
	cat.listErr = stderrors.New("connection refused")

	_, err := kb.FindProductsByCategory(ctx, shop, "kola", 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeKnowledgeLookupFailed))

	cat.listErr = nil
	found, err := kb.FindProductsByCategory(ctx, shop, "kola", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, ids(found))
}

func TestKnowledgeBase_Warm(t *testing.T) {
	kb, cat := newTestKB(t)
	kb.Warm(context.Background(), []string{shop, other})
	assert.Equal(t, 2, cat.loads)

	_, ok := kb.cached(shop)
	assert.True(t, ok)
}

// ==========================
// Index lookups
// ==========================

func TestKnowledgeBase_FindProductsByCategory(t *testing.T) {
	kb, _ := newTestKB(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		category string
		want     []string
	}{
		{"exact", "kola", []string{"b1", "b2"}},
		{"synonym", "bike", []string{"b1", "b2"}},
		{"case and diacritics", "Jízdní Kola", []string{"b1", "b2"}},
		{"subcategory synonym", "MTB", []string{"b1"}},
		{"tv synonym", "televizory", []string{"t1"}},
		{"unknown", "nábytek", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := kb.FindProductsByCategory(ctx, shop, tt.category, 0)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, found)
				return
			}
			assert.Equal(t, tt.want, ids(found))
		})
	}
}

func TestKnowledgeBase_FindProductsByFeature(t *testing.T) {
	kb, _ := newTestKB(t)
	ctx := context.Background()

	found, err := kb.FindProductsByFeature(ctx, shop, "kotoučové brzdy", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, ids(found))

	found, err = kb.FindProductsByFeature(ctx, shop, "suspension", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, ids(found))

	found, err = kb.FindProductsByFeature(ctx, shop, "wireless", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, ids(found))

	found, err = kb.FindProductsByFeature(ctx, shop, "brzd", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, ids(found))
}

func TestKnowledgeBase_FindProductsInPriceRange(t *testing.T) {
	kb, _ := newTestKB(t)
	ctx := context.Background()

	found, err := kb.FindProductsInPriceRange(ctx, shop, 15000, 25000, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2", "t1"}, ids(found))

	found, err = kb.FindProductsInPriceRange(ctx, shop, 2000, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"h1"}, ids(found), "bounds are swapped when inverted")

	found, err = kb.FindProductsInPriceRange(ctx, shop, 24991, 30000, 0)
	require.NoError(t, err)
	assert.Empty(t, found, "bucket neighbours are checked against exact prices")
}

func TestKnowledgeBase_FindProductsByQuery(t *testing.T) {
	kb, _ := newTestKB(t)
	ctx := context.Background()

	found, err := kb.FindProductsByQuery(ctx, shop, "hledám horské kolo do 20000", 0)
	require.NoError(t, err)
	require.NotEmpty(t, found)
	assert.Equal(t, []string{"b1", "b2"}, ids(found))

	found, err = kb.FindProductsByQuery(ctx, shop, "Samsung televize", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, ids(found))

	found, err = kb.FindProductsByQuery(ctx, shop, "   ", 0)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestKnowledgeBase_FindProductsByName(t *testing.T) {
	ctx := context.Background()

	t.Run("token fallback over cached names", func(t *testing.T) {
		kb, _ := newTestKB(t)
		found, err := kb.FindProductsByName(ctx, shop, "trek marlin", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"b1", "h1"}, ids(found), "more matching tokens rank first")
	})

	t.Run("search index first", func(t *testing.T) {
		kb, _ := newTestKB(t, WithSearchIndex(&fakeIndex{ids: []string{"t1", "x1"}}))
		found, err := kb.FindProductsByName(ctx, shop, "samsung", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"t1"}, ids(found))
	})

	t.Run("index failure falls through to repository search", func(t *testing.T) {
		kb, cat := newTestKB(t, WithSearchIndex(&fakeIndex{err: stderrors.New("es down")}))
		cat.searchHit = []models.Product{testProducts()[1], testProducts()[5]}
		found, err := kb.FindProductsByName(ctx, shop, "allez", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"b2"}, ids(found))
	})

	t.Run("empty name", func(t *testing.T) {
		kb, _ := newTestKB(t)
		found, err := kb.FindProductsByName(ctx, shop, " ", 0)
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestKnowledgeBase_FindAccessories(t *testing.T) {
	kb, _ := newTestKB(t)
	ctx := context.Background()

	bike, err := kb.FindProductByID(ctx, shop, "b1")
	require.NoError(t, err)
	acc, err := kb.FindAccessories(ctx, shop, bike, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"h1"}, ids(acc))

	tv, err := kb.FindProductByID(ctx, shop, "t1")
	require.NoError(t, err)
	acc, err = kb.FindAccessories(ctx, shop, tv, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, ids(acc))

	acc, err = kb.FindAccessories(ctx, shop, nil, 5)
	require.NoError(t, err)
	assert.Nil(t, acc)
}

func TestKnowledgeBase_Categories(t *testing.T) {
	kb, _ := newTestKB(t)
	cats, err := kb.Categories(context.Background(), shop)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"kola": 2, "helmy": 1, "televize": 1, "příslušenství": 1}, cats)

	cats["kola"] = 100
	again, _ := kb.Categories(context.Background(), shop)
	assert.Equal(t, 2, again["kola"], "returned map is a copy")
}

// ==========================
// Write path
// ==========================

func TestKnowledgeBase_UpdateAndRemoveProduct(t *testing.T) {
	kb, _ := newTestKB(t)
	ctx := context.Background()
	_, err := kb.FindProductsByCategory(ctx, shop, "kola", 0)
	require.NoError(t, err)

	updated := testProducts()[0]
	updated.Category = "elektrokola"
	updated.Subcategory = ""
	updated.Pricing.OneTime = 45990.0
	require.NoError(t, kb.UpdateProduct(updated))

	found, _ := kb.FindProductsByCategory(ctx, shop, "kola", 0)
	assert.Equal(t, []string{"b2"}, ids(found))
	found, _ = kb.FindProductsByCategory(ctx, shop, "e-bike", 0)
	assert.Equal(t, []string{"b1"}, ids(found))
	found, _ = kb.FindProductsInPriceRange(ctx, shop, 45000, 46000, 0)
	assert.Equal(t, []string{"b1"}, ids(found))
	found, _ = kb.FindProductsInPriceRange(ctx, shop, 15000, 16000, 0)
	assert.Empty(t, found)

	kb.RemoveProduct(shop, "b2")
	found, _ = kb.FindProductsByBrand(ctx, shop, "specialized", 0)
	assert.Empty(t, found)

	cats, _ := kb.Categories(ctx, shop)
	assert.Equal(t, 1, cats["elektrokola"])
	_, hasKola := cats["kola"]
	assert.False(t, hasKola)
}

func TestKnowledgeBase_UpdateProductValidation(t *testing.T) {
	kb, _ := newTestKB(t)

	err := kb.UpdateProduct(models.Product{ID: "n1", UserID: shop})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProductValidationFailed))

	err = kb.UpdateProduct(models.Product{ID: "n2", UserID: shop, Name: "Kolo", AdminPriority: 11})
	require.Error(t, err)

	err = kb.UpdateProduct(models.Product{UserID: shop, Name: "Bez id"})
	require.Error(t, err)
}

func TestKnowledgeBase_UpdateBeforeLoadIsDeferred(t *testing.T) {
	kb, cat := newTestKB(t)
	require.NoError(t, kb.UpdateProduct(models.Product{ID: "n1", UserID: shop, Name: "Nové kolo", Category: "kola"}))
	assert.Equal(t, 0, cat.loads)

	found, err := kb.FindProductsByCategory(context.Background(), shop, "kola", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, ids(found), "the reload reads the repository")
}

func TestKnowledgeBase_ConcurrentReadsAndWrites(t *testing.T) {
	kb, _ := newTestKB(t)
	ctx := context.Background()
	kb.Warm(ctx, []string{shop})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = kb.FindProductsByQuery(ctx, shop, "kolo trek", 3)
				_, _ = kb.FindProductsInPriceRange(ctx, shop, 0, 20000, 0)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p := testProducts()[3]
				_ = kb.UpdateProduct(p)
			}
		}()
	}
	wg.Wait()

	found, err := kb.FindProductsByBrand(ctx, shop, "samsung", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, ids(found))
}

// ==========================
// Templates, phrases, Q&A
// ==========================

func TestKnowledgeBase_TemplatesAndPhrases(t *testing.T) {
	kb, _ := newTestKB(t)
	ctx := context.Background()

	tpl, ok := kb.Template(ctx, shop, "CLARIFY", "cs")
	assert.True(t, ok)
	assert.Equal(t, "Upřesněte prosím, co hledáte.", tpl)

	_, ok = kb.Template(ctx, shop, "clarify", "en")
	assert.False(t, ok)

	answer, ok := kb.MatchCommonPhrase(ctx, shop, "Jaká je vaše otevirací doba?", "cs")
	assert.True(t, ok)
	assert.Equal(t, "Po–Pá 9–17.", answer)

	_, ok = kb.MatchCommonPhrase(ctx, shop, "opening hours?", "cs")
	assert.False(t, ok, "phrase language must match")

	_, ok = kb.MatchCommonPhrase(ctx, shop, "", "cs")
	assert.False(t, ok)
}

func TestKnowledgeBase_QAAndFAQs(t *testing.T) {
	ctx := context.Background()

	t.Run("no repository", func(t *testing.T) {
		kb, _ := newTestKB(t)
		items, err := kb.FindQAItemsByKeyword(ctx, shop, "servis", 5)
		require.NoError(t, err)
		assert.Nil(t, items)
	})

	t.Run("filters tenant and inactive entries", func(t *testing.T) {
		qa := &fakeQA{
			items: []models.QAItem{{ID: "q1", UserID: shop, Question: "Servis?"}, {ID: "q2", UserID: other}},
			faqs: []models.WidgetFAQ{
				{ID: "f1", UserID: shop, IsActive: true},
				{ID: "f2", UserID: shop, IsActive: false},
				{ID: "f3", UserID: other, IsActive: true},
			},
		}
		kb, _ := newTestKB(t, WithQARepository(qa))

		items, err := kb.FindQAItemsByKeyword(ctx, shop, "servis", 5)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "q1", items[0].ID)

		faqs, err := kb.FindWidgetFAQsByKeyword(ctx, shop, "doprava", 5)
		require.NoError(t, err)
		require.Len(t, faqs, 1)
		assert.Equal(t, "f1", faqs[0].ID)
	})

	t.Run("repository errors are wrapped", func(t *testing.T) {
		kb, _ := newTestKB(t, WithQARepository(&fakeQA{err: stderrors.New("timeout")}))
		_, err := kb.FindWidgetFAQsByKeyword(ctx, shop, "doprava", 5)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeKnowledgeLookupFailed))
	})
}

func TestKnowledgeBase_GetProductComparison(t *testing.T) {
	kb, _ := newTestKB(t)
	ctx := context.Background()

	cmp, err := kb.GetProductComparison(ctx, shop, "b1", "b2", Czech)
	require.NoError(t, err)
	assert.Equal(t, "b1", cmp.CheaperProductID)
	assert.Equal(t, []string{"Kotoučové brzdy"}, cmp.CommonFeatures)

	_, err = kb.GetProductComparison(ctx, shop, "b1", "x1", Czech)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProductNotFound))
}
