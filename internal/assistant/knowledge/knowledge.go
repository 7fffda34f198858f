// internal/assistant/knowledge/knowledge.go

// Package knowledge is the tenant-scoped, cached view of the product and
// Q&A catalog used on the hot path of a conversation turn.
package knowledge

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"widget-assistant/internal/assistant/lexicon"
	"widget-assistant/internal/common/errors"
	"widget-assistant/internal/common/logger"
	"widget-assistant/internal/common/metrics"
	"widget-assistant/internal/models"
)

// CatalogRepository reads a tenant's catalog from the primary store.
type CatalogRepository interface {
	ListProducts(ctx context.Context, userID string) ([]models.Product, error)
	SearchProducts(ctx context.Context, userID, text string, limit int) ([]models.Product, error)
	ListTemplates(ctx context.Context, userID string) ([]models.ResponseTemplate, error)
	ListPhrases(ctx context.Context, userID string) ([]models.CommonPhrase, error)
}

// QARepository reads tenant Q&A items and widget FAQs.
type QARepository interface {
	FindQAItems(ctx context.Context, userID, keyword string, limit int) ([]models.QAItem, error)
	FindWidgetFAQs(ctx context.Context, userID, keyword string, limit int) ([]models.WidgetFAQ, error)
}

// SearchIndex is a full-text product index returning product ids by relevance.
type SearchIndex interface {
	SearchProductIDs(ctx context.Context, userID, text string, limit int) ([]string, error)
}

const priceBucketSize = 1000

// tenantCatalog holds one tenant's cached products and their indexes.
type tenantCatalog struct {
	products   map[string]*models.Product
	order      []string
	byFeature  map[string][]string
	byBrand    map[string][]string
	byPrice    map[int][]string
	byCategory map[string][]string
	categories map[string]int
	templates  map[string]string
	phrases    []models.CommonPhrase
	loadedAt   time.Time
}

func newTenantCatalog() *tenantCatalog {
	return &tenantCatalog{
		products:   make(map[string]*models.Product),
		byFeature:  make(map[string][]string),
		byBrand:    make(map[string][]string),
		byPrice:    make(map[int][]string),
		byCategory: make(map[string][]string),
		categories: make(map[string]int),
		templates:  make(map[string]string),
	}
}

// KnowledgeBase caches each tenant's catalog on first use. Reads may observe
// a catalog that is one write behind; the maps themselves are guarded.
type KnowledgeBase struct {
	catalog CatalogRepository
	qa      QARepository
	search  SearchIndex
	logger  logger.Logger

	mu      sync.RWMutex
	tenants map[string]*tenantCatalog
	loading sync.Mutex
}

type Option func(*KnowledgeBase)

func WithQARepository(r QARepository) Option {
	return func(kb *KnowledgeBase) { kb.qa = r }
}

func WithSearchIndex(s SearchIndex) Option {
	return func(kb *KnowledgeBase) { kb.search = s }
}

func New(catalog CatalogRepository, log logger.Logger, opts ...Option) *KnowledgeBase {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	kb := &KnowledgeBase{
		catalog: catalog,
		logger:  log.With(map[string]interface{}{"component": "knowledge"}),
		tenants: make(map[string]*tenantCatalog),
	}
	for _, opt := range opts {
		opt(kb)
	}
	return kb
}

// Warm loads the given tenants. Failures are logged and the tenant is
// retried lazily on its first lookup.
func (kb *KnowledgeBase) Warm(ctx context.Context, userIDs []string) {
	for _, id := range userIDs {
		if _, err := kb.tenant(ctx, id); err != nil {
			kb.logger.Warn("failed to warm tenant catalog", map[string]interface{}{
				"userId": id,
				"error":  err.Error(),
			})
		}
	}
}

// Invalidate drops a tenant's cache so the next lookup reloads it.
func (kb *KnowledgeBase) Invalidate(userID string) {
	kb.mu.Lock()
	delete(kb.tenants, userID)
	kb.mu.Unlock()
}

func (kb *KnowledgeBase) cached(userID string) (*tenantCatalog, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	tc, ok := kb.tenants[userID]
	return tc, ok
}

// tenant returns the tenant's catalog, loading it on first access.
func (kb *KnowledgeBase) tenant(ctx context.Context, userID string) (*tenantCatalog, error) {
	if tc, ok := kb.cached(userID); ok {
		metrics.KnowledgeCacheLookups.WithLabelValues("hit").Inc()
		return tc, nil
	}
	metrics.KnowledgeCacheLookups.WithLabelValues("miss").Inc()

	kb.loading.Lock()
	defer kb.loading.Unlock()
	if tc, ok := kb.cached(userID); ok {
		return tc, nil
	}

	tc, err := kb.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	kb.mu.Lock()
	kb.tenants[userID] = tc
	kb.mu.Unlock()
	return tc, nil
}

func (kb *KnowledgeBase) load(ctx context.Context, userID string) (*tenantCatalog, error) {
	tc := newTenantCatalog()
	if kb.catalog == nil {
		tc.loadedAt = time.Now()
		return tc, nil
	}

	products, err := kb.catalog.ListProducts(ctx, userID)
	if err != nil {
		return nil, errors.NewKnowledgeLookupFailedError("products", err)
	}
	for i := range products {
		p := products[i]
		if p.UserID != userID || p.ID == "" {
			continue
		}
		tc.add(&p)
	}

	templates, err := kb.catalog.ListTemplates(ctx, userID)
	if err != nil {
		kb.logger.Warn("failed to load response templates", map[string]interface{}{"userId": userID, "error": err.Error()})
	}
	for _, t := range templates {
		if t.UserID == userID {
			tc.templates[templateKey(t.Key, t.Language)] = t.Text
		}
	}

	phrases, err := kb.catalog.ListPhrases(ctx, userID)
	if err != nil {
		kb.logger.Warn("failed to load common phrases", map[string]interface{}{"userId": userID, "error": err.Error()})
	}
	for _, ph := range phrases {
		if ph.UserID == userID {
			tc.phrases = append(tc.phrases, ph)
		}
	}

	tc.loadedAt = time.Now()
	kb.logger.Info("tenant catalog loaded", map[string]interface{}{
		"userId":     userID,
		"products":   len(tc.products),
		"categories": len(tc.categories),
		"templates":  len(tc.templates),
		"phrases":    len(tc.phrases),
	})
	return tc, nil
}

// UpdateProduct validates p and replaces it in its tenant's cache and
// indexes. Tenants not yet loaded are left to load lazily.
func (kb *KnowledgeBase) UpdateProduct(p models.Product) error {
	if err := ValidateProduct(&p); err != nil {
		return err
	}
	if p.ID == "" {
		return errors.NewProductValidationFailedError("", "id is required")
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()
	tc, ok := kb.tenants[p.UserID]
	if !ok {
		return nil
	}
	if old, exists := tc.products[p.ID]; exists {
		tc.remove(old)
	}
	tc.add(&p)
	return nil
}

// RemoveProduct drops a product from its tenant's cache and indexes.
func (kb *KnowledgeBase) RemoveProduct(userID, productID string) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if tc, ok := kb.tenants[userID]; ok {
		if p, exists := tc.products[productID]; exists {
			tc.remove(p)
		}
	}
}

// ==========================
// Index maintenance
// ==========================

func (tc *tenantCatalog) add(p *models.Product) {
	tc.products[p.ID] = p
	tc.order = append(tc.order, p.ID)
	for _, key := range featureKeys(p) {
		tc.byFeature[key] = appendID(tc.byFeature[key], p.ID)
	}
	if b := lexicon.Fold(p.Brand); b != "" {
		tc.byBrand[b] = appendID(tc.byBrand[b], p.ID)
	}
	if bucket, ok := priceBucket(p); ok {
		tc.byPrice[bucket] = appendID(tc.byPrice[bucket], p.ID)
	}
	for _, key := range categoryKeys(p) {
		tc.byCategory[key] = appendID(tc.byCategory[key], p.ID)
	}
	if p.Category != "" {
		tc.categories[p.Category]++
	}
}

func (tc *tenantCatalog) remove(p *models.Product) {
	delete(tc.products, p.ID)
	tc.order = removeID(tc.order, p.ID)
	for _, key := range featureKeys(p) {
		tc.byFeature[key] = removeID(tc.byFeature[key], p.ID)
		if len(tc.byFeature[key]) == 0 {
			delete(tc.byFeature, key)
		}
	}
	if b := lexicon.Fold(p.Brand); b != "" {
		tc.byBrand[b] = removeID(tc.byBrand[b], p.ID)
		if len(tc.byBrand[b]) == 0 {
			delete(tc.byBrand, b)
		}
	}
	if bucket, ok := priceBucket(p); ok {
		tc.byPrice[bucket] = removeID(tc.byPrice[bucket], p.ID)
		if len(tc.byPrice[bucket]) == 0 {
			delete(tc.byPrice, bucket)
		}
	}
	for _, key := range categoryKeys(p) {
		tc.byCategory[key] = removeID(tc.byCategory[key], p.ID)
		if len(tc.byCategory[key]) == 0 {
			delete(tc.byCategory, key)
		}
	}
	if p.Category != "" {
		tc.categories[p.Category]--
		if tc.categories[p.Category] <= 0 {
			delete(tc.categories, p.Category)
		}
	}
}

// products resolves ids in catalog order, dropping unknown ids.
func (tc *tenantCatalog) resolve(ids map[string]bool, limit int) []models.Product {
	var out []models.Product
	for _, id := range tc.order {
		if !ids[id] {
			continue
		}
		out = append(out, *tc.products[id])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func featureKeys(p *models.Product) []string {
	var keys []string
	for _, f := range p.Features {
		if k := lexicon.Fold(f); k != "" {
			keys = appendID(keys, k)
		}
	}
	return keys
}

// categoryKeys indexes category and subcategory under every synonym.
func categoryKeys(p *models.Product) []string {
	var keys []string
	for _, c := range []string{p.Category, p.Subcategory} {
		if c == "" {
			continue
		}
		for _, term := range lexicon.Expand(c) {
			keys = appendID(keys, lexicon.Fold(term))
		}
	}
	return keys
}

func priceBucket(p *models.Product) (int, bool) {
	price, ok := p.Price()
	if !ok {
		return 0, false
	}
	return bucketOf(price), true
}

// bucketOf rounds to the nearest bucket boundary.
func bucketOf(price float64) int {
	return int(math.Round(price/priceBucketSize)) * priceBucketSize
}

func templateKey(key, lang string) string {
	return strings.ToLower(key) + "|" + strings.ToLower(lang)
}

func appendID(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}

func removeID(list []string, id string) []string {
	out := list[:0]
	for _, existing := range list {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
