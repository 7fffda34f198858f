// internal/assistant/knowledge/search.go

package knowledge

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/language"

	"widget-assistant/internal/assistant/extract"
	"widget-assistant/internal/assistant/lexicon"
	"widget-assistant/internal/common/errors"
	"widget-assistant/internal/models"
)

// FindProductsByName tries the search index, then the repository text
// search, and finally OR-matches name tokens against the cached catalog so
// partial or misspelled names still return something.
func (kb *KnowledgeBase) FindProductsByName(ctx context.Context, userID, name string, limit int) ([]models.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	tc, err := kb.tenant(ctx, userID)
	if err != nil {
		return nil, err
	}

	if kb.search != nil {
		ids, err := kb.search.SearchProductIDs(ctx, userID, name, limit)
		if err != nil {
			kb.logger.Warn("search index lookup failed", map[string]interface{}{"userId": userID, "error": err.Error()})
		} else if found := kb.byIDs(tc, ids, limit); len(found) > 0 {
			return found, nil
		}
	}

	if kb.catalog != nil {
		hits, err := kb.catalog.SearchProducts(ctx, userID, name, limit)
		if err != nil {
			kb.logger.Warn("catalog text search failed", map[string]interface{}{"userId": userID, "error": err.Error()})
		}
		var scoped []models.Product
		for _, p := range hits {
			if p.UserID == userID {
				scoped = append(scoped, p)
			}
		}
		if len(scoped) > 0 {
			return scoped, nil
		}
	}

	return kb.matchNameTokens(tc, name, limit), nil
}

// byIDs keeps index order and the tenant's own products only.
func (kb *KnowledgeBase) byIDs(tc *tenantCatalog, ids []string, limit int) []models.Product {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	var out []models.Product
	for _, id := range ids {
		if p, ok := tc.products[id]; ok {
			out = append(out, *p)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

func (kb *KnowledgeBase) matchNameTokens(tc *tenantCatalog, name string, limit int) []models.Product {
	var tokens []string
	for _, tok := range lexicon.Tokens(lexicon.Fold(name)) {
		if len(tok) >= 2 {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return nil
	}

	kb.mu.RLock()
	defer kb.mu.RUnlock()
	type hit struct {
		p     *models.Product
		score int
	}
	var hits []hit
	for _, id := range tc.order {
		p := tc.products[id]
		folded := lexicon.Fold(p.Name)
		score := 0
		for _, tok := range tokens {
			if strings.Contains(folded, tok) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{p: p, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]models.Product, 0, len(hits))
	for _, h := range hits {
		out = append(out, *h.p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// FindProductsByCategory matches the category case-insensitively and
// through its synonyms.
func (kb *KnowledgeBase) FindProductsByCategory(ctx context.Context, userID, category string, limit int) ([]models.Product, error) {
	tc, err := kb.tenant(ctx, userID)
	if err != nil {
		return nil, err
	}
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	ids := make(map[string]bool)
	for _, term := range lexicon.Expand(category) {
		for _, id := range tc.byCategory[lexicon.Fold(term)] {
			ids[id] = true
		}
	}
	return tc.resolve(ids, limit), nil
}

// FindProductsByFeature matches feature names and their synonyms, falling
// back to substring matches.
func (kb *KnowledgeBase) FindProductsByFeature(ctx context.Context, userID, feature string, limit int) ([]models.Product, error) {
	tc, err := kb.tenant(ctx, userID)
	if err != nil {
		return nil, err
	}
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	ids := make(map[string]bool)
	for _, term := range lexicon.Expand(feature) {
		for _, id := range tc.byFeature[lexicon.Fold(term)] {
			ids[id] = true
		}
	}
	if len(ids) == 0 {
		needle := lexicon.Fold(feature)
		if needle == "" {
			return nil, nil
		}
		for key, list := range tc.byFeature {
			if strings.Contains(key, needle) {
				for _, id := range list {
					ids[id] = true
				}
			}
		}
	}
	return tc.resolve(ids, limit), nil
}

func (kb *KnowledgeBase) FindProductsByBrand(ctx context.Context, userID, brand string, limit int) ([]models.Product, error) {
	tc, err := kb.tenant(ctx, userID)
	if err != nil {
		return nil, err
	}
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	ids := make(map[string]bool)
	for _, id := range tc.byBrand[lexicon.Fold(brand)] {
		ids[id] = true
	}
	return tc.resolve(ids, limit), nil
}

// FindProductsInPriceRange uses the price buckets as a pre-filter and then
// checks exact prices.
func (kb *KnowledgeBase) FindProductsInPriceRange(ctx context.Context, userID string, min, max float64, limit int) ([]models.Product, error) {
	tc, err := kb.tenant(ctx, userID)
	if err != nil {
		return nil, err
	}
	if min > max {
		min, max = max, min
	}
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	ids := make(map[string]bool)
	half := float64(priceBucketSize) / 2
	for bucket, list := range tc.byPrice {
		if float64(bucket)+half < min || float64(bucket)-half > max {
			continue
		}
		for _, id := range list {
			if price, ok := tc.products[id].Price(); ok && price >= min && price <= max {
				ids[id] = true
			}
		}
	}
	return tc.resolve(ids, limit), nil
}

func (kb *KnowledgeBase) FindProductByID(ctx context.Context, userID, id string) (*models.Product, error) {
	tc, err := kb.tenant(ctx, userID)
	if err != nil {
		return nil, err
	}
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	p, ok := tc.products[id]
	if !ok {
		return nil, errors.NewProductNotFoundError(id)
	}
	cp := *p
	return &cp, nil
}

// FindProductsByQuery ranks products by how many indexes the query hits:
// category and brand count most, then features, name tokens and price.
func (kb *KnowledgeBase) FindProductsByQuery(ctx context.Context, userID, query string, limit int) ([]models.Product, error) {
	tc, err := kb.tenant(ctx, userID)
	if err != nil {
		return nil, err
	}
	folded := lexicon.Fold(query)
	tokens := lexicon.Tokens(folded)
	if len(tokens) == 0 {
		return nil, nil
	}
	budget, hasBudget := extract.ParseBudget(query)

	kb.mu.RLock()
	defer kb.mu.RUnlock()
	votes := make(map[string]int)
	vote := func(ids []string, weight int) {
		for _, id := range ids {
			votes[id] += weight
		}
	}

	if d, ok := lexicon.DetectDomain(query); ok {
		domainIDs := make(map[string]bool)
		for _, term := range lexicon.Expand(lexicon.DomainCategory(d)) {
			for _, id := range tc.byCategory[lexicon.Fold(term)] {
				domainIDs[id] = true
			}
		}
		for id := range domainIDs {
			votes[id] += 3
		}
	}
	for _, tok := range tokens {
		if ids, ok := tc.byCategory[tok]; ok {
			vote(ids, 3)
		}
		if ids, ok := tc.byBrand[tok]; ok {
			vote(ids, 2)
		}
	}
	for key, ids := range tc.byFeature {
		if strings.Contains(folded, key) {
			vote(ids, 1)
		}
	}
	for _, id := range tc.order {
		name := lexicon.Fold(tc.products[id].Name)
		for _, tok := range tokens {
			if len(tok) >= 3 && strings.Contains(name, tok) {
				votes[id]++
			}
		}
	}
	if hasBudget {
		lo, hi := 0.0, UnboundedPrice
		if budget.Min != nil {
			lo = *budget.Min
		}
		if budget.Max != nil {
			hi = *budget.Max
		}
		for id, n := range votes {
			if n == 0 {
				continue
			}
			if price, ok := tc.products[id].Price(); ok && price >= lo && price <= hi {
				votes[id]++
			}
		}
	}

	type ranked struct {
		id    string
		votes int
	}
	var list []ranked
	for _, id := range tc.order {
		if n := votes[id]; n > 0 {
			list = append(list, ranked{id: id, votes: n})
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].votes > list[j].votes })

	out := make([]models.Product, 0, len(list))
	for _, r := range list {
		out = append(out, *tc.products[r.id])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// UnboundedPrice is the upper bound used when a query sets no maximum.
const UnboundedPrice = 999999999.0

var accessoryCategories = []string{"příslušenství", "helmy", "sluchátka", "nabíječka", "obal"}

// FindAccessories returns products declared compatible with p, then
// products from accessory categories that mention p's category or name.
func (kb *KnowledgeBase) FindAccessories(ctx context.Context, userID string, p *models.Product, limit int) ([]models.Product, error) {
	if p == nil {
		return nil, nil
	}
	tc, err := kb.tenant(ctx, userID)
	if err != nil {
		return nil, err
	}
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	targets := map[string]bool{lexicon.Fold(p.ID): true, lexicon.Fold(p.Name): true}
	var out []models.Product
	seen := map[string]bool{p.ID: true}
	for _, id := range tc.order {
		cand := tc.products[id]
		if seen[id] {
			continue
		}
		for _, c := range cand.CompatibleWith {
			if targets[lexicon.Fold(c)] {
				out = append(out, *cand)
				seen[id] = true
				break
			}
		}
	}

	accessoryIDs := make(map[string]bool)
	for _, cat := range accessoryCategories {
		for _, term := range lexicon.Expand(cat) {
			for _, id := range tc.byCategory[lexicon.Fold(term)] {
				accessoryIDs[id] = true
			}
		}
	}
	hints := []string{lexicon.Fold(p.Category)}
	for _, tok := range lexicon.Tokens(lexicon.Fold(p.Name)) {
		if len(tok) >= 3 {
			hints = append(hints, tok)
		}
	}
	for _, id := range tc.order {
		if seen[id] || !accessoryIDs[id] {
			continue
		}
		cand := tc.products[id]
		text := lexicon.Fold(cand.Name + " " + cand.Description + " " + cand.Subcategory)
		for _, h := range hints {
			if h != "" && strings.Contains(text, h) {
				out = append(out, *cand)
				seen[id] = true
				break
			}
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetProductComparison compares two products of the same tenant.
func (kb *KnowledgeBase) GetProductComparison(ctx context.Context, userID, id1, id2 string, lang language.Tag) (*Comparison, error) {
	p1, err := kb.FindProductByID(ctx, userID, id1)
	if err != nil {
		return nil, err
	}
	p2, err := kb.FindProductByID(ctx, userID, id2)
	if err != nil {
		return nil, err
	}
	return CompareProducts(p1, p2, lang), nil
}

// Categories returns category names with their product counts.
func (kb *KnowledgeBase) Categories(ctx context.Context, userID string) (map[string]int, error) {
	tc, err := kb.tenant(ctx, userID)
	if err != nil {
		return nil, err
	}
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	out := make(map[string]int, len(tc.categories))
	for k, v := range tc.categories {
		out[k] = v
	}
	return out, nil
}

// Template returns a tenant's override for key in lang.
func (kb *KnowledgeBase) Template(ctx context.Context, userID, key, lang string) (string, bool) {
	tc, err := kb.tenant(ctx, userID)
	if err != nil {
		return "", false
	}
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	t, ok := tc.templates[templateKey(key, lang)]
	return t, ok && strings.TrimSpace(t) != ""
}

// MatchCommonPhrase returns the canned answer of the first phrase with a
// pattern contained in query. Phrases without a language match any.
func (kb *KnowledgeBase) MatchCommonPhrase(ctx context.Context, userID, query, lang string) (string, bool) {
	tc, err := kb.tenant(ctx, userID)
	if err != nil {
		return "", false
	}
	folded := lexicon.Fold(query)
	if folded == "" {
		return "", false
	}
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	for _, ph := range tc.phrases {
		if ph.Language != "" && !strings.EqualFold(ph.Language, lang) {
			continue
		}
		for _, pattern := range ph.Patterns {
			if p := lexicon.Fold(pattern); p != "" && strings.Contains(folded, p) {
				return ph.Answer, true
			}
		}
	}
	return "", false
}

// FindQAItemsByKeyword searches the tenant's Q&A items.
func (kb *KnowledgeBase) FindQAItemsByKeyword(ctx context.Context, userID, keyword string, limit int) ([]models.QAItem, error) {
	if kb.qa == nil || strings.TrimSpace(keyword) == "" {
		return nil, nil
	}
	items, err := kb.qa.FindQAItems(ctx, userID, keyword, limit)
	if err != nil {
		return nil, errors.NewKnowledgeLookupFailedError("qa_items", err)
	}
	out := items[:0]
	for _, it := range items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (kb *KnowledgeBase) FindWidgetFAQsByKeyword(ctx context.Context, userID, keyword string, limit int) ([]models.WidgetFAQ, error) {
	if kb.qa == nil || strings.TrimSpace(keyword) == "" {
		return nil, nil
	}
	faqs, err := kb.qa.FindWidgetFAQs(ctx, userID, keyword, limit)
	if err != nil {
		return nil, errors.NewKnowledgeLookupFailedError("widget_faqs", err)
	}
	out := faqs[:0]
	for _, f := range faqs {
		if f.UserID == userID && f.IsActive {
			out = append(out, f)
		}
	}
	return out, nil
}
