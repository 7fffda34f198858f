// internal/assistant/orchestrator/handlers.go

package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"widget-assistant/internal/assistant/conversation"
	"widget-assistant/internal/assistant/intent"
	"widget-assistant/internal/assistant/scoring"
	"widget-assistant/internal/models"
)

const maxNavigationCategories = 8

func (o *Orchestrator) handleRecommendation(ctx context.Context, t *turn) {
	md := &t.resp.Metadata
	e := t.analysis.Entities

	if !t.conv.HasSufficientConstraints() && len(e.Products) == 0 {
		md.NeedsClarification = true
		var asks []string
		if t.conv.Category == "" {
			asks = append(asks, text(t.lang, msgClarifyCategory))
		}
		if !t.conv.BudgetRange.IsSet() {
			asks = append(asks, text(t.lang, msgClarifyBudget))
		}
		if !knowsFeatures(t.conv) {
			asks = append(asks, text(t.lang, msgClarifyFeatures))
		}
		t.fallback = strings.TrimSpace(text(t.lang, msgClarify) + " " + strings.Join(asks, " "))
		t.facts = append(t.facts, "Not enough is known yet to recommend a product. Ask the customer: "+strings.Join(asks, " "))
		t.vars["questions"] = strings.Join(asks, " ")
		t.tplKey = msgClarify
		return
	}

	req := scoring.RequirementsFrom(t.conv, e)
	ranked := o.scorer.Rank(t.know.products, req)
	if len(ranked) > o.maxRecs {
		ranked = ranked[:o.maxRecs]
	}
	if len(ranked) == 0 {
		t.fallback = text(t.lang, msgNoProducts)
		t.tplKey = msgNoProducts
		t.facts = append(t.facts, "No product in the catalog matches the request.")
		return
	}

	recs := recommendations(ranked, req, t.lang)
	md.RecommendedProducts = recs
	rememberProducts(t.conv, recs)

	t.fallback = text(t.lang, msgRecommendIntro) + "\n" + productLines(recs)
	for _, r := range recs {
		t.facts = append(t.facts, fmt.Sprintf("Recommended: %s, price %s, features: %s. %s",
			r.Name, r.FormattedPrice, strings.Join(r.Features, ", "), r.Explanation))
	}
	t.vars["products"] = productNames(recs)
	t.vars["count"] = strconv.Itoa(len(recs))
	t.vars["category"] = req.Category
}

func (o *Orchestrator) handleComparison(ctx context.Context, t *turn) {
	md := &t.resp.Metadata
	candidates := append([]models.Product(nil), t.know.products...)
	if len(candidates) < 2 {
		for _, ref := range t.conv.ProductReferences() {
			if p := o.resolveProduct(ctx, t, ref); p != nil {
				candidates = appendProduct(candidates, *p)
			}
			if len(candidates) >= 2 {
				break
			}
		}
	}
	if len(candidates) < 2 {
		t.fallback = text(t.lang, msgCompareNeedTwo)
		t.skipModel = true
		return
	}

	a, b := candidates[0], candidates[1]
	cmp, err := o.kb.GetProductComparison(ctx, t.userID, a.ID, b.ID, t.lang)
	if err != nil {
		o.lookupFailed("product_comparison", err)
		t.fallback = text(t.lang, msgCompareNeedTwo)
		t.skipModel = true
		return
	}
	md.ComparisonData = cmp

	req := scoring.RequirementsFrom(t.conv, t.analysis.Entities)
	recs := recommendations(o.scorer.Rank([]models.Product{a, b}, req), req, t.lang)
	md.RecommendedProducts = recs
	rememberProducts(t.conv, recs)

	t.fallback = strings.TrimSpace(cmp.PriceComparison + " " + cmp.OverallRecommendation)
	t.facts = append(t.facts,
		fmt.Sprintf("Comparing %s and %s", a.Name, b.Name),
		"Common features: "+strings.Join(cmp.CommonFeatures, ", "),
		fmt.Sprintf("Only %s: %s", a.Name, strings.Join(cmp.UniqueToFirst, ", ")),
		fmt.Sprintf("Only %s: %s", b.Name, strings.Join(cmp.UniqueToSecond, ", ")),
		cmp.PriceComparison,
		cmp.OverallRecommendation,
	)
	t.vars["product1"] = a.Name
	t.vars["product2"] = b.Name
}

func (o *Orchestrator) handleTechnical(ctx context.Context, t *turn) {
	for _, qa := range t.know.qa {
		t.facts = append(t.facts, fmt.Sprintf("Q: %s A: %s", qa.Question, qa.Answer))
	}
	if len(t.know.qa) > 0 {
		t.fallback = t.know.qa[0].Answer
	}

	if len(t.know.products) > 0 {
		p := t.know.products[0]
		if specs := formatSpecs(p.TechnicalSpecs); specs != "" {
			t.facts = append(t.facts, fmt.Sprintf("Specifications of %s: %s", p.Name, specs))
			if t.fallback == "" {
				t.fallback = text(t.lang, msgTechnicalSpecs, p.Name, specs)
			}
		}
		if len(p.Pros) > 0 {
			t.facts = append(t.facts, "Pros: "+strings.Join(p.Pros, ", "))
		}
		if len(p.Cons) > 0 {
			t.facts = append(t.facts, "Cons: "+strings.Join(p.Cons, ", "))
		}
		t.vars["product"] = p.Name
	}

	if t.fallback == "" {
		t.fallback = text(t.lang, msgTechnicalUnknown)
	}
}

func (o *Orchestrator) handleAccessory(ctx context.Context, t *turn) {
	md := &t.resp.Metadata
	var anchor *models.Product
	if len(t.know.products) > 0 {
		p := t.know.products[0]
		anchor = &p
	}
	if anchor == nil {
		refs := t.conv.ProductReferences()
		for i := len(refs) - 1; i >= 0 && anchor == nil; i-- {
			anchor = o.resolveProduct(ctx, t, refs[i])
		}
	}
	if anchor == nil {
		t.fallback = text(t.lang, msgAccessoryNone)
		return
	}
	t.vars["product"] = anchor.Name

	accs, err := o.kb.FindAccessories(ctx, t.userID, anchor, candidateLimit)
	o.lookupFailed("accessories", err)
	if len(accs) == 0 {
		t.fallback = text(t.lang, msgAccessoryNone)
		t.facts = append(t.facts, "No accessories are listed for "+anchor.Name)
		return
	}

	req := scoring.Requirements{Features: t.analysis.Entities.Accessories}
	ranked := o.scorer.Rank(accs, req)
	if len(ranked) > o.maxRecs {
		ranked = ranked[:o.maxRecs]
	}
	recs := recommendations(ranked, req, t.lang)
	md.Accessories = recs

	t.fallback = text(t.lang, msgAccessoryIntro, anchor.Name) + "\n" + productLines(recs)
	t.facts = append(t.facts, "Main product: "+anchor.Name)
	for _, r := range recs {
		t.facts = append(t.facts, fmt.Sprintf("Accessory: %s, price %s", r.Name, r.FormattedPrice))
	}
	t.vars["products"] = productNames(recs)
}

// handleCustomerService covers support, order status and shipping turns.
func (o *Orchestrator) handleCustomerService(ctx context.Context, t *turn) {
	md := &t.resp.Metadata
	e := t.analysis.Entities
	for _, f := range t.know.faqs {
		t.facts = append(t.facts, fmt.Sprintf("FAQ: %s %s", f.Question, f.Answer))
	}
	for _, qa := range t.know.qa {
		t.facts = append(t.facts, fmt.Sprintf("Q: %s A: %s", qa.Question, qa.Answer))
	}
	t.vars["order_number"] = e.OrderNumber

	switch {
	case wantsHuman(e):
		md.Escalated = o.escalate(ctx, t, ReasonHumanAgent)
		if md.Escalated {
			t.fallback = text(t.lang, msgHandoff)
			t.tplKey = msgHandoff
			t.skipModel = true
			return
		}
	case t.analysis.Intent == intent.OrderStatus && e.OrderNumber != "":
		md.Escalated = o.escalate(ctx, t, ReasonOrderStatus)
		t.fallback = text(t.lang, msgOrderStatus, e.OrderNumber)
		t.facts = append(t.facts, "Order "+e.OrderNumber+" was passed to the support team for a status check.")
		return
	case t.analysis.Intent == intent.OrderStatus:
		t.fallback = text(t.lang, msgOrderStatusNoID)
		return
	}

	if answer := firstAnswer(t.know); answer != "" {
		t.fallback = answer
		return
	}
	if t.analysis.Intent == intent.ShippingPayment {
		t.fallback = text(t.lang, msgShippingPayment)
		return
	}
	t.fallback = text(t.lang, msgCustomerService)
}

func (o *Orchestrator) handleNavigation(ctx context.Context, t *turn) {
	cats, err := o.kb.Categories(ctx, t.userID)
	o.lookupFailed("categories", err)
	names := topCategories(cats, maxNavigationCategories)
	if len(names) == 0 {
		t.fallback = text(t.lang, msgNavigationEmpty)
		return
	}
	list := strings.Join(names, ", ")
	t.fallback = text(t.lang, msgNavigation, list)
	t.facts = append(t.facts, "Shop categories: "+list)
	t.vars["categories"] = list
	t.resp.Metadata.Knowledge.Sources = appendUnique(t.resp.Metadata.Knowledge.Sources, "categories")
}

func (o *Orchestrator) handleGeneral(ctx context.Context, t *turn) {
	for _, qa := range t.know.qa {
		t.facts = append(t.facts, fmt.Sprintf("Q: %s A: %s", qa.Question, qa.Answer))
	}
	for _, f := range t.know.faqs {
		t.facts = append(t.facts, fmt.Sprintf("FAQ: %s %s", f.Question, f.Answer))
	}
	for i, p := range t.know.products {
		if i == o.maxRecs {
			break
		}
		t.facts = append(t.facts, "Product: "+p.Name)
	}
	if answer := firstAnswer(t.know); answer != "" {
		t.fallback = answer
		return
	}
	t.fallback = text(t.lang, msgGeneral)
}

// resolveProduct finds a product by id, then by name.
func (o *Orchestrator) resolveProduct(ctx context.Context, t *turn, ref string) *models.Product {
	if p, err := o.kb.FindProductByID(ctx, t.userID, ref); err == nil && p != nil {
		return p
	}
	ps, err := o.kb.FindProductsByName(ctx, t.userID, ref, 1)
	o.lookupFailed("products_by_name", err)
	if len(ps) == 0 {
		return nil
	}
	return &ps[0]
}

// rememberProducts stores shown product ids so later turns can refer to
// them ("a helmu k tomu?").
func rememberProducts(conv *conversation.Context, recs []Recommendation) {
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ProductID)
	}
	conv.Attributes["recommended_products"] = conversation.List(ids)
}

// knowsFeatures also counts domain feature lists such as bike_features.
func knowsFeatures(c *conversation.Context) bool {
	if len(c.RequiredFeatures) > 0 {
		return true
	}
	for k, v := range c.Attributes {
		if strings.HasSuffix(k, "_features") && !v.Empty() {
			return true
		}
	}
	return false
}

func firstAnswer(k retrieved) string {
	if len(k.faqs) > 0 {
		return k.faqs[0].Answer
	}
	if len(k.qa) > 0 {
		return k.qa[0].Answer
	}
	return ""
}

func formatSpecs(specs map[string]interface{}) string {
	if len(specs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, specs[k]))
	}
	return strings.Join(parts, ", ")
}

// topCategories orders by product count, then name.
func topCategories(cats map[string]int, n int) []string {
	names := make([]string, 0, len(cats))
	for name := range cats {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if cats[names[i]] != cats[names[j]] {
			return cats[names[i]] > cats[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

func appendProduct(list []models.Product, p models.Product) []models.Product {
	for _, have := range list {
		if have.ID == p.ID {
			return list
		}
	}
	return append(list, p)
}

func appendUnique(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}
