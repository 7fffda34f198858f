// internal/assistant/conversation/context.go

// Package conversation holds the per-conversation slot-filling state that
// accumulates across turns: category, budget, required features, an open
// attribute bag and the turn history.
package conversation

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"widget-assistant/internal/assistant/extract"
	"widget-assistant/internal/assistant/lexicon"
	"widget-assistant/internal/models"
)

// UnboundedBudget stands in for a missing upper budget bound. It is finite
// so contexts always serialize to JSON.
const UnboundedBudget = 999999999.0

// Entity keys with special handling in Update.
const (
	KeyCategory    = "category"
	KeySubcategory = "subcategory"
	KeyPriceRange  = "price_range"
	KeyFeatures    = "features"
	KeyConfidence  = "confidence"
)

// BudgetRange is nil-bounded until a budget is first mentioned.
type BudgetRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func (b BudgetRange) IsSet() bool {
	return b.Min != nil || b.Max != nil
}

// HistoryEntry records one turn.
type HistoryEntry struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Query     string                 `json:"query"`
	Intent    string                 `json:"intent,omitempty"`
	Entities  map[string]interface{} `json:"entities"`
}

// Thresholds decide when a context holds enough to recommend.
type Thresholds struct {
	MinKinds int
	MinTotal int
}

var DefaultThresholds = Thresholds{MinKinds: 2, MinTotal: 3}

// Context is the slot-filling state of one conversation. It is owned by the
// caller and is not safe for concurrent updates.
type Context struct {
	ConversationID   string             `json:"conversation_id"`
	UserID           string             `json:"user_id"`
	Category         string             `json:"category,omitempty"`
	Subcategory      string             `json:"subcategory,omitempty"`
	BudgetRange      BudgetRange        `json:"budget_range"`
	RequiredFeatures []string           `json:"required_features"`
	Attributes       map[string]Value   `json:"attributes"`
	PreviousQueries  []string           `json:"previous_queries"`
	PreviousIntents  []string           `json:"previous_intents"`
	EntityHistory    []HistoryEntry     `json:"entity_history"`
	ConfidenceLevels map[string]float64 `json:"confidence_levels"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`

	// keys filled by inferDependencies rather than stated by the customer
	InferredAttributes []string `json:"inferred_attributes,omitempty"`

	registry   *extract.Registry
	thresholds Thresholds
	now        func() time.Time
}

type Option func(*Context)

// WithRegistry replaces the built-in extractor registry.
func WithRegistry(r *extract.Registry) Option {
	return func(c *Context) { c.registry = r }
}

func WithThresholds(t Thresholds) Option {
	return func(c *Context) { c.thresholds = t }
}

func WithClock(now func() time.Time) Option {
	return func(c *Context) { c.now = now }
}

var defaultRegistry = extract.NewRegistry()

// New returns an empty context. An empty conversationID gets a fresh UUID.
func New(conversationID, userID string, opts ...Option) *Context {
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	c := &Context{
		ConversationID: conversationID,
		UserID:         userID,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ensure()
	c.CreatedAt = c.clock()
	c.UpdatedAt = c.CreatedAt
	return c
}

// Apply sets options on a context restored from storage.
func (c *Context) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

func (c *Context) ensure() {
	if c.Attributes == nil {
		c.Attributes = make(map[string]Value)
	}
	if c.ConfidenceLevels == nil {
		c.ConfidenceLevels = make(map[string]float64)
	}
	if c.registry == nil {
		c.registry = defaultRegistry
	}
	if c.thresholds.MinKinds <= 0 || c.thresholds.MinTotal <= 0 {
		c.thresholds = DefaultThresholds
	}
}

func (c *Context) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now().UTC()
}

// Update folds one turn into the context. Malformed entity values are
// skipped; Update never fails.
func (c *Context) Update(query, intent string, entities map[string]interface{}) {
	c.ensure()
	now := c.clock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	c.PreviousQueries = append(c.PreviousQueries, query)
	if intent != "" {
		c.PreviousIntents = append(c.PreviousIntents, intent)
		if conf, ok := toFloat(entities[KeyConfidence]); ok {
			c.ConfidenceLevels[intent] = clamp01(conf)
		}
	}
	c.EntityHistory = append(c.EntityHistory, HistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: now,
		Query:     query,
		Intent:    intent,
		Entities:  copyEntities(entities),
	})

	explicit := c.applyEntities(entities)

	domain := lexicon.DomainGeneric
	if !explicit.category {
		if d, ok := lexicon.DetectDomain(query); ok {
			if current, _ := lexicon.DetectDomain(c.Category); c.Category == "" || current != d {
				c.Category = lexicon.DomainCategory(d)
			}
			domain = d
		}
	}
	if domain == lexicon.DomainGeneric && c.Category != "" {
		if d, ok := lexicon.DetectDomain(c.Category); ok {
			domain = d
		}
	}

	for k, raw := range c.registry.Extract(query, domain) {
		if explicit.keys[k] {
			continue
		}
		if v, ok := ValueOf(raw); ok && !v.Empty() {
			c.setStated(k, v)
		}
	}

	if b, ok := extract.ParseBudget(query); ok {
		if b.Min != nil && !explicit.min {
			c.BudgetRange.Min = b.Min
		}
		if b.Max != nil && !explicit.max {
			c.BudgetRange.Max = b.Max
		}
	}

	c.resolveBudget()
	c.inferDependencies()
}

type explicitKeys struct {
	category bool
	min, max bool
	keys     map[string]bool
}

func (c *Context) applyEntities(entities map[string]interface{}) explicitKeys {
	ex := explicitKeys{keys: make(map[string]bool)}
	for k, raw := range entities {
		switch k {
		case KeyConfidence:
		case KeyCategory:
			if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
				c.Category = strings.TrimSpace(s)
				ex.category = true
			}
		case KeySubcategory:
			if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
				c.Subcategory = strings.TrimSpace(s)
			}
		case KeyPriceRange:
			lo, hi := priceBounds(raw)
			if lo != nil {
				c.BudgetRange.Min = lo
				ex.min = true
			}
			if hi != nil {
				c.BudgetRange.Max = hi
				ex.max = true
			}
		case KeyFeatures:
			c.addFeatures(stringList(raw))
		default:
			if v, ok := ValueOf(raw); ok && !v.Empty() {
				c.setStated(k, v)
				ex.keys[k] = true
			}
		}
	}
	return ex
}

// addFeatures appends features not already present, ignoring case.
func (c *Context) addFeatures(features []string) {
	seen := make(map[string]bool, len(c.RequiredFeatures))
	for _, f := range c.RequiredFeatures {
		seen[strings.ToLower(f)] = true
	}
	for _, f := range features {
		f = strings.TrimSpace(f)
		key := strings.ToLower(f)
		if f == "" || seen[key] {
			continue
		}
		seen[key] = true
		c.RequiredFeatures = append(c.RequiredFeatures, f)
	}
}

func (c *Context) resolveBudget() {
	if !c.BudgetRange.IsSet() {
		return
	}
	if c.BudgetRange.Min == nil {
		zero := 0.0
		c.BudgetRange.Min = &zero
	}
	if c.BudgetRange.Max == nil {
		unbounded := UnboundedBudget
		c.BudgetRange.Max = &unbounded
	}
	if *c.BudgetRange.Min > *c.BudgetRange.Max {
		c.BudgetRange.Min, c.BudgetRange.Max = c.BudgetRange.Max, c.BudgetRange.Min
	}
}

var bikeUseCases = map[string]string{
	"mountain": "offroad",
	"road":     "road",
	"gravel":   "mixed terrain",
	"trekking": "touring",
	"city":     "commuting",
	"electric": "commuting",
	"kids":     "kids",
}

// inferDependencies fills secondary attributes implied by primary ones.
// Existing values are never overwritten.
func (c *Context) inferDependencies() {
	if t, ok := c.Attributes["bike_type"].AsString(); ok {
		if use, known := bikeUseCases[t]; known {
			c.setDefault("use_case", String(use))
		}
	}
	if size, ok := c.Attributes["screen_size_inch"].AsNumber(); ok && c.Category == "" {
		switch {
		case size >= 32:
			c.Category = lexicon.DomainCategory(lexicon.DomainTV)
		case size >= 10 && size <= 18:
			c.Category = lexicon.DomainCategory(lexicon.DomainLaptop)
		case size >= 4 && size <= 8:
			c.Category = lexicon.DomainCategory(lexicon.DomainPhone)
		}
	}
	if panel, ok := c.Attributes["panel"].AsString(); ok && panel == "OLED" {
		c.setDefault("resolution", String("4K"))
	}
	if kg, ok := c.Attributes["capacity_kg"].AsNumber(); ok {
		switch {
		case kg <= 6:
			c.setDefault("household_size", String("1-2"))
		case kg <= 8:
			c.setDefault("household_size", String("3-4"))
		default:
			c.setDefault("household_size", String("5+"))
		}
	}
}

func (c *Context) setDefault(key string, v Value) {
	if _, exists := c.Attributes[key]; !exists {
		c.Attributes[key] = v
		c.InferredAttributes = append(c.InferredAttributes, key)
	}
}

// setStated writes a value the customer gave, clearing any inferred mark.
func (c *Context) setStated(key string, v Value) {
	c.Attributes[key] = v
	for i, k := range c.InferredAttributes {
		if k == key {
			c.InferredAttributes = append(c.InferredAttributes[:i], c.InferredAttributes[i+1:]...)
			break
		}
	}
}

func (c *Context) isInferred(key string) bool {
	for _, k := range c.InferredAttributes {
		if k == key {
			return true
		}
	}
	return false
}

// Attribute returns an attribute as a plain Go value.
func (c *Context) Attribute(key string) (interface{}, bool) {
	v, ok := c.Attributes[key]
	if !ok {
		return nil, false
	}
	return v.Interface(), true
}

// RecentQueries returns up to n of the latest queries, oldest first.
func (c *Context) RecentQueries(n int) []string {
	return tail(c.PreviousQueries, n)
}

func (c *Context) RecentIntents(n int) []string {
	return tail(c.PreviousIntents, n)
}

// LastIntent is empty before the first classified turn.
func (c *Context) LastIntent() string {
	if len(c.PreviousIntents) == 0 {
		return ""
	}
	return c.PreviousIntents[len(c.PreviousIntents)-1]
}

// ProductReferences lists product names or ids mentioned in earlier turns.
func (c *Context) ProductReferences() []string {
	var refs []string
	for _, key := range []string{"products", "recommended_products", "product_ids"} {
		if l, ok := c.Attributes[key].AsList(); ok {
			refs = append(refs, l...)
		}
	}
	return refs
}

// HasSufficientConstraints reports whether enough is known to recommend
// products instead of asking clarifying questions. Features count one by
// one towards the total. Inferred attributes do not count.
func (c *Context) HasSufficientConstraints() bool {
	c.ensure()
	kinds, total := 0, 0
	if c.Category != "" {
		kinds++
		total++
	}
	if c.BudgetRange.IsSet() {
		kinds++
		total++
	}
	if n := len(c.RequiredFeatures); n > 0 {
		kinds++
		total += n
	}
	domainAttrs := 0
	for k, v := range c.Attributes {
		if v.Empty() || nonConstraintAttributes[k] || c.isInferred(k) {
			continue
		}
		if k == "color" {
			kinds++
			total++
			continue
		}
		domainAttrs++
	}
	if domainAttrs > 0 {
		kinds++
		total += domainAttrs
	}
	return kinds >= c.thresholds.MinKinds && total >= c.thresholds.MinTotal
}

// attributes describing the conversation rather than the wanted product
var nonConstraintAttributes = map[string]bool{
	"products":             true,
	"recommended_products": true,
	"product_ids":          true,
	"order_number":         true,
	"email":                true,
	"service_requests":     true,
	"comparison":           true,
	"accessories":          true,
	"categories":           true,
}

// Clone returns a deep copy.
func (c *Context) Clone() *Context {
	data, err := json.Marshal(c)
	if err != nil {
		return New(c.ConversationID, c.UserID)
	}
	var out Context
	if err := json.Unmarshal(data, &out); err != nil {
		return New(c.ConversationID, c.UserID)
	}
	out.registry, out.thresholds, out.now = c.registry, c.thresholds, c.now
	out.ensure()
	return &out
}

func priceBounds(raw interface{}) (lo, hi *float64) {
	get := func(v interface{}) *float64 {
		f, ok := toFloat(v)
		if !ok {
			return nil
		}
		return &f
	}
	switch pr := raw.(type) {
	case map[string]interface{}:
		return get(pr["min"]), get(pr["max"])
	case map[string]float64:
		var l, h interface{}
		if v, ok := pr["min"]; ok {
			l = v
		}
		if v, ok := pr["max"]; ok {
			h = v
		}
		return get(l), get(h)
	case BudgetRange:
		return pr.Min, pr.Max
	case *BudgetRange:
		if pr != nil {
			return pr.Min, pr.Max
		}
	}
	return nil, nil
}

// toFloat accepts numbers and localized price strings.
func toFloat(v interface{}) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	return models.ParsePrice(v)
}

func stringList(raw interface{}) []string {
	switch x := raw.(type) {
	case string:
		return []string{x}
	case []string:
		return x
	case []interface{}:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func copyEntities(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func tail(list []string, n int) []string {
	if n <= 0 || len(list) == 0 {
		return nil
	}
	if len(list) > n {
		list = list[len(list)-n:]
	}
	return append([]string(nil), list...)
}
