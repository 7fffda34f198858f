// internal/assistant/conversation/filter.go

package conversation

import (
	"regexp"
	"strings"
)

type filterOp int

const (
	opEqual filterOp = iota
	opAtLeast
	opAtMost
	opAround
)

// filterRule projects one attribute onto a catalog field.
type filterRule struct {
	attribute string
	field     string
	op        filterOp
	tolerance float64
}

var filterRules = []filterRule{
	{attribute: "bike_type", field: "technical_specs.bike_type", op: opEqual},
	{attribute: "wheel_size", field: "technical_specs.wheel_size", op: opEqual},
	{attribute: "frame_material", field: "technical_specs.frame_material", op: opEqual},
	{attribute: "screen_size_inch", field: "technical_specs.screen_size_inch", op: opAround, tolerance: 2},
	{attribute: "resolution", field: "technical_specs.resolution", op: opEqual},
	{attribute: "panel", field: "technical_specs.panel", op: opEqual},
	{attribute: "refresh_rate_hz", field: "technical_specs.refresh_rate_hz", op: opAtLeast},
	{attribute: "ram_gb", field: "technical_specs.ram_gb", op: opAtLeast},
	{attribute: "storage_gb", field: "technical_specs.storage_gb", op: opAtLeast},
	{attribute: "os", field: "technical_specs.os", op: opEqual},
	{attribute: "camera_mpx", field: "technical_specs.camera_mpx", op: opAtLeast},
	{attribute: "battery_mah", field: "technical_specs.battery_mah", op: opAtLeast},
	{attribute: "capacity_kg", field: "technical_specs.capacity_kg", op: opAtLeast},
	{attribute: "spin_rpm", field: "technical_specs.spin_rpm", op: opAtLeast},
	{attribute: "loading", field: "technical_specs.loading", op: opEqual},
	{attribute: "volume_l", field: "technical_specs.volume_l", op: opAtLeast},
	{attribute: "no_frost", field: "technical_specs.no_frost", op: opEqual},
	{attribute: "energy_class", field: "technical_specs.energy_class", op: opEqual},
	{attribute: "weight_kg", field: "technical_specs.weight_kg", op: opAtMost},
}

// GenerateFilterQuery projects the context onto a Mongo-style filter
// document. It performs no I/O and does not modify the context, so repeated
// calls return equal documents.
func (c *Context) GenerateFilterQuery() map[string]interface{} {
	filter := make(map[string]interface{})
	if c.UserID != "" {
		filter["user_id"] = c.UserID
	}
	if c.Category != "" {
		filter["category"] = c.Category
	}
	if c.Subcategory != "" {
		filter["subcategory"] = c.Subcategory
	}
	if brand := c.brand(); brand != "" {
		filter["brand"] = map[string]interface{}{
			"$regex":   regexp.QuoteMeta(brand),
			"$options": "i",
		}
	}
	if c.BudgetRange.IsSet() {
		price := make(map[string]interface{})
		if c.BudgetRange.Min != nil && *c.BudgetRange.Min > 0 {
			price["$gte"] = *c.BudgetRange.Min
		}
		if c.BudgetRange.Max != nil && *c.BudgetRange.Max < UnboundedBudget {
			price["$lte"] = *c.BudgetRange.Max
		}
		if len(price) > 0 {
			filter["pricing.one_time"] = price
		}
	}
	if len(c.RequiredFeatures) > 0 {
		features := append([]string(nil), c.RequiredFeatures...)
		filter["features"] = map[string]interface{}{"$all": features}
	}

	for _, rule := range filterRules {
		v, ok := c.Attributes[rule.attribute]
		if !ok || v.Empty() {
			continue
		}
		if clause, ok := rule.clause(v); ok {
			filter[rule.field] = clause
		}
	}
	return filter
}

func (r filterRule) clause(v Value) (interface{}, bool) {
	switch r.op {
	case opEqual:
		return v.Interface(), true
	case opAtLeast, opAtMost, opAround:
		n, ok := v.AsNumber()
		if !ok {
			return nil, false
		}
		switch r.op {
		case opAtLeast:
			return map[string]interface{}{"$gte": n}, true
		case opAtMost:
			return map[string]interface{}{"$lte": n}, true
		default:
			return map[string]interface{}{"$gte": n - r.tolerance, "$lte": n + r.tolerance}, true
		}
	}
	return nil, false
}

// brand prefers a single "brand" attribute over the first of "brands".
func (c *Context) brand() string {
	if s, ok := c.Attributes["brand"].AsString(); ok {
		return strings.TrimSpace(s)
	}
	if l, ok := c.Attributes["brands"].AsList(); ok && len(l) > 0 {
		return strings.TrimSpace(l[0])
	}
	return ""
}
