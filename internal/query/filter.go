package query

import (
	"strings"

	"chromaflow/internal/items"
	"chromaflow/internal/workflow"
)

// All disables a string predicate.
const All = "ALL"

// Predicates is the filter set applied to a list of items. String fields
// left empty or set to All do not filter.
type Predicates struct {
	// ShowShipped selects the archive (only shipped items) instead of the
	// active list (everything else).
	ShowShipped bool
	Shop        string
	Status      string
	ItemType    string
	Material    string
	FP          string
	Search      string
}

func isAll(value string) bool {
	value = strings.TrimSpace(value)
	return value == "" || strings.EqualFold(value, All)
}

type matcher struct {
	showShipped bool

	shopSet   bool
	shop      workflow.Shop
	statusSet bool
	status    workflow.Status

	itemType string
	material string
	fp       string
	search   string

	rejectAll bool
}

func (p Predicates) compile() matcher {
	m := matcher{
		showShipped: p.ShowShipped,
		search:      strings.ToLower(p.Search),
	}
	if !isAll(p.Shop) {
		shop, err := workflow.ParseShop(p.Shop)
		m.shopSet, m.shop = true, shop
		m.rejectAll = m.rejectAll || err != nil
	}
	if !isAll(p.Status) {
		status, err := workflow.ParseStatus(p.Status)
		m.statusSet, m.status = true, status
		m.rejectAll = m.rejectAll || err != nil
	}
	if !isAll(p.ItemType) {
		m.itemType = p.ItemType
	}
	if !isAll(p.Material) {
		m.material = p.Material
	}
	if !isAll(p.FP) {
		m.fp = p.FP
	}
	return m
}

// match applies the equality gates first. When every gate passes and a
// search term is set, the search result decides.
func (m matcher) match(item items.Item) bool {
	if m.rejectAll {
		return false
	}
	if item.Shipped() != m.showShipped {
		return false
	}
	if m.shopSet && item.Shop != m.shop {
		return false
	}
	if m.statusSet && item.Status != m.status {
		return false
	}
	if m.itemType != "" && item.ItemType != m.itemType {
		return false
	}
	if m.material != "" && item.Material != m.material {
		return false
	}
	if m.fp != "" && item.FP != m.fp {
		return false
	}
	if m.search != "" {
		return strings.Contains(strings.ToLower(item.ID), m.search) ||
			strings.Contains(strings.ToLower(item.ItemType), m.search) ||
			strings.Contains(strings.ToLower(item.Description), m.search)
	}
	return true
}

// Filter returns the items accepted by p, preserving order. A shop or status
// value that does not name a known shop or stage matches nothing.
func Filter(list []items.Item, p Predicates) []items.Item {
	m := p.compile()
	out := make([]items.Item, 0, len(list))
	for _, item := range list {
		if m.match(item) {
			out = append(out, item)
		}
	}
	return out
}
