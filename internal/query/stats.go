package query

import (
	"sort"

	"chromaflow/internal/items"
	"chromaflow/internal/workflow"
)

// DashboardStats counts items per dashboard bucket. Unreceived and Shop
// Sorting have no bucket of their own but still count toward Total.
type DashboardStats struct {
	Received int `json:"received"`
	Blasting int `json:"blasting"`
	Painting int `json:"painting"`
	Packing  int `json:"packing"`
	Waiting  int `json:"waiting"`
	Shipped  int `json:"shipped"`
	Total    int `json:"total"`
}

// Stats computes dashboard counts in a single pass.
func Stats(list []items.Item) DashboardStats {
	stats := DashboardStats{Total: len(list)}
	for _, item := range list {
		switch item.Status {
		case workflow.StatusReceived:
			stats.Received++
		case workflow.StatusBlasting:
			stats.Blasting++
		case workflow.StatusPainting:
			stats.Painting++
		case workflow.StatusPacking:
			stats.Packing++
		case workflow.StatusAwaitingShipment:
			stats.Waiting++
		case workflow.StatusShipped:
			stats.Shipped++
		}
	}
	return stats
}

// Options lists the distinct non-empty values available to the equality
// filters, each sorted.
type Options struct {
	ItemTypes []string `json:"itemTypes"`
	Materials []string `json:"materials"`
	FPs       []string `json:"fps"`
}

// Distinct collects filter options from list.
func Distinct(list []items.Item) Options {
	itemTypes := map[string]struct{}{}
	materials := map[string]struct{}{}
	fps := map[string]struct{}{}
	for _, item := range list {
		addNonEmpty(itemTypes, item.ItemType)
		addNonEmpty(materials, item.Material)
		addNonEmpty(fps, item.FP)
	}
	return Options{
		ItemTypes: sortedKeys(itemTypes),
		Materials: sortedKeys(materials),
		FPs:       sortedKeys(fps),
	}
}

func addNonEmpty(set map[string]struct{}, value string) {
	if value != "" {
		set[value] = struct{}{}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
