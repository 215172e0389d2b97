package query

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"chromaflow/internal/items"
)

// SortKey names a sortable column.
type SortKey string

const (
	SortByStatus   SortKey = "status"
	SortByItem     SortKey = "item"
	SortByID       SortKey = "id"
	SortByLength   SortKey = "length"
	SortByWeight   SortKey = "weight"
	SortByArea     SortKey = "area"
	SortByQuantity SortKey = "quantity"
)

// Direction is the sort order.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortConfig selects the ordering of a view.
type SortConfig struct {
	Key       SortKey   `json:"key"`
	Direction Direction `json:"direction"`
}

// ParseSortConfig validates a key and direction. An empty direction means
// ascending; "qty" is accepted for quantity.
func ParseSortConfig(key, direction string) (SortConfig, error) {
	cfg := SortConfig{Direction: Ascending}
	switch k := SortKey(strings.ToLower(strings.TrimSpace(key))); k {
	case SortByStatus, SortByItem, SortByID, SortByLength, SortByWeight, SortByArea, SortByQuantity:
		cfg.Key = k
	case "qty":
		cfg.Key = SortByQuantity
	default:
		return SortConfig{}, fmt.Errorf("unknown sort key %q", key)
	}
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "", "asc":
	case "desc":
		cfg.Direction = Descending
	default:
		return SortConfig{}, fmt.Errorf("unknown sort direction %q", direction)
	}
	return cfg, nil
}

// Sort returns a stably sorted copy of list. Ties keep their input order.
// Status sorts by position in the workflow, item and id use locale-aware
// comparison, and the measurement keys sort numerically.
func Sort(list []items.Item, cfg SortConfig) []items.Item {
	out := make([]items.Item, len(list))
	copy(out, list)

	cmp := comparator(cfg.Key)
	if cmp == nil {
		return out
	}
	sign := 1
	if cfg.Direction == Descending {
		sign = -1
	}
	sort.SliceStable(out, func(i, j int) bool {
		return sign*cmp(out[i], out[j]) < 0
	})
	return out
}

func comparator(key SortKey) func(a, b items.Item) int {
	switch key {
	case SortByStatus:
		return func(a, b items.Item) int {
			return a.Status.Index() - b.Status.Index()
		}
	case SortByItem:
		col := collate.New(language.Und)
		return func(a, b items.Item) int {
			return col.CompareString(
				strings.ToLower(a.ItemType+a.Description),
				strings.ToLower(b.ItemType+b.Description),
			)
		}
	case SortByID:
		col := collate.New(language.Und)
		return func(a, b items.Item) int {
			return col.CompareString(a.ID, b.ID)
		}
	case SortByLength:
		return numeric(func(i items.Item) float64 { return i.Length })
	case SortByWeight:
		return numeric(func(i items.Item) float64 { return i.Weight })
	case SortByArea:
		return numeric(func(i items.Item) float64 { return i.Area })
	case SortByQuantity:
		return numeric(func(i items.Item) float64 { return i.Quantity })
	default:
		return nil
	}
}

func numeric(field func(items.Item) float64) func(a, b items.Item) int {
	return func(a, b items.Item) int {
		switch x, y := field(a), field(b); {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
}
