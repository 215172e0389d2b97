package items

import (
	"fmt"
	"strings"
	"time"

	"chromaflow/internal/workflow"
)

// Item is a single tracked component.
type Item struct {
	ID          string          `json:"id"`
	ItemType    string          `json:"item"`
	Assembly    string          `json:"assembly"`
	Description string          `json:"description"`
	Material    string          `json:"material"`
	Length      float64         `json:"length"`
	Quantity    float64         `json:"qty"`
	Weight      float64         `json:"weight"`
	Area        float64         `json:"area"`
	FP          string          `json:"fp"`
	Status      workflow.Status `json:"status"`
	Shop        workflow.Shop   `json:"shop"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Shipped reports whether the item reached the terminal stage.
func (i Item) Shipped() bool {
	return i.Status == workflow.Terminal()
}

// Record is the flat document shape shared by every store backend.
type Record struct {
	ID          string  `json:"id" firestore:"id"`
	Item        string  `json:"item" firestore:"item"`
	Assembly    string  `json:"assembly" firestore:"assembly"`
	Description string  `json:"description" firestore:"description"`
	Material    string  `json:"material" firestore:"material"`
	Length      float64 `json:"length" firestore:"length"`
	Qty         float64 `json:"qty" firestore:"qty"`
	Weight      float64 `json:"weight" firestore:"weight"`
	Area        float64 `json:"area" firestore:"area"`
	FP          string  `json:"fp" firestore:"fp"`
	Status      string  `json:"status" firestore:"status"`
	Shop        string  `json:"shop" firestore:"shop"`
	UpdatedAt   string  `json:"updatedAt" firestore:"updatedAt"`
}

// Record converts the item into its persisted form.
func (i Item) Record() Record {
	updated := ""
	if !i.UpdatedAt.IsZero() {
		updated = i.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return Record{
		ID:          i.ID,
		Item:        i.ItemType,
		Assembly:    i.Assembly,
		Description: i.Description,
		Material:    i.Material,
		Length:      i.Length,
		Qty:         i.Quantity,
		Weight:      i.Weight,
		Area:        i.Area,
		FP:          i.FP,
		Status:      i.Status.String(),
		Shop:        i.Shop.String(),
		UpdatedAt:   updated,
	}
}

// Decode converts a stored record into an Item.
//
// The returned Item is always usable. Unknown status values fall back to the
// initial stage and unknown shops to ShopNone; the error lists every field
// that had to be normalized so callers can log it.
func (r Record) Decode() (Item, error) {
	item := Item{
		ID:          strings.TrimSpace(r.ID),
		ItemType:    r.Item,
		Assembly:    r.Assembly,
		Description: r.Description,
		Material:    r.Material,
		Length:      r.Length,
		Quantity:    r.Qty,
		Weight:      r.Weight,
		Area:        r.Area,
		FP:          r.FP,
		Status:      workflow.Initial(),
		Shop:        workflow.ShopNone,
	}

	var problems []error
	if status, err := workflow.ParseStatus(r.Status); err == nil {
		item.Status = status
	} else {
		problems = append(problems, fmt.Errorf("status: %w", err))
	}
	if shop, err := workflow.ParseShop(r.Shop); err == nil {
		item.Shop = shop
	} else {
		problems = append(problems, fmt.Errorf("shop: %w", err))
	}
	if ts := strings.TrimSpace(r.UpdatedAt); ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			item.UpdatedAt = parsed
		} else {
			problems = append(problems, fmt.Errorf("updatedAt: %w", err))
		}
	}

	if len(problems) == 0 {
		return item, nil
	}
	return item, &DecodeError{ID: item.ID, Problems: problems}
}

// DecodeError lists the fields of a record that were normalized on decode.
type DecodeError struct {
	ID       string
	Problems []error
}

func (e *DecodeError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.Error()
	}
	return fmt.Sprintf("record %s: %s", e.ID, strings.Join(parts, "; "))
}

func (e *DecodeError) Unwrap() []error {
	return e.Problems
}

// Records converts a list of items into persisted records, preserving order.
func Records(list []Item) []Record {
	out := make([]Record, len(list))
	for i, item := range list {
		out[i] = item.Record()
	}
	return out
}
