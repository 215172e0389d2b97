package csvio

import (
	"io"
	"strings"

	"chromaflow/internal/items"
)

// ExportHeader is the first line of every export.
const ExportHeader = "NO,ITEM,ASSEMBLY,STATUS,SHOP"

// Serialize renders the narrow status export. Fields are joined verbatim
// without quoting, so values holding commas do not survive re-import.
func Serialize(list []items.Item) string {
	var b strings.Builder
	b.WriteString(ExportHeader)
	b.WriteByte('\n')
	for i, item := range list {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(item.ID)
		b.WriteByte(',')
		b.WriteString(item.ItemType)
		b.WriteByte(',')
		b.WriteString(item.Assembly)
		b.WriteByte(',')
		b.WriteString(item.Status.String())
		b.WriteByte(',')
		b.WriteString(item.Shop.String())
	}
	return b.String()
}

// Write streams Serialize(list) to w.
func Write(w io.Writer, list []items.Item) error {
	_, err := io.WriteString(w, Serialize(list))
	return err
}
