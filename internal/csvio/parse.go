package csvio

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"chromaflow/internal/items"
	"chromaflow/internal/workflow"
)

// ErrNoRows reports an import source that produced no items.
var ErrNoRows = errors.New("csv contains no item rows")

// Column positions of the fabrication list export.
const (
	colID = iota
	colItem
	colAssembly
	colDescription
	colMaterial
	colLength
	colQuantity
	colWeight
	colArea
	colFP
)

// Parser converts CSV text into items. The zero value stamps items with the
// wall clock and random ids.
type Parser struct {
	Now   func() time.Time
	NewID func() string
}

// Parse uses a zero Parser.
func Parse(text string) []items.Item {
	return Parser{}.Parse(text)
}

// Parse converts text into items in row order. The first line is always
// treated as a header. Blank rows and rows with fewer than two fields are
// skipped.
func (p Parser) Parse(text string) []items.Item {
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.TrimFunc(text, isTrimmable)
	lines := splitLines(text)
	if len(lines) < 2 {
		return nil
	}

	now := p.now()
	out := make([]items.Item, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitFields(line)
		if len(fields) < 2 {
			continue
		}
		id := cleanValue(field(fields, colID))
		if id == "" {
			id = p.newID()
		}
		out = append(out, items.Item{
			ID:          id,
			ItemType:    cleanValue(field(fields, colItem)),
			Assembly:    cleanValue(field(fields, colAssembly)),
			Description: cleanValue(field(fields, colDescription)),
			Material:    cleanValue(field(fields, colMaterial)),
			Length:      parseNumber(field(fields, colLength)),
			Quantity:    parseNumber(field(fields, colQuantity)),
			Weight:      parseNumber(field(fields, colWeight)),
			Area:        parseNumber(field(fields, colArea)),
			FP:          cleanValue(field(fields, colFP)),
			Status:      workflow.Initial(),
			Shop:        workflow.ShopNone,
			UpdatedAt:   now,
		})
	}
	return out
}

func (p Parser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

func (p Parser) newID() string {
	if p.NewID != nil {
		return p.NewID()
	}
	return items.NewID()
}

func isTrimmable(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// splitFields splits on commas outside double quotes. Every quote toggles
// quoting and is dropped from the output.
func splitFields(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(fields, current.String())
}

func field(fields []string, idx int) string {
	if idx < len(fields) {
		return fields[idx]
	}
	return ""
}

// cleanValue drops one surrounding quote character on each side, then
// surrounding whitespace.
func cleanValue(value string) string {
	if value == "" {
		return ""
	}
	if value[0] == '"' || value[0] == '\'' {
		value = value[1:]
	}
	if n := len(value); n > 0 && (value[n-1] == '"' || value[n-1] == '\'') {
		value = value[:n-1]
	}
	return strings.TrimSpace(value)
}
