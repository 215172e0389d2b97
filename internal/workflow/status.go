package workflow

import (
	"encoding"
	"fmt"
	"strings"
)

// Status is a fabrication stage. The numeric value is the position in the
// workflow sequence; the display label is independent of it.
type Status uint8

const (
	StatusUnreceived Status = iota
	StatusReceived
	StatusBlasting
	StatusShopSorting
	StatusPainting
	StatusPacking
	StatusAwaitingShipment
	StatusShipped
)

var sequence = []Status{
	StatusUnreceived,
	StatusReceived,
	StatusBlasting,
	StatusShopSorting,
	StatusPainting,
	StatusPacking,
	StatusAwaitingShipment,
	StatusShipped,
}

var statusLabels = map[Status]string{
	StatusUnreceived:       "Unreceived",
	StatusReceived:         "Received (Inbound)",
	StatusBlasting:         "Blasting",
	StatusShopSorting:      "Shop Sorting",
	StatusPainting:         "Painting",
	StatusPacking:          "Packing",
	StatusAwaitingShipment: "Awaiting Shipment",
	StatusShipped:          "Shipped",
}

var statusKeys = map[Status]string{
	StatusUnreceived:       "unreceived",
	StatusReceived:         "received",
	StatusBlasting:         "blasting",
	StatusShopSorting:      "shop_sorting",
	StatusPainting:         "painting",
	StatusPacking:          "packing",
	StatusAwaitingShipment: "awaiting_shipment",
	StatusShipped:          "shipped",
}

var (
	_ encoding.TextMarshaler   = Status(0)
	_ encoding.TextUnmarshaler = (*Status)(nil)
)

// Sequence returns the ordered list of stages, first to terminal.
func Sequence() []Status {
	cp := make([]Status, len(sequence))
	copy(cp, sequence)
	return cp
}

// Initial is the stage every freshly imported item starts in.
func Initial() Status { return sequence[0] }

// Terminal is the last stage; advancing from it is a no-op.
func Terminal() Status { return sequence[len(sequence)-1] }

// Valid reports whether s is a member of the workflow sequence.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Index returns the ordinal of s in the sequence, or -1 when unknown.
func (s Status) Index() int {
	for i, candidate := range sequence {
		if candidate == s {
			return i
		}
	}
	return -1
}

// String returns the display label stored in records and exports.
func (s Status) String() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Key returns the lowercase identifier used by CLI flags and API parameters.
func (s Status) Key() string {
	return statusKeys[s]
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus accepts a display label ("Received (Inbound)"), a key
// ("shop_sorting"), or a loose spelling of either ("shop-sorting", "Shop Sorting").
func ParseStatus(value string) (Status, error) {
	normalized := normalizeToken(value)
	if normalized == "" {
		return 0, fmt.Errorf("%w: empty value", ErrUnknownStatus)
	}
	for _, status := range sequence {
		if normalized == normalizeToken(statusLabels[status]) || normalized == statusKeys[status] {
			return status, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, value)
}

// NextStatus returns the stage after current. The terminal stage and unknown
// values are returned unchanged.
func NextStatus(current Status) Status {
	idx := current.Index()
	if idx < 0 || idx == len(sequence)-1 {
		return current
	}
	return sequence[idx+1]
}

// RequiresShop reports whether advancing an item out of status needs an
// operator-chosen shop. Blasting and Shop Sorting feed Painting, and painting
// happens in a specific shop.
func RequiresShop(status Status) bool {
	return status == StatusBlasting || status == StatusShopSorting
}

func normalizeToken(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	replacer := strings.NewReplacer("(", "", ")", "", "-", "_", " ", "_")
	value = replacer.Replace(value)
	for strings.Contains(value, "__") {
		value = strings.ReplaceAll(value, "__", "_")
	}
	return strings.Trim(value, "_")
}
