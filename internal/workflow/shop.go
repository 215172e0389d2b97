package workflow

import (
	"encoding"
	"fmt"
	"strings"
)

// Shop is a physical work location. ShopNone means no shop is assigned.
type Shop uint8

const (
	ShopNone Shop = iota
	ShopA
	ShopB
	ShopC
	ShopD
	ShopE
)

var shops = []Shop{ShopNone, ShopA, ShopB, ShopC, ShopD, ShopE}

var (
	_ encoding.TextMarshaler   = Shop(0)
	_ encoding.TextUnmarshaler = (*Shop)(nil)
)

// Shops returns the assignable shops, excluding ShopNone.
func Shops() []Shop {
	cp := make([]Shop, len(shops)-1)
	copy(cp, shops[1:])
	return cp
}

// Valid reports whether s is a known shop value, including ShopNone.
func (s Shop) Valid() bool {
	return int(s) < len(shops)
}

// Assigned reports whether s names a real shop.
func (s Shop) Assigned() bool {
	return s != ShopNone && s.Valid()
}

// Letter returns "A".."E", or "" for ShopNone.
func (s Shop) Letter() string {
	if !s.Assigned() {
		return ""
	}
	return string(rune('A' + int(s) - 1))
}

// String returns the display label ("Shop A" or "None").
func (s Shop) String() string {
	switch {
	case s == ShopNone:
		return "None"
	case s.Valid():
		return "Shop " + s.Letter()
	default:
		return fmt.Sprintf("Shop(%d)", uint8(s))
	}
}

func (s Shop) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownShop, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Shop) UnmarshalText(text []byte) error {
	parsed, err := ParseShop(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseShop accepts "Shop A", "shop-a", "A" or "none". An empty value is ShopNone.
func ParseShop(value string) (Shop, error) {
	normalized := normalizeToken(value)
	switch normalized {
	case "", "none":
		return ShopNone, nil
	}
	normalized = strings.TrimPrefix(normalized, "shop_")
	normalized = strings.TrimPrefix(normalized, "shop")
	if len(normalized) == 1 && normalized[0] >= 'a' && normalized[0] <= 'e' {
		return Shop(normalized[0]-'a') + ShopA, nil
	}
	return ShopNone, fmt.Errorf("%w: %q", ErrUnknownShop, value)
}
