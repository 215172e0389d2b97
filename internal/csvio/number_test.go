package csvio

import "testing"

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"10", 10},
		{"1,200", 1200},
		{"'3.5'", 3.5},
		{" 4 000 ", 4000},
		{"12kg", 12},
		{"-.25", -0.25},
		{"1e3", 1000},
		{"1e", 1},
		{".", 0},
		{"-", 0},
		{"abc", 0},
		{"1e999", 0},
	}
	for _, tc := range cases {
		if got := parseNumber(tc.in); got != tc.want {
			t.Fatalf("parseNumber(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCleanValue(t *testing.T) {
	cases := map[string]string{
		"":          "",
		"'":         "",
		"\"abc\"":   "abc",
		"  x  ":     "x",
		"'quoted' ": "quoted'",
		"\"\"v\"\"": "\"v\"",
	}
	for in, want := range cases {
		if got := cleanValue(in); got != want {
			t.Fatalf("cleanValue(%q) = %q, want %q", in, got, want)
		}
	}
}
