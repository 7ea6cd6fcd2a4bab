package market

import "testing"

func TestNextPriceBounds(t *testing.T) {
	current := int64(15_000) // $150.00
	tests := []struct {
		draw float64
		want int64
	}{
		{draw: 0, want: 15_000},
		{draw: 1, want: 15_750},   // +5%
		{draw: -1, want: 14_250},  // -5%
		{draw: 0.5, want: 15_375}, // +2.5%
		{draw: 2, want: 15_750},   // clamped to +5%
	}
	for _, tc := range tests {
		if got := NextPrice(current, tc.draw); got != tc.want {
			t.Fatalf("NextPrice(%d, %v)=%d want %d", current, tc.draw, got, tc.want)
		}
	}
}

func TestNextPriceFloor(t *testing.T) {
	if got := NextPrice(100, -1); got != MinPriceCents {
		t.Fatalf("expected floor of %d, got %d", MinPriceCents, got)
	}
	if got := NextPrice(50, -1); got != MinPriceCents {
		t.Fatalf("expected floor of %d for sub-dollar price, got %d", MinPriceCents, got)
	}
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		base, current int64
		want          float64
	}{
		{base: 15_000, current: 15_000, want: 0},
		{base: 15_000, current: 16_500, want: 10},
		{base: 15_000, current: 14_250, want: -5},
		{base: 0, current: 12_345, want: 0},
	}
	for _, tc := range tests {
		if got := PercentChange(tc.base, tc.current); got != tc.want {
			t.Fatalf("PercentChange(%d, %d)=%v want %v", tc.base, tc.current, got, tc.want)
		}
	}
}

func TestCatalogShape(t *testing.T) {
	catalog := Catalog()
	if len(catalog) != 6 {
		t.Fatalf("expected 6 catalog entries, got %d", len(catalog))
	}
	seen := make(map[string]bool)
	for _, st := range catalog {
		if seen[st.Ticker] {
			t.Fatalf("duplicate ticker %s", st.Ticker)
		}
		seen[st.Ticker] = true
		if st.BasePriceCents < MinPriceCents {
			t.Fatalf("base price for %s below floor", st.Ticker)
		}
	}
	if len(News()) != len(catalog) {
		t.Fatalf("expected one news item per stock")
	}
}
