package classifier

import (
	"testing"
	"time"

	"stockwatch-service/internal/catalog"
)

var now = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func boolPtr(b bool) *bool           { return &b }
func intPtr(i int) *int              { return &i }
func timePtr(t time.Time) *time.Time { return &t }

// daysAgo returns an instant the given number of days before the reference
// time, offset by one extra hour so elapsed time strictly exceeds the
// threshold boundary.
func daysAgo(days int) *time.Time {
	return timePtr(now.Add(-time.Duration(days)*24*time.Hour - time.Hour))
}

// variant builds a fully-tracked, zero-stock variant last touched the given
// number of days ago.
func idleVariant(sku string, days int) catalog.Variant {
	return catalog.Variant{
		SKU:                sku,
		Tracked:            boolPtr(true),
		Available:          intPtr(0),
		InventoryUpdatedAt: daysAgo(days),
	}
}

func product(title string, variants ...catalog.Variant) catalog.Product {
	return catalog.Product{
		ID:       "gid://shopify/Product/" + title,
		Title:    title,
		Status:   catalog.StatusActive,
		Variants: variants,
	}
}

func TestQualifyingProductBecomesCandidate(t *testing.T) {
	page := []catalog.Product{product("candle", idleVariant("CANDLE-1", 120))}

	got := Classify(page, 90, now)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].ProductID != "gid://shopify/Product/candle" {
		t.Errorf("unexpected product ID %q", got[0].ProductID)
	}
	if got[0].SKU != "CANDLE-1" {
		t.Errorf("expected first variant SKU, got %q", got[0].SKU)
	}
	if got[0].InactivityDays != 120 {
		t.Errorf("expected 120 inactivity days, got %d", got[0].InactivityDays)
	}
}

func TestInactivityDaysIsFloorOfElapsed(t *testing.T) {
	// 100 days and 20 hours ago: floor(elapsed/86400) = 100.
	v := idleVariant("SKU-1", 0)
	v.InventoryUpdatedAt = timePtr(now.Add(-(100*24 + 20) * time.Hour))
	got := Classify([]catalog.Product{product("p", v)}, 90, now)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].InactivityDays != 100 {
		t.Errorf("expected floor to 100 days, got %d", got[0].InactivityDays)
	}
}

func TestThresholdBoundaryIsExclusive(t *testing.T) {
	// Exactly threshold*86400 seconds ago must not qualify; one second more must.
	exactly := product("exact", catalog.Variant{
		SKU:                "EX-1",
		Tracked:            boolPtr(true),
		Available:          intPtr(0),
		InventoryUpdatedAt: timePtr(now.Add(-90 * 24 * time.Hour)),
	})
	justOver := product("over", catalog.Variant{
		SKU:                "OV-1",
		Tracked:            boolPtr(true),
		Available:          intPtr(0),
		InventoryUpdatedAt: timePtr(now.Add(-90*24*time.Hour - time.Second)),
	})

	if got := Classify([]catalog.Product{exactly}, 90, now); len(got) != 0 {
		t.Errorf("product exactly at the threshold should not qualify, got %d candidates", len(got))
	}
	if got := Classify([]catalog.Product{justOver}, 90, now); len(got) != 1 {
		t.Errorf("product one second past the threshold should qualify, got %d candidates", len(got))
	}
}

func TestUntrackedVariantDisqualifies(t *testing.T) {
	p := product("mixed",
		idleVariant("A-1", 200),
		catalog.Variant{
			SKU:                "A-2",
			Tracked:            boolPtr(false),
			Available:          intPtr(0),
			InventoryUpdatedAt: daysAgo(200),
		})

	if got := Classify([]catalog.Product{p}, 90, now); len(got) != 0 {
		t.Errorf("product with an untracked variant should never qualify, got %d candidates", len(got))
	}
}

func TestAvailableStockDisqualifies(t *testing.T) {
	p := product("instock",
		idleVariant("B-1", 200),
		catalog.Variant{
			SKU:                "B-2",
			Tracked:            boolPtr(true),
			Available:          intPtr(3),
			InventoryUpdatedAt: daysAgo(200),
		})

	if got := Classify([]catalog.Product{p}, 90, now); len(got) != 0 {
		t.Errorf("product with available stock should never qualify, got %d candidates", len(got))
	}
}

func TestAbsentAvailableDisqualifies(t *testing.T) {
	// An absent quantity is not evidence of zero stock.
	p := product("unknown", catalog.Variant{
		SKU:                "C-1",
		Tracked:            boolPtr(true),
		Available:          nil,
		InventoryUpdatedAt: daysAgo(200),
	})

	if got := Classify([]catalog.Product{p}, 90, now); len(got) != 0 {
		t.Errorf("product with unknown quantity should never qualify, got %d candidates", len(got))
	}
}

func TestNeverTouchedIsNeverACandidate(t *testing.T) {
	p := product("untouched", catalog.Variant{
		SKU:       "D-1",
		Tracked:   boolPtr(true),
		Available: intPtr(0),
	})

	if got := Classify([]catalog.Product{p}, 90, now); len(got) != 0 {
		t.Errorf("product without any inventory timestamp should never qualify, got %d candidates", len(got))
	}
}

func TestMostRecentVariantSetsTheClock(t *testing.T) {
	// One variant idle 200 days, another touched 10 days ago: the product has
	// only been continuously zero for 10 days, so it must not qualify.
	p := product("recent",
		idleVariant("E-1", 200),
		idleVariant("E-2", 10))

	if got := Classify([]catalog.Product{p}, 90, now); len(got) != 0 {
		t.Errorf("recently touched variant should reset the clock, got %d candidates", len(got))
	}

	// With both variants idle past the threshold, the product qualifies and
	// the inactivity duration comes from the newer timestamp.
	p2 := product("old",
		idleVariant("F-1", 200),
		idleVariant("F-2", 120))
	got := Classify([]catalog.Product{p2}, 90, now)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].InactivityDays != 120 {
		t.Errorf("expected inactivity from the most recent variant (120), got %d", got[0].InactivityDays)
	}
}

func TestGiftCardExclusion(t *testing.T) {
	cases := []struct {
		name     string
		category catalog.Category
		excluded bool
	}{
		{"name substring", catalog.Category{Name: "Seasonal Gift Cards"}, true},
		{"name case-insensitive", catalog.Category{Name: "GIFT CARD"}, true},
		{"code exact", catalog.Category{Code: "GIFT_CARD"}, true},
		{"code with spaces", catalog.Category{Code: "Gift Card"}, true},
		{"code with dash", catalog.Category{Code: "gift-card"}, true},
		{"unrelated", catalog.Category{Name: "Candles", Code: "home_decor"}, false},
		{"giftwrap is not a gift card", catalog.Category{Name: "Giftwrap", Code: "giftwrap"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsExcludedCategory(tc.category); got != tc.excluded {
				t.Errorf("IsExcludedCategory(%+v) = %v, want %v", tc.category, got, tc.excluded)
			}

			p := product("gc", idleVariant("G-1", 365))
			p.Category = tc.category
			candidates := Classify([]catalog.Product{p}, 90, now)
			if tc.excluded && len(candidates) != 0 {
				t.Errorf("excluded category still produced %d candidates", len(candidates))
			}
			if !tc.excluded && len(candidates) != 1 {
				t.Errorf("non-excluded category produced %d candidates, want 1", len(candidates))
			}
		})
	}
}

func TestDeterministicAndOrderPreserving(t *testing.T) {
	page := []catalog.Product{
		product("one", idleVariant("S-1", 100)),
		product("skip", catalog.Variant{SKU: "S-2", Tracked: boolPtr(false), Available: intPtr(0)}),
		product("two", idleVariant("S-3", 150)),
	}

	first := Classify(page, 90, now)
	second := Classify(page, 90, now)

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 candidates on both runs, got %d and %d", len(first), len(second))
	}
	if first[0].Title != "one" || first[1].Title != "two" {
		t.Errorf("candidates out of input order: %q, %q", first[0].Title, first[1].Title)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("classification is not deterministic at index %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestProductWithoutVariantsIsSkipped(t *testing.T) {
	if got := Classify([]catalog.Product{product("empty")}, 90, now); len(got) != 0 {
		t.Errorf("variantless product should never qualify, got %d candidates", len(got))
	}
}
