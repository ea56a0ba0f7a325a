// Package classifier decides which zero-stock products have been idle long
// enough to deactivate. Classification is deterministic and side-effect free:
// the same input page, threshold and reference time always produce the same
// candidate set.
package classifier

import (
	"strings"
	"time"

	"stockwatch-service/internal/catalog"
)

const secondsPerDay = 86400

// giftCardCode is the normalized short type code exempt from deactivation.
const giftCardCode = "gift_card"

// Candidate is a product eligible for deactivation together with how long it
// has been idle.
type Candidate struct {
	ProductID      string
	Title          string
	SKU            string
	ImageURL       string
	InactivityDays int
}

// Classify examines one page of zero-stock product records and returns the
// deactivation candidates, in input order. A product qualifies only when
// every variant is inventory-tracked, every variant shows exactly zero
// available, and the most recently touched variant's inventory timestamp is
// more than thresholdDays ago. Untracked variants disqualify the whole
// product: untracked stock is always considered available. Products whose
// category matches the gift-card exclusion are never candidates, and neither
// are products with no resolvable inventory timestamp at all — absence of
// signal is not evidence of inactivity.
func Classify(products []catalog.Product, thresholdDays int, now time.Time) []Candidate {
	candidates := make([]Candidate, 0, len(products))
	for _, product := range products {
		if candidate, ok := classifyProduct(product, thresholdDays, now); ok {
			candidates = append(candidates, candidate)
		}
	}
	return candidates
}

func classifyProduct(product catalog.Product, thresholdDays int, now time.Time) (Candidate, bool) {
	if IsExcludedCategory(product.Category) {
		return Candidate{}, false
	}
	if len(product.Variants) == 0 {
		return Candidate{}, false
	}

	var idleSince *time.Time
	for _, variant := range product.Variants {
		// Explicitly untracked inventory means the item is always
		// purchasable, so the product can never be idle.
		if variant.Tracked != nil && !*variant.Tracked {
			return Candidate{}, false
		}
		// An absent quantity cannot confirm the variant is at zero.
		if variant.Available == nil || *variant.Available > 0 {
			return Candidate{}, false
		}
		if variant.InventoryUpdatedAt == nil {
			continue
		}
		if idleSince == nil || variant.InventoryUpdatedAt.After(*idleSince) {
			t := *variant.InventoryUpdatedAt
			idleSince = &t
		}
	}

	// Never touched: no inventory-level timestamp on any variant.
	if idleSince == nil {
		return Candidate{}, false
	}

	elapsed := int64(now.Sub(*idleSince) / time.Second)
	if elapsed <= int64(thresholdDays)*secondsPerDay {
		return Candidate{}, false
	}

	candidate := Candidate{
		ProductID:      product.ID,
		Title:          product.Title,
		ImageURL:       product.ImageURL,
		InactivityDays: int(elapsed / secondsPerDay),
	}
	if len(product.Variants) > 0 {
		candidate.SKU = product.Variants[0].SKU
	}
	return candidate, true
}

// IsExcludedCategory reports whether a product category is exempt from
// deactivation. Gift cards match either by a case-insensitive substring of
// the category name or by the normalized short type code.
func IsExcludedCategory(category catalog.Category) bool {
	if strings.Contains(strings.ToLower(category.Name), "gift card") {
		return true
	}
	return normalizeCode(category.Code) == giftCardCode
}

// normalizeCode lowercases a type code and folds spaces and dashes to
// underscores, so "Gift Card", "gift-card" and "GIFT_CARD" all compare equal.
func normalizeCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, " ", "_")
	code = strings.ReplaceAll(code, "-", "_")
	return code
}
