package catalog

import "time"

// Shop identifies one tenant's remote catalog and the credential used to
// query it. Credentials are per-call state, not client state, because one
// client instance serves every tenant.
type Shop struct {
	Domain      string
	AccessToken string
}

// Category carries the product classification used by the gift-card
// exclusion rule: a display name and a normalized short type code.
type Category struct {
	Name string
	Code string
}

// Variant is one sellable variant of a product as returned by the paged
// zero-stock query. Tracked and Available are pointers because the remote
// API distinguishes "field absent" from "present and false/zero", and the
// classifier must too.
type Variant struct {
	SKU                string
	InventoryItemID    string
	Tracked            *bool
	Available          *int
	InventoryUpdatedAt *time.Time
}

// Product is one record from the paged zero-stock query.
type Product struct {
	ID       string
	Title    string
	Status   string
	Category Category
	Tags     []string
	ImageURL string
	Variants []Variant
}

// Page is one bounded page of zero-stock active products.
type Page struct {
	Products    []Product
	EndCursor   string
	HasNextPage bool
}

// ProductRef is the resolution of an inventory item to its owning product,
// with just enough state for the reactivation decision.
type ProductRef struct {
	ID     string
	Title  string
	Status string
	Tags   []string
	SKU    string
}

// HasTag reports whether the product currently carries the given tag.
func (p *ProductRef) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Product statuses used by deactivation and reactivation.
const (
	StatusActive = "ACTIVE"
	StatusDraft  = "DRAFT"
)
