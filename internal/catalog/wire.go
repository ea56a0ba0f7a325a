package catalog

import "time"

// Wire shapes for the paged zero-stock query. Optional scalar fields are
// pointers: the classifier needs "absent" kept distinct from "false"/"zero".

type productNode struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Status      string   `json:"status"`
	Tags        []string `json:"tags"`
	ProductType string   `json:"productType"`
	Category    *struct {
		Name string `json:"name"`
	} `json:"category"`
	FeaturedMedia *struct {
		Preview *struct {
			Image *struct {
				URL string `json:"url"`
			} `json:"image"`
		} `json:"preview"`
	} `json:"featuredMedia"`
	Variants struct {
		Nodes []variantNode `json:"nodes"`
	} `json:"variants"`
}

type variantNode struct {
	SKU               string `json:"sku"`
	InventoryQuantity *int   `json:"inventoryQuantity"`
	InventoryItem     *struct {
		ID              string `json:"id"`
		Tracked         *bool  `json:"tracked"`
		InventoryLevels struct {
			Nodes []struct {
				UpdatedAt *time.Time `json:"updatedAt"`
			} `json:"nodes"`
		} `json:"inventoryLevels"`
	} `json:"inventoryItem"`
}

func (n productNode) toProduct() Product {
	product := Product{
		ID:     n.ID,
		Title:  n.Title,
		Status: n.Status,
		Tags:   n.Tags,
		Category: Category{
			Code: n.ProductType,
		},
	}
	if n.Category != nil {
		product.Category.Name = n.Category.Name
	}
	if n.FeaturedMedia != nil && n.FeaturedMedia.Preview != nil && n.FeaturedMedia.Preview.Image != nil {
		product.ImageURL = n.FeaturedMedia.Preview.Image.URL
	}
	for _, v := range n.Variants.Nodes {
		product.Variants = append(product.Variants, v.toVariant())
	}
	return product
}

func (n variantNode) toVariant() Variant {
	variant := Variant{
		SKU:       n.SKU,
		Available: n.InventoryQuantity,
	}
	if n.InventoryItem == nil {
		return variant
	}
	variant.InventoryItemID = n.InventoryItem.ID
	variant.Tracked = n.InventoryItem.Tracked

	// The variant's inventory clock is its most recently touched level.
	var latest *time.Time
	for _, level := range n.InventoryItem.InventoryLevels.Nodes {
		if level.UpdatedAt == nil {
			continue
		}
		if latest == nil || level.UpdatedAt.After(*latest) {
			t := *level.UpdatedAt
			latest = &t
		}
	}
	variant.InventoryUpdatedAt = latest
	return variant
}
