// Package sweep contains the scan-decide-act core: the batch deactivation
// executor, the per-tenant scan pipeline, the tenant scheduler and the
// webhook-driven reactivation handler. Collaborators are injected through the
// narrow interfaces below so every component is testable with fakes.
package sweep

import (
	"context"

	"stockwatch-service/internal/catalog"
	"stockwatch-service/internal/model"
)

// SettingsStore is the slice of the run-state store the core reads and
// writes per-shop settings through. All writes are shop-keyed merge upserts.
type SettingsStore interface {
	GetSettings(shop string) (*model.ShopSettings, error)
	UpsertSettings(shop string, fields map[string]interface{}) error
	ListAutomationEnabled() ([]model.ShopSettings, error)
}

// ActivityStore appends audit rows for successful state transitions.
type ActivityStore interface {
	AppendActivityLog(entry *model.ActivityLog) error
}

// Catalog is the remote catalog gateway consumed by the core.
type Catalog interface {
	ZeroStockActivePage(ctx context.Context, shop catalog.Shop, cursor string) (*catalog.Page, error)
	ProductByInventoryItem(ctx context.Context, shop catalog.Shop, inventoryItemID string) (*catalog.ProductRef, error)
	AddTags(ctx context.Context, shop catalog.Shop, productID string, tags []string) error
	SetStatus(ctx context.Context, shop catalog.Shop, productID, status string) error
	ReactivateProduct(ctx context.Context, shop catalog.Shop, productID string, tags []string) error
}

func shopOf(settings *model.ShopSettings) catalog.Shop {
	return catalog.Shop{
		Domain:      settings.Shop,
		AccessToken: settings.AccessToken,
	}
}
