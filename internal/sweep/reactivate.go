package sweep

import (
	"context"

	"stockwatch-service/internal/model"
	"stockwatch-service/prometheus"

	"go.uber.org/zap"
)

// Reactivator reverses a deactivation when stock comes back. It trusts
// exactly one signal: the presence of the deactivation marker tag on the
// resolved product. Duplicate notifications are harmless because the first
// successful reactivation removes the tag.
type Reactivator struct {
	catalog  Catalog
	activity ActivityStore
	tag      string
	log      *zap.Logger
}

// NewReactivator creates a reactivation handler using the given marker tag.
func NewReactivator(cat Catalog, activity ActivityStore, tag string, log *zap.Logger) *Reactivator {
	return &Reactivator{
		catalog:  cat,
		activity: activity,
		tag:      tag,
		log:      log,
	}
}

// OnInventoryAvailable handles one "inventory became available" notification
// for a shop. It returns true when a product was actually reactivated. All
// no-op outcomes (no stock, unresolvable item, marker tag absent, shop has
// auto-reactivation off) return false with no error.
func (r *Reactivator) OnInventoryAvailable(ctx context.Context, tenant *model.ShopSettings, inventoryItemID string, available int) (bool, error) {
	log := r.log.With(
		zap.String("shop", tenant.Shop),
		zap.String("inventory_item_id", inventoryItemID))

	if available <= 0 {
		return false, nil
	}
	if !tenant.AutoReactivateEnabled {
		log.Debug("Auto-reactivation disabled for shop")
		return false, nil
	}

	product, err := r.catalog.ProductByInventoryItem(ctx, shopOf(tenant), inventoryItemID)
	if err != nil {
		return false, err
	}
	if product == nil {
		log.Debug("Inventory item did not resolve to a product")
		return false, nil
	}
	if !product.HasTag(r.tag) {
		// Not deactivated by us, or already reactivated. Either way the
		// notification is a no-op, which is what makes redelivery safe.
		return false, nil
	}

	if err := r.catalog.ReactivateProduct(ctx, shopOf(tenant), product.ID, []string{r.tag}); err != nil {
		log.Error("Failed to reactivate product",
			zap.String("product_id", product.ID),
			zap.Error(err))
		return false, err
	}

	entry := &model.ActivityLog{
		Shop:         tenant.Shop,
		ProductID:    product.ID,
		ProductTitle: product.Title,
		ProductSKU:   skuPointer(product.SKU),
		Action:       model.ActionReactivate,
		Method:       model.MethodWebhook,
	}
	if err := r.activity.AppendActivityLog(entry); err != nil {
		log.Error("Failed to append reactivation activity log",
			zap.String("product_id", product.ID),
			zap.Error(err))
	}

	prometheus.ReactivationsTotal.Inc()
	log.Info("Product reactivated",
		zap.String("product_id", product.ID),
		zap.String("title", product.Title))
	return true, nil
}
