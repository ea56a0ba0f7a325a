package handler

import (
	"context"
	"net/http"
	"strconv"

	"stockwatch-service/internal/model"
	"stockwatch-service/pkg/logger"
	"stockwatch-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SettingsReader resolves a shop's settings row, nil when the shop is
// unknown. Satisfied by *store.Store.
type SettingsReader interface {
	GetSettings(shop string) (*model.ShopSettings, error)
}

// InventoryReactivator handles one inventory-available signal. Satisfied by
// *sweep.Reactivator.
type InventoryReactivator interface {
	OnInventoryAvailable(ctx context.Context, tenant *model.ShopSettings, inventoryItemID string, available int) (bool, error)
}

// InventoryLevelPayload is the inbound "inventory became available"
// notification. Available is a pointer because an absent quantity is a
// no-op, not a zero.
type InventoryLevelPayload struct {
	InventoryItemID int64 `json:"inventory_item_id"`
	Available       *int  `json:"available"`
}

// WebhookHandler receives inventory-level notifications from the remote
// catalog. Delivery is at-least-once; the reactivator's idempotency makes
// redelivery safe, so every no-op outcome answers 200 to stop retries.
type WebhookHandler struct {
	store       SettingsReader
	reactivator InventoryReactivator
}

// NewWebhookHandler creates a webhook handler
func NewWebhookHandler(st SettingsReader, reactivator InventoryReactivator) *WebhookHandler {
	return &WebhookHandler{store: st, reactivator: reactivator}
}

// HandleInventoryLevel processes one inventory-level update notification
func (h *WebhookHandler) HandleInventoryLevel(c echo.Context) error {
	log := logger.FromContext(c)

	shop := c.Request().Header.Get("X-Shop-Domain")
	if shop == "" {
		log.Warn("Inventory webhook without shop header")
		prometheus.RecordWebhookEvent("rejected")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing shop header"})
	}

	var payload InventoryLevelPayload
	if err := c.Bind(&payload); err != nil {
		log.Warn("Malformed inventory webhook payload", zap.String("shop", shop), zap.Error(err))
		prometheus.RecordWebhookEvent("rejected")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	if payload.InventoryItemID == 0 || payload.Available == nil || *payload.Available <= 0 {
		prometheus.RecordWebhookEvent("ignored")
		return c.JSON(http.StatusOK, echo.Map{"reactivated": false})
	}

	settings, err := h.store.GetSettings(shop)
	if err != nil {
		log.Error("Failed to load settings for webhook", zap.String("shop", shop), zap.Error(err))
		prometheus.RecordWebhookEvent("error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load settings"})
	}
	if settings == nil {
		// Shop was never installed here; nothing to reverse.
		prometheus.RecordWebhookEvent("ignored")
		return c.JSON(http.StatusOK, echo.Map{"reactivated": false})
	}

	inventoryItemID := strconv.FormatInt(payload.InventoryItemID, 10)
	reactivated, err := h.reactivator.OnInventoryAvailable(c.Request().Context(), settings, inventoryItemID, *payload.Available)
	if err != nil {
		log.Error("Reactivation failed",
			zap.String("shop", shop),
			zap.String("inventory_item_id", inventoryItemID),
			zap.Error(err))
		prometheus.RecordWebhookEvent("error")
		// Non-200 lets the notifier redeliver; the handler is idempotent.
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reactivation failed"})
	}

	if reactivated {
		prometheus.RecordWebhookEvent("reactivated")
	} else {
		prometheus.RecordWebhookEvent("noop")
	}
	return c.JSON(http.StatusOK, echo.Map{"reactivated": reactivated})
}
