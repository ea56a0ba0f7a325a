package handler

import (
	"net/http"
	"strconv"

	"stockwatch-service/internal/middleware"
	"stockwatch-service/internal/store"
	"stockwatch-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ActivityHandler serves the append-only audit log
type ActivityHandler struct {
	store *store.Store
}

// NewActivityHandler creates an activity log handler
func NewActivityHandler(st *store.Store) *ActivityHandler {
	return &ActivityHandler{store: st}
}

// ListActivity returns a page of the shop's audit log, newest first
func (h *ActivityHandler) ListActivity(c echo.Context) error {
	log := logger.FromContext(c)
	shop, ok := middleware.GetShopFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "shop context required"})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	filter := store.ActivityFilter{Action: c.QueryParam("action")}

	entries, total, err := h.store.ListActivityLog(shop, filter, page, limit)
	if err != nil {
		log.Error("Failed to list activity log", zap.String("shop", shop), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve activity log"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"entries": entries,
		"total":   total,
	})
}

// ClearActivity deletes the shop's entire audit history
func (h *ActivityHandler) ClearActivity(c echo.Context) error {
	log := logger.FromContext(c)
	shop, ok := middleware.GetShopFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "shop context required"})
	}

	if err := h.store.ClearActivityLog(shop); err != nil {
		log.Error("Failed to clear activity log", zap.String("shop", shop), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to clear activity log"})
	}

	log.Info("Activity log cleared", zap.String("shop", shop))
	return c.JSON(http.StatusOK, echo.Map{"message": "activity log cleared"})
}
