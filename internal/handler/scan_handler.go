package handler

import (
	"net/http"

	"stockwatch-service/internal/middleware"
	"stockwatch-service/internal/model"
	"stockwatch-service/internal/store"
	"stockwatch-service/internal/sweep"
	"stockwatch-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ScanHandler serves manual scan triggers and live scan status
type ScanHandler struct {
	store    *store.Store
	pipeline *sweep.Pipeline
}

// NewScanHandler creates a scan handler
func NewScanHandler(st *store.Store, pipeline *sweep.Pipeline) *ScanHandler {
	return &ScanHandler{store: st, pipeline: pipeline}
}

// RunScan triggers a manual scan cycle for the caller's shop and runs it
// synchronously. A scan that finds nothing returns an explicit empty
// success; a scan whose first catalog fetch fails returns an error status,
// never a silent zero.
func (h *ScanHandler) RunScan(c echo.Context) error {
	log := logger.FromContext(c)
	shop, ok := middleware.GetShopFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "shop context required"})
	}

	settings, err := h.store.GetOrCreateSettings(shop)
	if err != nil {
		log.Error("Failed to load settings for scan", zap.String("shop", shop), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load settings"})
	}
	if settings.AccessToken == "" {
		log.Warn("Scan requested without catalog access token", zap.String("shop", shop))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "catalog access is not configured for this shop"})
	}

	result, err := h.pipeline.Run(c.Request().Context(), settings, model.RunKindManual)
	if err != nil {
		log.Error("Manual scan failed", zap.String("shop", shop), zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "scan failed, no changes were recorded for the failed step"})
	}

	log.Info("Manual scan complete",
		zap.String("shop", shop),
		zap.Int("candidates", result.CandidatesFound),
		zap.Int("deactivated", len(result.Deactivated)))
	return c.JSON(http.StatusOK, echo.Map{
		"candidates_found": result.CandidatesFound,
		"deactivated":      result.Deactivated,
	})
}

// GetStatus returns the shop's live run state and last-run metadata, for
// dashboard polling while a batch is in progress
func (h *ScanHandler) GetStatus(c echo.Context) error {
	log := logger.FromContext(c)
	shop, ok := middleware.GetShopFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "shop context required"})
	}

	settings, err := h.store.GetOrCreateSettings(shop)
	if err != nil {
		log.Error("Failed to load scan status", zap.String("shop", shop), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load scan status"})
	}

	results, err := settings.LastRunResultSet()
	if err != nil {
		log.Error("Failed to decode last run results", zap.String("shop", shop), zap.Error(err))
		results = []model.ProductSnapshot{}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"current_run_state": settings.CurrentRunState,
		"last_run_at":       settings.LastRunAt,
		"last_run_kind":     settings.LastRunKind,
		"last_run_results":  results,
	})
}
