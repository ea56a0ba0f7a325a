package handler

import (
	"errors"
	"net/http"

	"stockwatch-service/internal/middleware"
	"stockwatch-service/internal/model"
	"stockwatch-service/internal/store"
	"stockwatch-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SettingsRequest defines the structure for partial settings updates. All
// fields are optional; absent fields keep their stored values.
type SettingsRequest struct {
	AutomationEnabled       *bool   `json:"automation_enabled"`
	RunIntervalValue        *int    `json:"run_interval_value"`
	RunIntervalUnit         *string `json:"run_interval_unit"`
	InactivityThresholdDays *int    `json:"inactivity_threshold_days"`
	AutoReactivateEnabled   *bool   `json:"auto_reactivate_enabled"`
	AccessToken             *string `json:"access_token"`
}

// SettingsHandler serves the per-shop automation settings
type SettingsHandler struct {
	store *store.Store
}

// NewSettingsHandler creates a settings handler
func NewSettingsHandler(st *store.Store) *SettingsHandler {
	return &SettingsHandler{store: st}
}

// GetSettings returns the caller's settings, creating a defaults row on
// first encounter
func (h *SettingsHandler) GetSettings(c echo.Context) error {
	log := logger.FromContext(c)
	shop, ok := middleware.GetShopFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "shop context required"})
	}

	settings, err := h.store.GetOrCreateSettings(shop)
	if err != nil {
		log.Error("Failed to load settings", zap.String("shop", shop), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load settings"})
	}

	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings merge-writes the provided fields into the shop's settings
func (h *SettingsHandler) UpdateSettings(c echo.Context) error {
	log := logger.FromContext(c)
	shop, ok := middleware.GetShopFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "shop context required"})
	}

	var req SettingsRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid settings request", zap.String("shop", shop), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	fields, err := settingsFields(&req)
	if err != nil {
		log.Warn("Rejected settings update", zap.String("shop", shop), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if err := h.store.UpsertSettings(shop, fields); err != nil {
		log.Error("Failed to save settings", zap.String("shop", shop), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save settings"})
	}

	settings, err := h.store.GetSettings(shop)
	if err != nil {
		log.Error("Failed to reload settings", zap.String("shop", shop), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load settings"})
	}

	log.Info("Settings updated",
		zap.String("shop", shop),
		zap.Int("fields", len(fields)))
	return c.JSON(http.StatusOK, settings)
}

// settingsFields validates a partial update and converts it to the column
// map consumed by the store's merge upsert.
func settingsFields(req *SettingsRequest) (map[string]interface{}, error) {
	fields := map[string]interface{}{}

	if req.AutomationEnabled != nil {
		fields["automation_enabled"] = *req.AutomationEnabled
	}
	if req.RunIntervalValue != nil {
		if *req.RunIntervalValue < 1 {
			return nil, errors.New("run_interval_value must be at least 1")
		}
		fields["run_interval_value"] = *req.RunIntervalValue
	}
	if req.RunIntervalUnit != nil {
		if *req.RunIntervalUnit != model.IntervalUnitMinutes && *req.RunIntervalUnit != model.IntervalUnitDays {
			return nil, errors.New("run_interval_unit must be minutes or days")
		}
		fields["run_interval_unit"] = *req.RunIntervalUnit
	}
	if req.InactivityThresholdDays != nil {
		if *req.InactivityThresholdDays < 1 {
			return nil, errors.New("inactivity_threshold_days must be at least 1")
		}
		fields["inactivity_threshold_days"] = *req.InactivityThresholdDays
	}
	if req.AutoReactivateEnabled != nil {
		fields["auto_reactivate_enabled"] = *req.AutoReactivateEnabled
	}
	if req.AccessToken != nil {
		fields["access_token"] = *req.AccessToken
	}

	return fields, nil
}
