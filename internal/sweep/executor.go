package sweep

import (
	"context"
	"fmt"

	"stockwatch-service/internal/catalog"
	"stockwatch-service/internal/classifier"
	"stockwatch-service/internal/model"
	"stockwatch-service/prometheus"

	"go.uber.org/zap"
)

// Executor applies deactivation to a list of candidates one at a time. Items
// are processed in input order; a single item's failure never aborts the
// batch, and the automation switch is re-read before every item so flipping
// it off stops the batch before the next mutation.
type Executor struct {
	catalog        Catalog
	settings       SettingsStore
	activity       ActivityStore
	tag            string
	progressStride int
	log            *zap.Logger
}

// NewExecutor creates a batch executor. tag is the deactivation marker added
// alongside the status change; progressStride controls how often the live
// progress string is written.
func NewExecutor(cat Catalog, settings SettingsStore, activity ActivityStore, tag string, progressStride int, log *zap.Logger) *Executor {
	if progressStride < 1 {
		progressStride = 10
	}
	return &Executor{
		catalog:        cat,
		settings:       settings,
		activity:       activity,
		tag:            tag,
		progressStride: progressStride,
		log:            log,
	}
}

// DeactivateBatch tags and drafts each candidate and returns the subset that
// was actually deactivated, in order. The tag add and the status change are
// independent remote operations: a tag failure is logged but does not block
// the status change, which is the primary effect. One activity row is
// appended per successful status change. CurrentRunState is reset to IDLE
// when the batch ends for any reason.
func (e *Executor) DeactivateBatch(ctx context.Context, tenant *model.ShopSettings, candidates []classifier.Candidate, method string) []model.ProductSnapshot {
	shop := shopOf(tenant)
	total := len(candidates)
	deactivated := make([]model.ProductSnapshot, 0, total)
	startedEnabled := tenant.AutomationEnabled

	defer e.resetRunState(tenant.Shop)

	for i, candidate := range candidates {
		if startedEnabled && e.automationTurnedOff(tenant.Shop) {
			e.log.Info("Automation disabled mid-batch, stopping",
				zap.String("shop", tenant.Shop),
				zap.Int("processed", i),
				zap.Int("total", total))
			break
		}

		if err := e.catalog.AddTags(ctx, shop, candidate.ProductID, []string{e.tag}); err != nil {
			// The status change is still attempted: the tag is a
			// reactivation hint, not the deactivation itself.
			e.log.Warn("Failed to add deactivation tag",
				zap.String("shop", tenant.Shop),
				zap.String("product_id", candidate.ProductID),
				zap.Error(err))
		}

		if err := e.catalog.SetStatus(ctx, shop, candidate.ProductID, catalog.StatusDraft); err != nil {
			e.log.Error("Failed to deactivate product",
				zap.String("shop", tenant.Shop),
				zap.String("product_id", candidate.ProductID),
				zap.String("title", candidate.Title),
				zap.Error(err))
			prometheus.DeactivationFailuresTotal.Inc()
		} else {
			entry := &model.ActivityLog{
				Shop:         tenant.Shop,
				ProductID:    candidate.ProductID,
				ProductTitle: candidate.Title,
				ProductSKU:   skuPointer(candidate.SKU),
				Action:       model.ActionDeactivate,
				Method:       method,
			}
			if err := e.activity.AppendActivityLog(entry); err != nil {
				// The remote change already happened; the missing audit row is
				// logged but the item still counts as deactivated.
				e.log.Error("Failed to append activity log",
					zap.String("shop", tenant.Shop),
					zap.String("product_id", candidate.ProductID),
					zap.Error(err))
			}

			deactivated = append(deactivated, model.ProductSnapshot{
				ProductID:      candidate.ProductID,
				Title:          candidate.Title,
				SKU:            candidate.SKU,
				ImageURL:       candidate.ImageURL,
				InactivityDays: candidate.InactivityDays,
			})
			prometheus.RecordDeactivation(method)
		}

		// Progress counts processed items, failed ones included, so the
		// live counter always reaches N/N when the batch runs to the end.
		if (i+1)%e.progressStride == 0 || i == total-1 {
			e.writeProgress(tenant.Shop, i+1, total)
		}
	}

	return deactivated
}

// automationTurnedOff re-reads the live automation flag. A store read
// failure is treated as "still on" so a transient store hiccup does not
// abort an otherwise healthy batch.
func (e *Executor) automationTurnedOff(shop string) bool {
	current, err := e.settings.GetSettings(shop)
	if err != nil {
		e.log.Warn("Failed to re-read automation flag",
			zap.String("shop", shop),
			zap.Error(err))
		return false
	}
	return current != nil && !current.AutomationEnabled
}

func (e *Executor) writeProgress(shop string, done, total int) {
	state := fmt.Sprintf("Deactivating: %d/%d items...", done, total)
	if err := e.settings.UpsertSettings(shop, map[string]interface{}{"current_run_state": state}); err != nil {
		e.log.Warn("Failed to write progress state",
			zap.String("shop", shop),
			zap.Error(err))
	}
}

func (e *Executor) resetRunState(shop string) {
	if err := e.settings.UpsertSettings(shop, map[string]interface{}{"current_run_state": model.RunStateIdle}); err != nil {
		e.log.Error("Failed to reset run state",
			zap.String("shop", shop),
			zap.Error(err))
	}
}

func skuPointer(sku string) *string {
	if sku == "" {
		return nil
	}
	return &sku
}
