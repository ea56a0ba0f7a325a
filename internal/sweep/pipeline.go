package sweep

import (
	"context"
	"fmt"
	"time"

	"stockwatch-service/internal/classifier"
	"stockwatch-service/internal/model"
	"stockwatch-service/prometheus"

	"go.uber.org/zap"
)

// ScanResult is the outcome of one completed scan cycle. A result with zero
// candidates is an explicit empty success, distinct from a failed scan,
// which returns an error instead.
type ScanResult struct {
	CandidatesFound int
	Deactivated     []model.ProductSnapshot
}

// Pipeline runs one tenant's full fetch, classify, deactivate cycle. It is
// shared by the scheduler (AUTO) and the manual scan endpoint (MANUAL).
type Pipeline struct {
	catalog          Catalog
	executor         *Executor
	settings         SettingsStore
	defaultThreshold int
	now              func() time.Time
	log              *zap.Logger
}

// NewPipeline creates a scan pipeline. defaultThreshold is used when a
// shop's settings row predates the threshold column.
func NewPipeline(cat Catalog, executor *Executor, settings SettingsStore, defaultThreshold int, log *zap.Logger) *Pipeline {
	if defaultThreshold < 1 {
		defaultThreshold = 90
	}
	return &Pipeline{
		catalog:          cat,
		executor:         executor,
		settings:         settings,
		defaultThreshold: defaultThreshold,
		now:              time.Now,
		log:              log,
	}
}

// Run executes one scan cycle for a tenant. A failure on the very first page
// fetch fails the cycle; a failure on a later page degrades to the partial
// candidate set gathered so far. On success the tenant's last-run metadata
// and result set are persisted in a single upsert and CurrentRunState ends
// at IDLE.
func (p *Pipeline) Run(ctx context.Context, tenant *model.ShopSettings, kind string) (*ScanResult, error) {
	start := p.now()
	log := p.log.With(zap.String("shop", tenant.Shop), zap.String("kind", kind))
	log.Info("Starting scan cycle")

	p.setRunState(tenant.Shop, "Scanning catalog...")

	candidates, err := p.collectCandidates(ctx, tenant, log)
	if err != nil {
		p.setRunState(tenant.Shop, model.RunStateIdle)
		prometheus.RecordScanCycle(kind, "error")
		return nil, err
	}

	prometheus.CandidatesFound.WithLabelValues(kind).Add(float64(len(candidates)))
	log.Info("Classification complete", zap.Int("candidates", len(candidates)))

	method := model.MethodAuto
	if kind == model.RunKindManual {
		method = model.MethodManual
	}
	deactivated := p.executor.DeactivateBatch(ctx, tenant, candidates, method)

	encoded, err := model.EncodeResultSet(deactivated)
	if err != nil {
		// Snapshots are plain structs; this cannot realistically fail, but
		// a scan that mutated the catalog must still record its run time.
		log.Error("Failed to encode result set", zap.Error(err))
		encoded = "[]"
	}

	now := p.now()
	persistErr := p.settings.UpsertSettings(tenant.Shop, map[string]interface{}{
		"last_run_at":       now,
		"last_run_kind":     kind,
		"last_run_results":  encoded,
		"current_run_state": model.RunStateIdle,
	})

	result := &ScanResult{
		CandidatesFound: len(candidates),
		Deactivated:     deactivated,
	}

	prometheus.ObserveScanDuration(kind, start)
	if persistErr != nil {
		log.Error("Failed to persist run metadata", zap.Error(persistErr))
		prometheus.RecordScanCycle(kind, "error")
		return result, fmt.Errorf("persist run metadata for %s: %w", tenant.Shop, persistErr)
	}

	prometheus.RecordScanCycle(kind, "success")
	log.Info("Scan cycle complete",
		zap.Int("candidates", result.CandidatesFound),
		zap.Int("deactivated", len(result.Deactivated)),
		zap.Duration("duration", now.Sub(start)))
	return result, nil
}

// collectCandidates pages through the zero-stock query, classifying each
// page as it arrives. Candidates accumulate in page order.
func (p *Pipeline) collectCandidates(ctx context.Context, tenant *model.ShopSettings, log *zap.Logger) ([]classifier.Candidate, error) {
	shop := shopOf(tenant)
	threshold := tenant.InactivityThresholdDays
	if threshold < 1 {
		threshold = p.defaultThreshold
	}

	var candidates []classifier.Candidate
	cursor := ""
	for pageIndex := 0; ; pageIndex++ {
		page, err := p.catalog.ZeroStockActivePage(ctx, shop, cursor)
		if err != nil {
			if pageIndex == 0 {
				// Nothing fetched yet: the cycle has no usable data, so it
				// fails rather than silently reporting zero candidates.
				return nil, fmt.Errorf("first page fetch for %s: %w", tenant.Shop, err)
			}
			log.Warn("Page fetch failed, continuing with partial results",
				zap.Int("pages_fetched", pageIndex),
				zap.Int("candidates_so_far", len(candidates)),
				zap.Error(err))
			break
		}

		candidates = append(candidates, classifier.Classify(page.Products, threshold, p.now())...)

		if !page.HasNextPage {
			break
		}
		cursor = page.EndCursor
	}
	return candidates, nil
}

func (p *Pipeline) setRunState(shop, state string) {
	if err := p.settings.UpsertSettings(shop, map[string]interface{}{"current_run_state": state}); err != nil {
		p.log.Warn("Failed to update run state",
			zap.String("shop", shop),
			zap.String("state", state),
			zap.Error(err))
	}
}
