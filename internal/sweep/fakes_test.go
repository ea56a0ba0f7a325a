package sweep

import (
	"context"
	"os"
	"sync"
	"testing"

	"stockwatch-service/internal/catalog"
	"stockwatch-service/internal/model"
	"stockwatch-service/pkg/config"
	"stockwatch-service/prometheus"

	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	prometheus.InitMetrics(&config.Config{
		Metrics: config.MetricsConfig{Prefix: "sweep_test"},
	})
	os.Exit(m.Run())
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// fakeStore is an in-memory run-state store. Upserts apply the column
// fields the core actually writes so assertions can read them back.
type fakeStore struct {
	mu        sync.Mutex
	settings  map[string]*model.ShopSettings
	upserts   []map[string]interface{}
	entries   []model.ActivityLog
	getErr    error
	upsertErr error
	listErr   error
	appendErr error
}

func newFakeStore(tenants ...*model.ShopSettings) *fakeStore {
	f := &fakeStore{settings: map[string]*model.ShopSettings{}}
	for _, t := range tenants {
		f.settings[t.Shop] = t
	}
	return f
}

func (f *fakeStore) GetSettings(shop string) (*model.ShopSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	settings, ok := f.settings[shop]
	if !ok {
		return nil, nil
	}
	copied := *settings
	return &copied, nil
}

func (f *fakeStore) UpsertSettings(shop string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	recorded := map[string]interface{}{"shop": shop}
	for k, v := range fields {
		recorded[k] = v
	}
	f.upserts = append(f.upserts, recorded)

	settings, ok := f.settings[shop]
	if !ok {
		settings = &model.ShopSettings{Shop: shop}
		f.settings[shop] = settings
	}
	if v, ok := fields["current_run_state"].(string); ok {
		settings.CurrentRunState = v
	}
	if v, ok := fields["last_run_kind"].(string); ok {
		settings.LastRunKind = &v
	}
	if v, ok := fields["last_run_results"].(string); ok {
		settings.LastRunResults = v
	}
	return nil
}

func (f *fakeStore) ListAutomationEnabled() ([]model.ShopSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.ShopSettings
	for _, settings := range f.settings {
		if settings.AutomationEnabled {
			out = append(out, *settings)
		}
	}
	return out, nil
}

func (f *fakeStore) AppendActivityLog(entry *model.ActivityLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, *entry)
	return nil
}

// setAutomation flips the live automation flag, simulating the merchant
// hitting the stop switch mid-batch.
func (f *fakeStore) setAutomation(shop string, enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if settings, ok := f.settings[shop]; ok {
		settings.AutomationEnabled = enabled
	}
}

func (f *fakeStore) runState(shop string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if settings, ok := f.settings[shop]; ok {
		return settings.CurrentRunState
	}
	return ""
}

// fakeCatalog scripts the remote catalog: fixed pages for the paged query
// and per-product mutation failures.
type fakeCatalog struct {
	mu sync.Mutex

	pages    []*catalog.Page
	pageErrs []error
	fetches  int

	addTagsErr   map[string]error
	setStatusErr map[string]error
	tagged       []string
	drafted      []string

	ref           *catalog.ProductRef
	refErr        error
	lookups       int
	reactivateErr error
	reactivated   []string

	// afterSetStatus runs after each successful status change, letting a
	// test flip settings between items.
	afterSetStatus func(productID string)
}

func (f *fakeCatalog) ZeroStockActivePage(ctx context.Context, shop catalog.Shop, cursor string) (*catalog.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.fetches
	f.fetches++
	if i < len(f.pageErrs) && f.pageErrs[i] != nil {
		return nil, f.pageErrs[i]
	}
	if i < len(f.pages) {
		return f.pages[i], nil
	}
	return &catalog.Page{}, nil
}

func (f *fakeCatalog) ProductByInventoryItem(ctx context.Context, shop catalog.Shop, inventoryItemID string) (*catalog.ProductRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.refErr != nil {
		return nil, f.refErr
	}
	if f.ref == nil {
		return nil, nil
	}
	copied := *f.ref
	return &copied, nil
}

func (f *fakeCatalog) AddTags(ctx context.Context, shop catalog.Shop, productID string, tags []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.addTagsErr[productID]; err != nil {
		return err
	}
	f.tagged = append(f.tagged, productID)
	return nil
}

func (f *fakeCatalog) SetStatus(ctx context.Context, shop catalog.Shop, productID, status string) error {
	f.mu.Lock()
	hook := f.afterSetStatus
	if err := f.setStatusErr[productID]; err != nil {
		f.mu.Unlock()
		return err
	}
	f.drafted = append(f.drafted, productID)
	f.mu.Unlock()
	if hook != nil {
		hook(productID)
	}
	return nil
}

func (f *fakeCatalog) ReactivateProduct(ctx context.Context, shop catalog.Shop, productID string, tags []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reactivateErr != nil {
		return f.reactivateErr
	}
	f.reactivated = append(f.reactivated, productID)
	// Mirror the remote effect: the marker tag is gone afterwards.
	if f.ref != nil && f.ref.ID == productID {
		var remaining []string
		for _, have := range f.ref.Tags {
			keep := true
			for _, removed := range tags {
				if have == removed {
					keep = false
				}
			}
			if keep {
				remaining = append(remaining, have)
			}
		}
		f.ref.Tags = remaining
	}
	return nil
}
