package sweep

import (
	"context"
	"errors"
	"testing"

	"stockwatch-service/internal/catalog"
	"stockwatch-service/internal/model"
)

func taggedRef() *catalog.ProductRef {
	return &catalog.ProductRef{
		ID:     "gid://shopify/Product/42",
		Title:  "Beeswax Candle",
		Status: catalog.StatusDraft,
		Tags:   []string{"seasonal", testTag},
		SKU:    "CANDLE-42",
	}
}

func TestReactivateRestoresTaggedProduct(t *testing.T) {
	tenant := testTenant("alpha.example.com", true)
	st := newFakeStore(tenant)
	cat := &fakeCatalog{ref: taggedRef()}
	r := NewReactivator(cat, st, testTag, testLogger())

	reactivated, err := r.OnInventoryAvailable(context.Background(), tenant, "9001", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reactivated {
		t.Fatal("expected the product to be reactivated")
	}
	if len(cat.reactivated) != 1 || cat.reactivated[0] != "gid://shopify/Product/42" {
		t.Errorf("unexpected reactivation calls: %v", cat.reactivated)
	}
	if len(st.entries) != 1 {
		t.Fatalf("expected exactly one activity entry, got %d", len(st.entries))
	}
	entry := st.entries[0]
	if entry.Action != model.ActionReactivate || entry.Method != model.MethodWebhook {
		t.Errorf("unexpected entry %+v", entry)
	}
	if entry.ProductSKU == nil || *entry.ProductSKU != "CANDLE-42" {
		t.Errorf("entry should carry the SKU from the lookup, got %v", entry.ProductSKU)
	}
}

func TestReactivateIsIdempotentAcrossRedelivery(t *testing.T) {
	tenant := testTenant("beta.example.com", true)
	st := newFakeStore(tenant)
	cat := &fakeCatalog{ref: taggedRef()}
	r := NewReactivator(cat, st, testTag, testLogger())

	// First delivery reactivates; the fake mirrors the remote by removing
	// the marker tag. The duplicate delivery then finds no tag and no-ops.
	first, err := r.OnInventoryAvailable(context.Background(), tenant, "9001", 5)
	if err != nil || !first {
		t.Fatalf("first delivery: reactivated=%v err=%v", first, err)
	}
	second, err := r.OnInventoryAvailable(context.Background(), tenant, "9001", 5)
	if err != nil {
		t.Fatalf("duplicate delivery must not fail: %v", err)
	}
	if second {
		t.Error("duplicate delivery must be a no-op")
	}
	if len(cat.reactivated) != 1 {
		t.Errorf("expected exactly one remote reactivation, got %d", len(cat.reactivated))
	}
	if len(st.entries) != 1 {
		t.Errorf("expected exactly one activity entry, got %d", len(st.entries))
	}
}

func TestReactivateNoOpWhenNoStock(t *testing.T) {
	tenant := testTenant("gamma.example.com", true)
	st := newFakeStore(tenant)
	cat := &fakeCatalog{ref: taggedRef()}
	r := NewReactivator(cat, st, testTag, testLogger())

	for _, available := range []int{0, -2} {
		reactivated, err := r.OnInventoryAvailable(context.Background(), tenant, "9001", available)
		if err != nil || reactivated {
			t.Errorf("available=%d: reactivated=%v err=%v, want no-op", available, reactivated, err)
		}
	}
	if cat.lookups != 0 {
		t.Errorf("no lookup should happen without stock, got %d", cat.lookups)
	}
}

func TestReactivateNoOpWhenProductUnresolved(t *testing.T) {
	tenant := testTenant("delta.example.com", true)
	st := newFakeStore(tenant)
	cat := &fakeCatalog{ref: nil}
	r := NewReactivator(cat, st, testTag, testLogger())

	reactivated, err := r.OnInventoryAvailable(context.Background(), tenant, "9001", 5)
	if err != nil || reactivated {
		t.Fatalf("unresolved item must no-op, reactivated=%v err=%v", reactivated, err)
	}
	if len(st.entries) != 0 {
		t.Errorf("no activity should be logged, got %d entries", len(st.entries))
	}
}

func TestReactivateNoOpWithoutMarkerTag(t *testing.T) {
	tenant := testTenant("epsilon.example.com", true)
	st := newFakeStore(tenant)
	ref := taggedRef()
	ref.Tags = []string{"seasonal"}
	cat := &fakeCatalog{ref: ref}
	r := NewReactivator(cat, st, testTag, testLogger())

	reactivated, err := r.OnInventoryAvailable(context.Background(), tenant, "9001", 5)
	if err != nil || reactivated {
		t.Fatalf("untagged product must no-op, reactivated=%v err=%v", reactivated, err)
	}
	if len(cat.reactivated) != 0 {
		t.Errorf("no mutation should be issued, got %v", cat.reactivated)
	}
}

func TestReactivateHonorsAutoReactivateToggle(t *testing.T) {
	tenant := testTenant("zeta.example.com", true)
	tenant.AutoReactivateEnabled = false
	st := newFakeStore(tenant)
	cat := &fakeCatalog{ref: taggedRef()}
	r := NewReactivator(cat, st, testTag, testLogger())

	reactivated, err := r.OnInventoryAvailable(context.Background(), tenant, "9001", 5)
	if err != nil || reactivated {
		t.Fatalf("toggle off must no-op, reactivated=%v err=%v", reactivated, err)
	}
	if cat.lookups != 0 {
		t.Errorf("no lookup should happen with the toggle off, got %d", cat.lookups)
	}
}

func TestReactivateSurfacesMutationFailure(t *testing.T) {
	tenant := testTenant("eta.example.com", true)
	st := newFakeStore(tenant)
	cat := &fakeCatalog{ref: taggedRef(), reactivateErr: errors.New("remote refused")}
	r := NewReactivator(cat, st, testTag, testLogger())

	reactivated, err := r.OnInventoryAvailable(context.Background(), tenant, "9001", 5)
	if err == nil {
		t.Fatal("mutation failure must surface so the notification is redelivered")
	}
	if reactivated {
		t.Error("failed mutation must not report success")
	}
	if len(st.entries) != 0 {
		t.Errorf("failed mutation must not be logged, got %d entries", len(st.entries))
	}
}
