package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

func newTestRouter(store *tableStoreFake) *Router {
	r := NewRouter(store, &idsFake{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func purchaseRecord() domain.Record {
	return domain.Record{
		"buyer_name":            "Alice Buyer",
		"seller_name":           "Bob Seller",
		"property_address":      "12 Orchard Road, Springfield, IL 62701, United States",
		"purchase_price":        json.Number("450000"),
		"bedrooms":              json.Number("3"),
		domain.FieldStoragePath: "mem://bucket/purchase_agreements/a.pdf",
	}
}

func TestRouterPurchaseFansOut(t *testing.T) {
	store := &tableStoreFake{}
	out, err := newTestRouter(store).Route(context.Background(), domain.CategoryPurchase, purchaseRecord())
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if ids := out.IDs(); len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %v", ids)
	}

	agreements := store.putsFor(domain.TablePurchaseAgreement)
	if len(agreements) != 1 {
		t.Fatalf("expected 1 agreement row, got %d", len(agreements))
	}
	if _, ok := agreements[0]["agreement_id"].(int64); !ok {
		t.Fatalf("expected numeric agreement_id, got %#v", agreements[0]["agreement_id"])
	}
	if _, ok := agreements[0]["property_id"].(int64); !ok {
		t.Fatalf("expected numeric property_id, got %#v", agreements[0]["property_id"])
	}
	if agreements[0]["purchase_price"] != "450000" {
		t.Fatalf("expected purchase_price as text, got %#v", agreements[0]["purchase_price"])
	}
	if agreements[0]["earnest_money"] != "0" {
		t.Fatalf("expected numeric default 0, got %#v", agreements[0]["earnest_money"])
	}
	if agreements[0][domain.ColumnTimestamp] != "2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected timestamp %v", agreements[0][domain.ColumnTimestamp])
	}

	props := store.putsFor(domain.TableProperty)
	if len(props) != 1 {
		t.Fatalf("expected 1 property row, got %d", len(props))
	}
	if props[0]["property_value"] != "450000" {
		t.Fatalf("expected property_value from purchase_price, got %v", props[0]["property_value"])
	}
	if got := props[0]["singpost"].(string); len([]rune(got)) != 50 {
		t.Fatalf("expected singpost truncated to 50 runes, got %q", got)
	}
	if props[0][domain.FieldStoragePath] != "mem://bucket/purchase_agreements/a.pdf" {
		t.Fatalf("expected storage path on derived row, got %v", props[0][domain.FieldStoragePath])
	}

	owners := store.putsFor(domain.TableOwnerProfile)
	if len(owners) != 1 || owners[0]["owner_name"] != "Alice Buyer" || owners[0]["full_name"] != "Alice Buyer" {
		t.Fatalf("unexpected owner rows: %v", owners)
	}
}

func TestRouterPurchaseWithoutBuyerOrAddress(t *testing.T) {
	store := &tableStoreFake{}
	rec := domain.Record{"seller_name": "Bob", domain.FieldStoragePath: "p"}
	out, err := newTestRouter(store).Route(context.Background(), domain.CategoryPurchase, rec)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if ids := out.IDs(); len(ids) != 1 {
		t.Fatalf("expected only the agreement id, got %v", ids)
	}
}

func TestRouterDerivedFailureKeepsPrimary(t *testing.T) {
	store := &tableStoreFake{failFor: map[domain.Table]error{domain.TableProperty: errors.New("throttled")}}
	out, err := newTestRouter(store).Route(context.Background(), domain.CategoryPurchase, purchaseRecord())
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if out.Primary.ID == "" {
		t.Fatalf("expected primary id")
	}
	if len(out.Derived) != 1 || out.Derived[0].Table != domain.TableOwnerProfile {
		t.Fatalf("expected only owner derived row, got %+v", out.Derived)
	}
	if len(out.DerivedErrors) != 1 {
		t.Fatalf("expected one derived error, got %v", out.DerivedErrors)
	}
}

func TestRouterPrimaryFailure(t *testing.T) {
	store := &tableStoreFake{failFor: map[domain.Table]error{domain.TableIncomeVerification: errors.New("down")}}
	_, err := newTestRouter(store).Route(context.Background(), domain.CategoryIncome, domain.Record{})
	if !domain.IsKind(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestRouterIncomeDefaultsName(t *testing.T) {
	store := &tableStoreFake{}
	out, err := newTestRouter(store).Route(context.Background(), domain.CategoryIncome, domain.Record{"employer_name": "Acme"})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	rows := store.putsFor(domain.TableIncomeVerification)
	if len(rows) != 1 || rows[0]["name"] != "Unknown Employee" {
		t.Fatalf("unexpected income rows: %v", rows)
	}
	if rows[0]["buyer_id"] != out.Primary.ID {
		t.Fatalf("expected buyer_id %s, got %v", out.Primary.ID, rows[0]["buyer_id"])
	}
}

func TestRouterInvalidGoesToOwnerCatchAll(t *testing.T) {
	store := &tableStoreFake{}
	rec := domain.Record{"summary": "misc", "buyer_name": "Jane Doe", "city": "Austin", domain.FieldStoragePath: "p"}
	out, err := newTestRouter(store).Route(context.Background(), domain.CategoryInvalid, rec)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if out.Primary.Table != domain.TableOwnerProfile {
		t.Fatalf("expected owner_profile catch-all, got %s", out.Primary.Table)
	}
	rows := store.putsFor(domain.TableOwnerProfile)
	var raw map[string]any
	if err := json.Unmarshal([]byte(rows[0][domain.ColumnRawData].(string)), &raw); err != nil {
		t.Fatalf("raw_extracted_data is not JSON: %v", err)
	}
	if raw["summary"] != "misc" || raw["buyer_name"] != "Jane Doe" {
		t.Fatalf("expected full record in raw data, got %v", raw)
	}
	if rows[0]["owner_name"] != "Unknown Owner" {
		t.Fatalf("expected Unknown Owner sort key, got %v", rows[0]["owner_name"])
	}
	if rows[0]["city"] != "" || rows[0][domain.FieldStoragePath] != "p" {
		t.Fatalf("expected only the document path projected, got city=%v path=%v", rows[0]["city"], rows[0][domain.FieldStoragePath])
	}
}
