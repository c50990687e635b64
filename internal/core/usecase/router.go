package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/core/ports"
)

const (
	unknownEmployee = "Unknown Employee"
	unknownOwner    = "Unknown Owner"
	unknownAddress  = "Unknown Address"
	singpostLimit   = 50
)

var primaryTables = map[domain.Category]domain.Table{
	domain.CategoryIncome:     domain.TableIncomeVerification,
	domain.CategorySettlement: domain.TableSettlement,
	domain.CategoryPurchase:   domain.TablePurchaseAgreement,
}

// PrimaryTable returns the table a category is persisted to. Anything
// without a dedicated table lands in owner_profile.
func PrimaryTable(category domain.Category) domain.Table {
	if t, ok := primaryTables[category]; ok {
		return t
	}
	return domain.TableOwnerProfile
}

// Router writes one record to its primary table. Purchase agreements also
// fan out into property and owner rows; failures there do not fail the
// primary write.
type Router struct {
	store  ports.TableStore
	ids    ports.IDGenerator
	logger *slog.Logger
	now    func() time.Time
}

func NewRouter(store ports.TableStore, ids ports.IDGenerator, logger *slog.Logger) *Router {
	if ids == nil {
		ids = RandomIDs{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{store: store, ids: ids, logger: logger, now: time.Now}
}

func (r *Router) Route(ctx context.Context, category domain.Category, record domain.Record) (domain.Persisted, error) {
	ts := r.now().UTC()
	out := domain.Persisted{WrittenAt: ts}

	projected := record
	if _, ok := primaryTables[category]; !ok {
		projected = catchAllRecord(record)
	}
	primary, err := r.write(ctx, PrimaryTable(category), projected, record, ts)
	if err != nil {
		return out, err
	}
	out.Primary = primary

	if category != domain.CategoryPurchase {
		return out, nil
	}

	if record.Has("property_address") {
		r.writeDerived(ctx, &out, domain.TableProperty, propertyFromAgreement(record), ts)
	}
	if record.Has("buyer_name") {
		r.writeDerived(ctx, &out, domain.TableOwnerProfile, ownerFromAgreement(record), ts)
	}
	return out, nil
}

func (r *Router) writeDerived(ctx context.Context, out *domain.Persisted, table domain.Table, record domain.Record, ts time.Time) {
	written, err := r.write(ctx, table, record, record, ts)
	if err != nil {
		r.logger.Warn("router.derived_write.failed", "table", table, "primary_id", out.Primary.ID, "error", err)
		out.DerivedErrors = append(out.DerivedErrors, fmt.Sprintf("%s: %v", table, err))
		return
	}
	out.Derived = append(out.Derived, written)
}

// write projects columns from record and stores raw as raw_extracted_data.
func (r *Router) write(ctx context.Context, table domain.Table, record, raw domain.Record, ts time.Time) (domain.WrittenRow, error) {
	schema, ok := domain.SchemaFor(table)
	if !ok {
		return domain.WrittenRow{}, domain.WrapError(domain.ErrInvalidInput, "route record", fmt.Errorf("unknown table %q", table))
	}

	row, id := r.buildRow(schema, record, raw, ts)
	if err := r.store.Put(ctx, table, row); err != nil {
		return domain.WrittenRow{}, domain.WrapError(domain.ErrPersistence, "write "+string(table), err)
	}
	return domain.WrittenRow{Table: table, ID: id}, nil
}

func (r *Router) buildRow(schema domain.TableSchema, record, raw domain.Record, ts time.Time) (domain.Row, string) {
	row := make(domain.Row, len(schema.Fields)+4)

	var id string
	if schema.NumericID {
		n := r.ids.NewNumber()
		row[schema.IDColumn] = n
		id = strconv.FormatInt(n, 10)
	} else {
		id = r.ids.NewString()
		row[schema.IDColumn] = id
	}

	if schema.SortNumeric {
		row[schema.SortColumn] = r.ids.NewNumber()
	} else {
		row[schema.SortColumn] = sortValue(schema.Table, record)
	}

	for _, field := range schema.Fields {
		row[field] = record.Text(field, domain.FieldDefault(field))
	}
	row[domain.ColumnRawData] = raw.JSON()
	row[domain.ColumnTimestamp] = ts.Format(time.RFC3339)
	return row, id
}

func sortValue(table domain.Table, record domain.Record) string {
	switch table {
	case domain.TableIncomeVerification:
		return firstPresent(record, unknownEmployee, "employee_name")
	case domain.TableOwnerProfile:
		return firstPresent(record, unknownOwner, "full_name", "buyer_name")
	case domain.TableProperty:
		if !record.Has("property_address") {
			return unknownAddress
		}
		return truncateRunes(record.Text("property_address", ""), singpostLimit)
	default:
		return ""
	}
}

func firstPresent(record domain.Record, fallback string, fields ...string) string {
	for _, f := range fields {
		if record.Has(f) {
			return record.Text(f, fallback)
		}
	}
	return fallback
}

func propertyFromAgreement(record domain.Record) domain.Record {
	out := domain.Record{}
	for _, f := range []string{
		"property_address", "property_type", "square_footage", "bedrooms",
		"bathrooms", "lot_size", "year_built", domain.FieldStoragePath,
	} {
		if v, ok := record[f]; ok {
			out[f] = v
		}
	}
	if v, ok := record["purchase_price"]; ok {
		out["property_value"] = v
	}
	return out
}

// catchAllRecord keeps only the document path of an unclassified record;
// the rest of it survives in raw_extracted_data.
func catchAllRecord(record domain.Record) domain.Record {
	return domain.Record{domain.FieldStoragePath: record[domain.FieldStoragePath]}
}

func ownerFromAgreement(record domain.Record) domain.Record {
	return domain.Record{
		"full_name":             record["buyer_name"],
		domain.FieldStoragePath: record[domain.FieldStoragePath],
	}
}
