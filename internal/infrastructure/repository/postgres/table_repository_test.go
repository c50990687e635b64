package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*TableRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	repo, err := NewTableRepository(db, "intake")
	if err != nil {
		t.Fatalf("NewTableRepository() error = %v", err)
	}
	return repo, mock, func() { _ = db.Close() }
}

func TestNewTableRepositoryRejectsBadPrefix(t *testing.T) {
	if _, err := NewTableRepository(nil, "drop table;"); err == nil {
		t.Fatalf("expected error for unsafe prefix")
	}
}

func TestEnsureSchemaCreatesEveryTable(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	for _, table := range domain.Tables() {
		mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "intake_` + string(table) + `"`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateTableDDLUsesNumericIDs(t *testing.T) {
	repo, _, done := newRepoWithMock(t)
	defer done()

	schema, _ := domain.SchemaFor(domain.TablePurchaseAgreement)
	ddl := repo.createTableDDL(schema)
	if !strings.Contains(ddl, `"agreement_id" BIGINT PRIMARY KEY`) || !strings.Contains(ddl, `"property_id" BIGINT NOT NULL`) {
		t.Fatalf("unexpected ddl:\n%s", ddl)
	}
	if !strings.Contains(ddl, `"timestamp" TIMESTAMPTZ NOT NULL`) {
		t.Fatalf("expected timestamp column:\n%s", ddl)
	}
}

func TestPutInsertsColumnsInSchemaOrder(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	schema, _ := domain.SchemaFor(domain.TableIncomeVerification)
	row := domain.Row{}
	args := make([]any, 0, len(schema.Columns()))
	for _, col := range schema.Columns() {
		row[col] = "v-" + col
		args = append(args, "v-"+col)
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "intake_income_verification" ("buyer_id", "name", "employee_name"`)).
		WithArgs(toDriverValues(args)...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Put(context.Background(), domain.TableIncomeVerification, row); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPutWrapsDriverError(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("connection refused"))
	err := repo.Put(context.Background(), domain.TableSettlement, domain.Row{})
	if err == nil || !strings.Contains(err.Error(), "insert settlement row") {
		t.Fatalf("expected wrapped insert error, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*), pg_total_relation_size($1::regclass) FROM "intake_property"`)).
		WithArgs(`"intake_property"`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "size"}).AddRow(int64(7), int64(16384)))

	status, err := repo.Describe(context.Background(), domain.TableProperty)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if status.Name != "intake_property" || status.ItemCount != 7 || status.SizeBytes != 16384 || status.Status != "ACTIVE" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestListRecent(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	schema, _ := domain.SchemaFor(domain.TableOwnerProfile)
	columns := schema.Columns()
	values := make([]any, len(columns))
	for i, col := range columns {
		values[i] = "x-" + col
	}
	values[len(values)-1] = "2026-03-01T12:00:00Z"

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "intake_owner_profile" ORDER BY "timestamp" DESC LIMIT $1`)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(toDriverValues(values)...))

	rows, err := repo.ListRecent(context.Background(), domain.TableOwnerProfile, 5)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(rows) != 1 || rows[0]["owner_name"] != "x-owner_name" || rows[0]["timestamp"] != "2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func toDriverValues(in []any) []driver.Value {
	out := make([]driver.Value, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
