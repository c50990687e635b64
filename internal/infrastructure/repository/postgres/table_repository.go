package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

var prefixPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

const timestampFormat = `YYYY-MM-DD"T"HH24:MI:SS"Z"`

// TableRepository stores the five logical tables as plain Postgres tables
// named {prefix}_{table}.
type TableRepository struct {
	db     *sql.DB
	prefix string
}

func NewTableRepository(db *sql.DB, prefix string) (*TableRepository, error) {
	if prefix == "" {
		prefix = "intake"
	}
	if !prefixPattern.MatchString(prefix) {
		return nil, fmt.Errorf("invalid table prefix %q", prefix)
	}
	return &TableRepository{db: db, prefix: prefix}, nil
}

func (r *TableRepository) tableName(t domain.Table) string {
	return r.prefix + "_" + string(t)
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (r *TableRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	for _, t := range domain.Tables() {
		schema, _ := domain.SchemaFor(t)
		if _, err := tx.ExecContext(ctx, r.createTableDDL(schema)); err != nil {
			return fmt.Errorf("create table %s: %w", t, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *TableRepository) createTableDDL(schema domain.TableSchema) string {
	idType, sortType := "TEXT", "TEXT"
	if schema.NumericID {
		idType = "BIGINT"
	}
	if schema.SortNumeric {
		sortType = "BIGINT"
	}

	var b strings.Builder
	name := r.tableName(schema.Table)
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", quote(name))
	fmt.Fprintf(&b, "\t%s %s PRIMARY KEY,\n", quote(schema.IDColumn), idType)
	fmt.Fprintf(&b, "\t%s %s NOT NULL,\n", quote(schema.SortColumn), sortType)
	for _, f := range schema.Fields {
		fmt.Fprintf(&b, "\t%s TEXT NOT NULL DEFAULT '',\n", quote(f))
	}
	fmt.Fprintf(&b, "\t%s JSONB NOT NULL DEFAULT '{}'::jsonb,\n", quote(domain.ColumnRawData))
	fmt.Fprintf(&b, "\t%s TIMESTAMPTZ NOT NULL\n);\n", quote(domain.ColumnTimestamp))
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS %s ON %s(%s DESC);\n",
		quote("idx_"+name+"_timestamp"), quote(name), quote(domain.ColumnTimestamp))
	return b.String()
}

func (r *TableRepository) Put(ctx context.Context, table domain.Table, row domain.Row) error {
	schema, ok := domain.SchemaFor(table)
	if !ok {
		return domain.WrapError(domain.ErrInvalidInput, "put row", fmt.Errorf("unknown table %q", table))
	}

	columns := schema.Columns()
	names := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		names[i] = quote(col)
		switch col {
		case domain.ColumnRawData:
			placeholders[i] = fmt.Sprintf("$%d::jsonb", i+1)
		case domain.ColumnTimestamp:
			placeholders[i] = fmt.Sprintf("$%d::timestamptz", i+1)
		default:
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		args[i] = row[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(r.tableName(table)), strings.Join(names, ", "), strings.Join(placeholders, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s row: %w", table, err)
	}
	return nil
}

func (r *TableRepository) Describe(ctx context.Context, table domain.Table) (domain.TableStatus, error) {
	name := r.tableName(table)
	status := domain.TableStatus{Table: table, Name: name, Status: "ACTIVE"}

	query := fmt.Sprintf("SELECT count(*), pg_total_relation_size($1::regclass) FROM %s", quote(name))
	if err := r.db.QueryRowContext(ctx, query, quote(name)).Scan(&status.ItemCount, &status.SizeBytes); err != nil {
		return domain.TableStatus{}, fmt.Errorf("describe %s: %w", name, err)
	}
	return status, nil
}

func (r *TableRepository) ListRecent(ctx context.Context, table domain.Table, limit int) ([]domain.Row, error) {
	schema, ok := domain.SchemaFor(table)
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "list rows", fmt.Errorf("unknown table %q", table))
	}

	columns := schema.Columns()
	selects := make([]string, len(columns))
	for i, col := range columns {
		if col == domain.ColumnTimestamp {
			selects[i] = fmt.Sprintf("to_char(%s AT TIME ZONE 'UTC', '%s')", quote(col), timestampFormat)
			continue
		}
		selects[i] = quote(col) + "::text"
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s DESC LIMIT $1",
		strings.Join(selects, ", "), quote(r.tableName(table)), quote(domain.ColumnTimestamp))
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s rows: %w", table, err)
	}
	defer rows.Close()

	out := make([]domain.Row, 0)
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		row := make(domain.Row, len(columns))
		for i, col := range columns {
			row[col] = values[i].String
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", table, err)
	}
	return out, nil
}
