package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

const countAlias = "all"

// TableRepository keeps each logical table in a collection named
// {prefix}_{table}. Document ids are the generated primary ids.
type TableRepository struct {
	client *firestore.Client
	prefix string
}

func New(ctx context.Context, projectID, prefix string) (*TableRepository, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &TableRepository{client: client, prefix: normalizePrefix(prefix)}, nil
}

func (r *TableRepository) Close() error {
	return r.client.Close()
}

func (r *TableRepository) Put(ctx context.Context, table domain.Table, row domain.Row) error {
	schema, ok := domain.SchemaFor(table)
	if !ok {
		return domain.WrapError(domain.ErrInvalidInput, "put row", fmt.Errorf("unknown table %q", table))
	}
	id, err := documentID(schema, row)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "put row", err)
	}

	if _, err := r.client.Collection(collectionName(r.prefix, table)).Doc(id).Create(ctx, map[string]any(row)); err != nil {
		return fmt.Errorf("create %s document: %w", table, err)
	}
	return nil
}

func (r *TableRepository) Describe(ctx context.Context, table domain.Table) (domain.TableStatus, error) {
	name := collectionName(r.prefix, table)
	result, err := r.client.Collection(name).NewAggregationQuery().WithCount(countAlias).Get(ctx)
	if err != nil {
		return domain.TableStatus{}, fmt.Errorf("count %s: %w", name, err)
	}
	count, err := countFromAggregation(result)
	if err != nil {
		return domain.TableStatus{}, fmt.Errorf("count %s: %w", name, err)
	}
	// Firestore does not report collection storage size.
	return domain.TableStatus{Table: table, Name: name, Status: "ACTIVE", ItemCount: count}, nil
}

func (r *TableRepository) ListRecent(ctx context.Context, table domain.Table, limit int) ([]domain.Row, error) {
	if _, ok := domain.SchemaFor(table); !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "list rows", fmt.Errorf("unknown table %q", table))
	}

	iter := r.client.Collection(collectionName(r.prefix, table)).
		OrderBy(domain.ColumnTimestamp, firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	out := make([]domain.Row, 0, limit)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s documents: %w", table, err)
		}
		out = append(out, domain.Row(doc.Data()))
	}
	return out, nil
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return "intake"
	}
	return prefix
}

func collectionName(prefix string, table domain.Table) string {
	return prefix + "_" + string(table)
}

func documentID(schema domain.TableSchema, row domain.Row) (string, error) {
	switch v := row[schema.IDColumn].(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("empty %s", schema.IDColumn)
		}
		return v, nil
	case int64:
		return fmt.Sprintf("%d", v), nil
	case int:
		return fmt.Sprintf("%d", v), nil
	default:
		return "", fmt.Errorf("missing %s", schema.IDColumn)
	}
}

func countFromAggregation(result firestore.AggregationResult) (int64, error) {
	raw, ok := result[countAlias]
	if !ok {
		return 0, fmt.Errorf("aggregation result has no %q alias", countAlias)
	}
	switch v := raw.(type) {
	case *firestorepb.Value:
		return v.GetIntegerValue(), nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("unexpected count type %T", raw)
	}
}
