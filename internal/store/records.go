// Package store provides the two external capabilities the core
// depends on: a key-indexed document store over named collections and
// a path-addressed file store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record is one document in a named collection.
type Record struct {
	ID         string
	Collection string
	Fields     map[string]any
	CreatedAt  time.Time
}

// RecordStore is the document-store capability. FindByID and
// DeleteByID report absence through their bool result, not an error.
type RecordStore interface {
	Create(ctx context.Context, collection string, fields map[string]any) (Record, error)
	Find(ctx context.Context, collection string, filter map[string]any) ([]Record, error)
	FindByID(ctx context.Context, collection, id string) (Record, bool, error)
	DeleteByID(ctx context.Context, collection, id string) (Record, bool, error)
	Count(ctx context.Context, collection string, filter map[string]any) (int, error)
}

type documentRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID         string    `bun:"id,pk"`
	Collection string    `bun:"collection,notnull"`
	Data       []byte    `bun:"data,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

// BunRecordStore implements RecordStore over a single generic
// documents table, with document fields held as JSON.
type BunRecordStore struct {
	db *bun.DB
}

func NewBunRecordStore(db *bun.DB) *BunRecordStore {
	return &BunRecordStore{db: db}
}

// Init creates the documents table if it does not exist.
func (s *BunRecordStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*documentRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

func (s *BunRecordStore) Create(ctx context.Context, collection string, fields map[string]any) (Record, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return Record{}, fmt.Errorf("encode document fields: %w", err)
	}
	row := documentRow{
		ID:         uuid.NewString(),
		Collection: collection,
		Data:       data,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return Record{}, fmt.Errorf("insert into %s: %w", collection, err)
	}
	return s.toRecord(row)
}

func (s *BunRecordStore) Find(ctx context.Context, collection string, filter map[string]any) ([]Record, error) {
	var rows []documentRow
	q := s.db.NewSelect().
		Model(&rows).
		Where("collection = ?", collection).
		Order("created_at ASC")
	q = applyFilter(q, filter)
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := s.toRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *BunRecordStore) FindByID(ctx context.Context, collection, id string) (Record, bool, error) {
	var row documentRow
	err := s.db.NewSelect().
		Model(&row).
		Where("collection = ?", collection).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("find %s/%s: %w", collection, id, err)
	}
	rec, err := s.toRecord(row)
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *BunRecordStore) DeleteByID(ctx context.Context, collection, id string) (Record, bool, error) {
	rec, found, err := s.FindByID(ctx, collection, id)
	if err != nil || !found {
		return Record{}, false, err
	}
	res, err := s.db.NewDelete().
		Model((*documentRow)(nil)).
		Where("collection = ?", collection).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return Record{}, false, fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (s *BunRecordStore) Count(ctx context.Context, collection string, filter map[string]any) (int, error) {
	q := s.db.NewSelect().
		Model((*documentRow)(nil)).
		Where("collection = ?", collection)
	q = applyFilter(q, filter)
	n, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

func applyFilter(q *bun.SelectQuery, filter map[string]any) *bun.SelectQuery {
	for key, value := range filter {
		q = q.Where("json_extract(data, ?) = ?", "$."+key, value)
	}
	return q
}

func (s *BunRecordStore) toRecord(row documentRow) (Record, error) {
	fields := map[string]any{}
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &fields); err != nil {
			return Record{}, fmt.Errorf("decode document %s: %w", row.ID, err)
		}
	}
	return Record{
		ID:         row.ID,
		Collection: row.Collection,
		Fields:     fields,
		CreatedAt:  row.CreatedAt,
	}, nil
}
