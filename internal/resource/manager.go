// Package resource manages upload-backed resources whose state spans
// two independent stores: a document record and a file on disk. The
// two are not covered by one transaction, so multi-step operations
// carry explicit compensating actions to keep failures non-corrupting.
package resource

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ms-storefront/internal/fault"
	"ms-storefront/internal/store"
)

// Created reports a successful upload.
type Created struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager runs the lifecycle for one resource category (e.g. slides).
// Collection names the record collection; category namespaces file
// paths.
type Manager struct {
	records    store.RecordStore
	files      store.FileStore
	log        *zap.Logger
	collection string
	category   string
}

func NewManager(records store.RecordStore, files store.FileStore, log *zap.Logger, collection, category string) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		records:    records,
		files:      files,
		log:        log,
		collection: collection,
		category:   category,
	}
}

// Upload creates the record for a file the transport has already
// written to the file store. If record creation fails, the file is
// removed again so the attempt leaves nothing behind; a failure during
// that compensation is logged and the original cause is what the
// caller sees.
func (m *Manager) Upload(ctx context.Context, filename string, fields map[string]any) (Created, error) {
	if filename == "" {
		return Created{}, fault.New(fault.KindMissingFile, "a file is required")
	}

	recordFields := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		recordFields[k] = v
	}
	recordFields["filename"] = filename

	rec, err := m.records.Create(ctx, m.collection, recordFields)
	if err != nil {
		path := store.ContentPath(m.category, filename)
		if delErr := m.files.Delete(path); delErr != nil {
			m.log.Error("compensating file delete failed",
				zap.String("path", path),
				zap.Error(delErr))
		} else {
			m.log.Info("compensating file delete after record-create failure",
				zap.String("path", path))
		}
		if fault.IsKind(err, fault.KindCancelled) || ctx.Err() != nil {
			return Created{}, fault.Wrap(fault.KindCancelled, "upload cancelled", err)
		}
		return Created{}, fault.Wrap(fault.KindSaveFailed, "could not save the uploaded resource", err)
	}

	return Created{ID: rec.ID, Filename: filename, CreatedAt: rec.CreatedAt}, nil
}

// Delete removes the record first and the file second. A crash between
// the two leaves an orphaned file, which only wastes storage; the
// reverse order could leave a record pointing at a missing file. That
// ordering is an invariant, not a preference.
func (m *Manager) Delete(ctx context.Context, id string) error {
	rec, found, err := m.records.FindByID(ctx, m.collection, id)
	if err != nil {
		if ctx.Err() != nil {
			return fault.Wrap(fault.KindCancelled, "delete cancelled", err)
		}
		return fault.Wrap(fault.KindDeleteFailed, "could not look up the resource", err)
	}
	if !found {
		return fault.New(fault.KindNotFound, "resource not found")
	}

	_, deleted, err := m.records.DeleteByID(ctx, m.collection, id)
	if err != nil {
		if ctx.Err() != nil {
			return fault.Wrap(fault.KindCancelled, "delete cancelled", err)
		}
		return fault.Wrap(fault.KindDeleteFailed, "could not delete the resource record", err)
	}
	if !deleted {
		// Removed between the lookup and the delete; gone is gone.
		return fault.New(fault.KindNotFound, "resource not found")
	}

	filename, _ := rec.Fields["filename"].(string)
	if filename == "" {
		return nil
	}
	path := store.ContentPath(m.category, filename)
	if err := m.files.Delete(path); err != nil {
		// Record is gone, which is the contract; the file is now an
		// orphan and only operators need to know.
		m.log.Warn("orphaned file left behind after record delete",
			zap.String("resource_id", id),
			zap.String("path", path),
			zap.Error(err))
	}
	return nil
}

// ListAll returns every record in the manager's collection.
func (m *Manager) ListAll(ctx context.Context) ([]store.Record, error) {
	records, err := m.records.Find(ctx, m.collection, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fault.Wrap(fault.KindCancelled, "list cancelled", err)
		}
		return nil, fault.Wrap(fault.KindFetchFailed, "could not list resources", err)
	}
	return records, nil
}

// AggregateCounts counts several collections concurrently. The result
// is all-or-nothing: one failed sub-query fails the whole call and no
// partial aggregate is ever returned.
func (m *Manager) AggregateCounts(ctx context.Context, collections ...string) (map[string]int, error) {
	counts := make(map[string]int, len(collections))
	g, gctx := errgroup.WithContext(ctx)
	results := make([]int, len(collections))

	for i, collection := range collections {
		i, collection := i, collection
		g.Go(func() error {
			n, err := m.records.Count(gctx, collection, nil)
			if err != nil {
				return err
			}
			results[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, fault.Wrap(fault.KindCancelled, "count cancelled", err)
		}
		return nil, fault.Wrap(fault.KindFetchFailed, "could not aggregate counts", err)
	}
	for i, collection := range collections {
		counts[collection] = results[i]
	}
	return counts, nil
}
