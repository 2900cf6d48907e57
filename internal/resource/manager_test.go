package resource

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-storefront/internal/fault"
	"ms-storefront/internal/store"
)

// fakeRecords is an in-memory RecordStore with injectable failures.
type fakeRecords struct {
	mu         sync.Mutex
	docs       map[string]store.Record
	createErr  error
	findErr    error
	deleteErr  error
	deleteMiss bool
	countErr   map[string]error
	counts     map[string]int
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		docs:     map[string]store.Record{},
		countErr: map[string]error{},
		counts:   map[string]int{},
	}
}

func (f *fakeRecords) Create(_ context.Context, collection string, fields map[string]any) (store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return store.Record{}, f.createErr
	}
	rec := store.Record{
		ID:         uuid.NewString(),
		Collection: collection,
		Fields:     fields,
		CreatedAt:  time.Now().UTC(),
	}
	f.docs[rec.ID] = rec
	return rec, nil
}

func (f *fakeRecords) Find(_ context.Context, collection string, _ map[string]any) ([]store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []store.Record
	for _, rec := range f.docs {
		if rec.Collection == collection {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecords) FindByID(_ context.Context, collection, id string) (store.Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return store.Record{}, false, f.findErr
	}
	rec, ok := f.docs[id]
	if !ok || rec.Collection != collection {
		return store.Record{}, false, nil
	}
	return rec, true, nil
}

func (f *fakeRecords) DeleteByID(_ context.Context, collection, id string) (store.Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return store.Record{}, false, f.deleteErr
	}
	if f.deleteMiss {
		return store.Record{}, false, nil
	}
	rec, ok := f.docs[id]
	if !ok || rec.Collection != collection {
		return store.Record{}, false, nil
	}
	delete(f.docs, id)
	return rec, true, nil
}

func (f *fakeRecords) Count(_ context.Context, collection string, _ map[string]any) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.countErr[collection]; err != nil {
		return 0, err
	}
	return f.counts[collection], nil
}

// fakeFiles tracks file presence and delete calls.
type fakeFiles struct {
	mu        sync.Mutex
	present   map[string]bool
	deleteErr error
	deletes   []string
}

func newFakeFiles(paths ...string) *fakeFiles {
	present := map[string]bool{}
	for _, p := range paths {
		present[p] = true
	}
	return &fakeFiles{present: present}
}

func (f *fakeFiles) Exists(path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.present[path], nil
}

func (f *fakeFiles) Write(path string, _ io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.present[path] = true
	return nil
}

func (f *fakeFiles) Delete(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, path)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.present, path)
	return nil
}

func newManager(records store.RecordStore, files store.FileStore) *Manager {
	return NewManager(records, files, nil, "slides", "slides")
}

func TestUploadRequiresFile(t *testing.T) {
	m := newManager(newFakeRecords(), newFakeFiles())
	_, err := m.Upload(context.Background(), "", map[string]any{"title": "sale"})
	assert.Equal(t, fault.KindMissingFile, fault.KindOf(err))
}

func TestUploadSuccess(t *testing.T) {
	records := newFakeRecords()
	files := newFakeFiles("slides/banner.png")
	m := newManager(records, files)

	created, err := m.Upload(context.Background(), "banner.png", map[string]any{"title": "sale"})

	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "banner.png", created.Filename)
	assert.False(t, created.CreatedAt.IsZero())

	listed, err := m.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "banner.png", listed[0].Fields["filename"])
}

func TestUploadCompensatesFileOnRecordCreateFailure(t *testing.T) {
	records := newFakeRecords()
	records.createErr = errors.New("insert failed")
	files := newFakeFiles("slides/banner.png")
	m := newManager(records, files)

	_, err := m.Upload(context.Background(), "banner.png", nil)

	assert.Equal(t, fault.KindSaveFailed, fault.KindOf(err))
	exists, _ := files.Exists("slides/banner.png")
	assert.False(t, exists, "compensating delete must remove the file")

	records.createErr = nil
	listed, lerr := m.ListAll(context.Background())
	require.NoError(t, lerr)
	assert.Empty(t, listed, "failed upload must not appear in listings")
}

func TestUploadCompensationFailureDoesNotMaskOriginalError(t *testing.T) {
	records := newFakeRecords()
	records.createErr = errors.New("insert failed")
	files := newFakeFiles("slides/banner.png")
	files.deleteErr = errors.New("disk read-only")
	m := newManager(records, files)

	_, err := m.Upload(context.Background(), "banner.png", nil)

	assert.Equal(t, fault.KindSaveFailed, fault.KindOf(err))
	assert.ErrorContains(t, err, "insert failed")
	assert.NotContains(t, err.Error(), "disk read-only")
}

func TestDeleteMissingRecordTouchesNoFiles(t *testing.T) {
	files := newFakeFiles()
	m := newManager(newFakeRecords(), files)

	err := m.Delete(context.Background(), "no-such-id")

	assert.Equal(t, fault.KindNotFound, fault.KindOf(err))
	assert.Empty(t, files.deletes, "no FileStore call for a missing record")
}

func TestDeleteRemovesRecordThenFile(t *testing.T) {
	records := newFakeRecords()
	files := newFakeFiles("slides/banner.png")
	m := newManager(records, files)

	created, err := m.Upload(context.Background(), "banner.png", nil)
	require.NoError(t, err)

	require.NoError(t, m.Delete(context.Background(), created.ID))

	_, found, err := records.FindByID(context.Background(), "slides", created.ID)
	require.NoError(t, err)
	assert.False(t, found)
	exists, _ := files.Exists("slides/banner.png")
	assert.False(t, exists)
}

func TestDeleteReportsSuccessWhenFileDeleteFails(t *testing.T) {
	records := newFakeRecords()
	files := newFakeFiles("slides/banner.png")
	m := newManager(records, files)

	created, err := m.Upload(context.Background(), "banner.png", nil)
	require.NoError(t, err)

	files.deleteErr = errors.New("disk read-only")
	assert.NoError(t, m.Delete(context.Background(), created.ID), "record removal is the primary contract")

	_, found, err := records.FindByID(context.Background(), "slides", created.ID)
	require.NoError(t, err)
	assert.False(t, found, "record must be gone even when the file lingers")
}

func TestDeleteAbortsWhenRecordDeleteFails(t *testing.T) {
	records := newFakeRecords()
	files := newFakeFiles("slides/banner.png")
	m := newManager(records, files)

	created, err := m.Upload(context.Background(), "banner.png", nil)
	require.NoError(t, err)

	records.deleteErr = errors.New("db down")
	err = m.Delete(context.Background(), created.ID)

	assert.Equal(t, fault.KindDeleteFailed, fault.KindOf(err))
	exists, _ := files.Exists("slides/banner.png")
	assert.True(t, exists, "file is left untouched when the record delete fails")
}

func TestDeleteRecordVanishingBetweenLookupAndDelete(t *testing.T) {
	records := newFakeRecords()
	files := newFakeFiles("slides/banner.png")
	m := newManager(records, files)

	created, err := m.Upload(context.Background(), "banner.png", nil)
	require.NoError(t, err)

	// Another worker removes the record after our lookup succeeds.
	records.deleteMiss = true
	err = m.Delete(context.Background(), created.ID)

	assert.Equal(t, fault.KindNotFound, fault.KindOf(err))
	assert.Empty(t, files.deletes, "the concurrent deleter owns the file cleanup")
}

func TestListAllFailure(t *testing.T) {
	records := newFakeRecords()
	records.findErr = errors.New("db down")
	m := newManager(records, newFakeFiles())

	_, err := m.ListAll(context.Background())
	assert.Equal(t, fault.KindFetchFailed, fault.KindOf(err))
}

func TestAggregateCounts(t *testing.T) {
	records := newFakeRecords()
	records.counts["slides"] = 3
	records.counts["products"] = 12
	records.counts["orders"] = 7
	m := newManager(records, newFakeFiles())

	counts, err := m.AggregateCounts(context.Background(), "slides", "products", "orders")

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"slides": 3, "products": 12, "orders": 7}, counts)
}

func TestAggregateCountsIsAllOrNothing(t *testing.T) {
	records := newFakeRecords()
	records.counts["slides"] = 3
	records.countErr["orders"] = errors.New("db down")
	m := newManager(records, newFakeFiles())

	counts, err := m.AggregateCounts(context.Background(), "slides", "orders")

	assert.Equal(t, fault.KindFetchFailed, fault.KindOf(err))
	assert.Nil(t, counts, "no partial aggregate may be returned")
}
