package docstore

import (
	"context"
	"errors"
	"path/filepath"
	"encoding/base64"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend/fsbackend"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend/membackend"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend/sqlbackend"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/lockmgr"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/store"
	storetesting "github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/store/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocStoreMem(t *testing.T) {
	storetesting.RunStoreTests(t, "DocStore(mem)", func(t *testing.T) store.IStore {
		return NewDocumentStore(membackend.NewMemBackend(), DefaultOptions())
	})
}

func TestDocStoreFS(t *testing.T) {
	storetesting.RunStoreTests(t, "DocStore(fs)", func(t *testing.T) store.IStore {
		b, err := fsbackend.NewFSBackend(t.TempDir())
		require.NoError(t, err)
		return NewDocumentStore(b, DefaultOptions())
	})
}

func TestDocStoreSQLite(t *testing.T) {
	storetesting.RunStoreTests(t, "DocStore(sqlite)", func(t *testing.T) store.IStore {
		b, err := sqlbackend.NewSQLBackend(filepath.Join(t.TempDir(), "store.db"))
		require.NoError(t, err)
		return NewDocumentStore(b, DefaultOptions())
	})
}

// --------------------------------------------------------------------------
// Fault injection
// --------------------------------------------------------------------------

var errInjected = errors.New("injected failure")

// faultyBackend fails writes to paths with the configured prefix.
type faultyBackend struct {
	backend.IBackend
	failWrites atomic.Value // string prefix, "" disables
	reads      atomic.Int64
}

func newFaultyBackend() *faultyBackend {
	fb := &faultyBackend{IBackend: membackend.NewMemBackend()}
	fb.failWrites.Store("")
	return fb
}

func (fb *faultyBackend) Write(ctx context.Context, path string, value []byte) error {
	if prefix := fb.failWrites.Load().(string); prefix != "" && strings.HasPrefix(path, prefix) {
		return errInjected
	}
	return fb.IBackend.Write(ctx, path, value)
}

func (fb *faultyBackend) Read(ctx context.Context, path string) ([]byte, bool, error) {
	fb.reads.Add(1)
	return fb.IBackend.Read(ctx, path)
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestIndexMirrorsBackend(t *testing.T) {
	ctx := context.Background()
	b := membackend.NewMemBackend()
	s := NewDocumentStore(b, DefaultOptions())
	defer s.Close()

	require.NoError(t, s.WriteEntity(ctx, "7700", storetesting.Profile("7700")))
	require.NoError(t, s.WriteEntity(ctx, "7700", storetesting.Exam("e1")))

	data, loaded, err := b.Read(ctx, "root/owners/7700/exams/e1")
	require.NoError(t, err)
	require.True(t, loaded)
	assert.NotContains(t, string(data), `"callsign"`)

	data, loaded, err = b.Read(ctx, indexPath)
	require.NoError(t, err)
	require.True(t, loaded)
	ix, err := decodeIndex(data)
	require.NoError(t, err)
	require.Contains(t, ix.Owners, "7700")
	assert.Equal(t, "7700", ix.Owners["7700"].Profile.Callsign)
	assert.Len(t, ix.Owners["7700"].Exams, 1)
	assert.Contains(t, ix.Owners["7700"].Exams, "e1")

	for _, kind := range model.RecordKinds {
		names, err := b.List(ctx, kindDir("7700", kind))
		require.NoError(t, err, kind)
		if kind == model.KindExam {
			assert.Equal(t, []string{"e1"}, names)
		}
	}
}

func TestIndexHoldsAttachmentMetadataOnly(t *testing.T) {
	ctx := context.Background()
	b := membackend.NewMemBackend()
	s := NewDocumentStore(b, DefaultOptions())
	defer s.Close()

	content := []byte("%PDF-1.7 certificate of the applicant")
	require.NoError(t, s.WriteEntity(ctx, "7700", storetesting.Profile("7700")))
	require.NoError(t, s.WriteEntity(ctx, "7700", &model.Attachment{
		ID: "f1", UserID: "u1", Name: "cert.pdf", Type: "application/pdf",
		Size: int64(len(content)), Content: content, UploadedAt: time.Now(),
	}))

	data, loaded, err := b.Read(ctx, indexPath)
	require.NoError(t, err)
	require.True(t, loaded)
	if strings.Contains(string(data), base64.StdEncoding.EncodeToString(content)) {
		t.Errorf("Expected the index to carry no attachment content")
	}
	ix, err := decodeIndex(data)
	require.NoError(t, err)
	meta, ok := ix.Owners["7700"].Attachments["f1"]
	require.True(t, ok)
	assert.Nil(t, meta.Content)
	assert.Equal(t, "cert.pdf", meta.Name)
	assert.Equal(t, int64(len(content)), meta.Size)

	doc, loaded, err := s.ReadEntity(ctx, "7700", model.KindAttachment, "f1")
	require.NoError(t, err)
	require.True(t, loaded)
	assert.Equal(t, content, doc.(*model.Attachment).Content)

	// a rebuilt index strips content as well
	require.NoError(t, s.RebuildIndex(ctx))
	data, _, err = b.Read(ctx, indexPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), base64.StdEncoding.EncodeToString(content))
}

func TestConcurrentRebuildIsRejected(t *testing.T) {
	ctx := context.Background()
	locks := lockmgr.NewLockManager()
	opts := DefaultOptions()
	opts.Locks = locks
	s := NewDocumentStore(membackend.NewMemBackend(), opts)
	defer s.Close()
	require.NoError(t, s.WriteEntity(ctx, "7700", storetesting.Profile("7700")))

	release, ok := locks.TryAcquire(rebuildLock)
	require.True(t, ok)
	err := s.RebuildIndex(ctx)
	if !store.IsConflict(err) {
		t.Errorf("Expected Conflict while another rebuild runs, got %v", err)
	}
	release()

	require.NoError(t, s.RebuildIndex(ctx))
	owners, err := s.ListOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"7700"}, owners)
}

// gatedBackend blocks the first read of path once armed, until release is closed.
type gatedBackend struct {
	backend.IBackend
	path    string
	armed   atomic.Bool
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (gb *gatedBackend) Read(ctx context.Context, path string) ([]byte, bool, error) {
	if path == gb.path && gb.armed.Load() {
		gb.once.Do(func() {
			close(gb.entered)
			<-gb.release
		})
	}
	return gb.IBackend.Read(ctx, path)
}

func TestReadRacingWriteDoesNotCacheStale(t *testing.T) {
	ctx := context.Background()
	gb := &gatedBackend{
		IBackend: membackend.NewMemBackend(),
		path:     docPath("7700", model.KindExam, "e1"),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	s := NewDocumentStore(gb, DefaultOptions())
	defer s.Close()

	require.NoError(t, s.WriteEntity(ctx, "7700", storetesting.Profile("7700")))
	require.NoError(t, s.WriteEntity(ctx, "7700", storetesting.Exam("e1")))
	gb.armed.Store(true)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, err := s.ReadEntity(ctx, "7700", model.KindExam, "e1")
		assert.NoError(t, err)
	}()

	<-gb.entered
	// the read above has missed the cache and holds the old version
	updated := storetesting.Exam("e1")
	updated.ExamRoom = "Room 9"
	require.NoError(t, s.WriteEntity(ctx, "7700", updated))
	close(gb.release)
	<-done

	doc, loaded, err := s.ReadEntity(ctx, "7700", model.KindExam, "e1")
	require.NoError(t, err)
	require.True(t, loaded)
	if doc.(*model.Exam).ExamRoom != "Room 9" {
		t.Errorf("Expected the racing read not to cache the old version, got %q", doc.(*model.Exam).ExamRoom)
	}
}

func TestIndexPersistFailureLeavesOrphan(t *testing.T) {
	ctx := context.Background()
	fb := newFaultyBackend()
	s := NewDocumentStore(fb, DefaultOptions())
	defer s.Close()

	require.NoError(t, s.WriteEntity(ctx, "7700", storetesting.Exam("e1")))

	fb.failWrites.Store(indexPath)
	err := s.WriteEntity(ctx, "7700", storetesting.Exam("e2"))
	assert.True(t, store.IsBackendUnavailable(err), "got %v", err)
	assert.ErrorIs(t, err, errInjected)

	// document exists, index does not know it
	_, loaded, err := s.ReadEntity(ctx, "7700", model.KindExam, "e2")
	require.NoError(t, err)
	assert.True(t, loaded)
	_, err = s.FindOwner(ctx, model.KindExam, "e2")
	assert.True(t, store.IsNotFound(err), "got %v", err)

	// a rebuild adopts the orphan
	fb.failWrites.Store("")
	require.NoError(t, s.RebuildIndex(ctx))
	owner, err := s.FindOwner(ctx, model.KindExam, "e2")
	require.NoError(t, err)
	assert.Equal(t, "7700", owner)
}

func TestDocumentWriteFailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	fb := newFaultyBackend()
	s := NewDocumentStore(fb, DefaultOptions())
	defer s.Close()

	first := storetesting.Exam("e1")
	first.ExamRoom = "Room 1"
	require.NoError(t, s.WriteEntity(ctx, "7700", first))

	fb.failWrites.Store("root/owners/")
	second := storetesting.Exam("e1")
	second.ExamRoom = "Room 2"
	err := s.WriteEntity(ctx, "7700", second)
	assert.True(t, store.IsBackendUnavailable(err), "got %v", err)

	doc, loaded, err := s.ReadEntity(ctx, "7700", model.KindExam, "e1")
	require.NoError(t, err)
	require.True(t, loaded)
	assert.Equal(t, "Room 1", doc.(*model.Exam).ExamRoom)
}

func TestReadsAreCached(t *testing.T) {
	ctx := context.Background()
	fb := newFaultyBackend()
	s := NewDocumentStore(fb, DefaultOptions())
	defer s.Close()

	require.NoError(t, s.WriteEntity(ctx, "7700", storetesting.Exam("e1")))

	_, _, err := s.ReadEntity(ctx, "7700", model.KindExam, "e1")
	require.NoError(t, err)
	before := fb.reads.Load()
	for i := 0; i < 5; i++ {
		_, _, err := s.ReadEntity(ctx, "7700", model.KindExam, "e1")
		require.NoError(t, err)
	}
	assert.Equal(t, before, fb.reads.Load(), "expected cached reads to skip the backend")

	// a write invalidates the entry
	updated := storetesting.Exam("e1")
	updated.ExamRoom = "Room 9"
	require.NoError(t, s.WriteEntity(ctx, "7700", updated))
	doc, _, err := s.ReadEntity(ctx, "7700", model.KindExam, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Room 9", doc.(*model.Exam).ExamRoom)
}

func TestCorruptIndex(t *testing.T) {
	ctx := context.Background()
	b := membackend.NewMemBackend()
	s := NewDocumentStore(b, DefaultOptions())
	defer s.Close()

	require.NoError(t, s.WriteEntity(ctx, "7700", storetesting.Exam("e1")))
	require.NoError(t, b.Write(ctx, indexPath, []byte("{not json")))

	_, err := s.ListOwners(ctx)
	assert.Equal(t, store.RetCInternalError, store.CodeOf(err))

	require.NoError(t, s.RebuildIndex(ctx))
	owners, err := s.ListOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"7700"}, owners)
}

func TestUnreadableDocumentsAreSkipped(t *testing.T) {
	ctx := context.Background()
	b := membackend.NewMemBackend()
	s := NewDocumentStore(b, DefaultOptions())
	defer s.Close()

	require.NoError(t, s.WriteEntity(ctx, "7700", storetesting.Exam("e1")))
	require.NoError(t, b.Write(ctx, "root/owners/7700/exams/broken", []byte("<xml/>")))

	docs, err := s.ListEntitiesForOwner(ctx, "7700", model.KindExam)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Contains(t, docs, "e1")
}

func TestStoresShareBackend(t *testing.T) {
	ctx := context.Background()
	b := membackend.NewMemBackend()
	a := NewDocumentStore(b, DefaultOptions())
	c := NewDocumentStore(b, DefaultOptions())

	require.NoError(t, a.WriteEntity(ctx, "7700", storetesting.Exam("e1")))
	require.NoError(t, c.WriteEntity(ctx, "7701", storetesting.Exam("e2")))

	// each mutation starts from the stored index, so neither entry is lost
	owners, err := a.ListOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"7700", "7701"}, owners)

	owner, err := a.FindOwner(ctx, model.KindExam, "e2")
	require.NoError(t, err)
	assert.Equal(t, "7701", owner)
}

func TestClearAllEmptiesBackend(t *testing.T) {
	ctx := context.Background()
	b := membackend.NewMemBackend()
	s := NewDocumentStore(b, DefaultOptions())
	defer s.Close()

	require.NoError(t, s.WriteEntity(ctx, "7700", storetesting.Profile("7700")))
	require.NoError(t, s.ClearAll(ctx))

	names, err := b.List(ctx, ownersDir)
	require.NoError(t, err)
	assert.Empty(t, names)

	data, loaded, err := b.Read(ctx, indexPath)
	require.NoError(t, err)
	require.True(t, loaded)
	assert.JSONEq(t, `{"owners":{}}`, string(data))
}
