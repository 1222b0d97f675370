package docstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/cache"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/lockmgr"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sourcegraph/conc/pool"
)

var Logger = logger.GetLogger("docstore")

const (
	defaultFanout = 16
	rebuildLock   = "index:rebuild"
)

// Options are the injectable dependencies and tunables of the store.
type Options struct {
	// Cache is used for documents and listings. Nil creates a default cache.
	Cache cache.ICache
	// Locks serializes operations per owner. Nil creates a private manager.
	Locks lockmgr.ILockManager
	// ListAllTTL is the lifetime of cross-owner listings.
	ListAllTTL time.Duration
	// Fanout bounds the parallel backend reads of one listing.
	Fanout int
}

// DefaultOptions returns options with a fresh default cache.
func DefaultOptions() Options {
	return Options{
		ListAllTTL: cache.ListAllTTL,
		Fanout:     defaultFanout,
	}
}

type docStore struct {
	backend    backend.IBackend
	cache      cache.ICache
	locks      lockmgr.ILockManager
	listAllTTL time.Duration
	fanout     int

	// indexMu serializes every read-modify-write of the index document.
	indexMu sync.Mutex
	index   *Index // loaded on first use

	// owners whose directories were created by this process
	ensured *xsync.MapOf[string, struct{}]

	// generations of document cache keys, bumped on every invalidation, and
	// an epoch bumped when many keys are dropped at once. A read only caches
	// what it loaded if neither moved in between.
	gens    *xsync.MapOf[string, uint64]
	epochMu sync.RWMutex
	epoch   uint64
}

// NewDocumentStore returns a store on b. The store takes ownership of b and
// of the cache: Close closes both.
func NewDocumentStore(b backend.IBackend, opts Options) store.IStore {
	if opts.Cache == nil {
		copts := cache.DefaultOptions()
		copts.Name = "docstore"
		opts.Cache = cache.New(copts)
	}
	if opts.Locks == nil {
		opts.Locks = lockmgr.NewLockManager()
	}
	if opts.ListAllTTL <= 0 {
		opts.ListAllTTL = cache.ListAllTTL
	}
	if opts.Fanout <= 0 {
		opts.Fanout = defaultFanout
	}
	return &docStore{
		backend:    b,
		cache:      opts.Cache,
		locks:      opts.Locks,
		listAllTTL: opts.ListAllTTL,
		fanout:     opts.Fanout,
		ensured:    xsync.NewMapOf[string, struct{}](),
		gens:       xsync.NewMapOf[string, uint64](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *docStore) EnsureOwnerPartition(ctx context.Context, owner string) error {
	if err := validateOwner(owner); err != nil {
		return err
	}
	release, err := s.lockOwner(ctx, owner)
	if err != nil {
		return err
	}
	defer release()

	if err := s.ensureDirs(ctx, owner, true); err != nil {
		return err
	}
	return s.mutateIndex(ctx, func(ix *Index) bool {
		_, created := ix.partition(owner, true)
		return created
	})
}

func (s *docStore) WriteEntity(ctx context.Context, owner string, doc model.Document) error {
	if err := validateDocument(owner, doc); err != nil {
		return err
	}
	release, err := s.lockOwner(ctx, owner)
	if err != nil {
		return err
	}
	defer release()

	return s.writeLocked(ctx, owner, doc)
}

func (s *docStore) CreateEntity(ctx context.Context, owner string, doc model.Document) error {
	if err := validateDocument(owner, doc); err != nil {
		return err
	}
	release, err := s.lockOwner(ctx, owner)
	if err != nil {
		return err
	}
	defer release()

	path := docPath(owner, doc.Kind(), doc.DocID())
	_, exists, err := s.backend.Read(ctx, path)
	if err != nil {
		return store.WrapError(store.RetCBackendUnavailable, err, "read %s", path)
	}
	if exists {
		if doc.Kind() == model.KindProfile {
			return store.NewError(store.RetCConflict, "owner %s already has a profile", owner)
		}
		return store.NewError(store.RetCConflict, "%s %s of owner %s already exists", doc.Kind(), doc.DocID(), owner)
	}
	return s.writeLocked(ctx, owner, doc)
}

func (s *docStore) ReadEntity(ctx context.Context, owner string, kind model.Kind, id string) (model.Document, bool, error) {
	if err := validateAddress(owner, kind, id); err != nil {
		return nil, false, err
	}
	if kind == model.KindProfile {
		id = ""
	}

	key := docKey(owner, kind, id)
	if cached, ok := s.cache.Get(key); ok {
		if doc, ok := cached.(model.Document); ok {
			return doc.Clone(), true, nil
		}
	}

	gen, epoch := s.generation(key)
	doc, loaded, err := s.readBackend(ctx, docPath(owner, kind, id), kind)
	if err != nil || !loaded {
		return nil, false, err
	}
	s.cacheIfCurrent(key, doc, gen, epoch)
	return doc.Clone(), true, nil
}

func (s *docStore) UpdateEntity(ctx context.Context, owner string, kind model.Kind, id string, fn func(doc model.Document) error) (model.Document, error) {
	if err := validateAddress(owner, kind, id); err != nil {
		return nil, err
	}
	if kind == model.KindProfile {
		id = ""
	}
	release, err := s.lockOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	defer release()

	// the cache may lag behind other processes, read the stored version
	doc, loaded, err := s.readBackend(ctx, docPath(owner, kind, id), kind)
	if err != nil {
		return nil, err
	}
	if !loaded {
		if kind == model.KindProfile {
			return nil, store.NewError(store.RetCNotFound, "owner %s has no profile", owner)
		}
		return nil, store.NewError(store.RetCNotFound, "%s %s of owner %s not found", kind, id, owner)
	}
	prevID := doc.DocID()
	if err := fn(doc); err != nil {
		return nil, err
	}
	if doc.Kind() != kind || doc.DocID() != prevID {
		return nil, store.NewError(store.RetCValidationFailed, "update must not change the address of %s %s", kind, prevID)
	}
	if err := validateDocument(owner, doc); err != nil {
		return nil, err
	}
	if err := s.writeLocked(ctx, owner, doc); err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

func (s *docStore) ListEntitiesForOwner(ctx context.Context, owner string, kind model.Kind) (map[string]model.Document, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, store.NewError(store.RetCValidationFailed, "unknown kind %q", kind)
	}
	docs, err := s.ownerListing(ctx, owner, kind)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Document, len(docs))
	for id, doc := range docs {
		out[id] = doc.Clone()
	}
	return out, nil
}

func (s *docStore) ListAllEntities(ctx context.Context, kind model.Kind) ([]model.Document, error) {
	if !kind.Valid() {
		return nil, store.NewError(store.RetCValidationFailed, "unknown kind %q", kind)
	}
	docs, err := cache.GetOrCompute(s.cache, allKey(kind), s.listAllTTL, func() ([]model.Document, error) {
		return s.listAll(ctx, kind)
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Document, len(docs))
	for i, doc := range docs {
		out[i] = doc.Clone()
	}
	return out, nil
}

func (s *docStore) FindOwner(ctx context.Context, kind model.Kind, id string) (string, error) {
	if !kind.Valid() {
		return "", store.NewError(store.RetCValidationFailed, "unknown kind %q", kind)
	}
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	ix, err := s.currentIndexLocked(ctx)
	if err != nil {
		return "", err
	}
	if owner, ok := ix.find(kind, id); ok {
		return owner, nil
	}
	// another process may have written it, look again in a fresh copy
	if ix, err = s.loadIndexLocked(ctx); err != nil {
		return "", err
	}
	s.index = ix
	if owner, ok := ix.find(kind, id); ok {
		return owner, nil
	}
	return "", store.NewError(store.RetCNotFound, "%s %s not found", kind, id)
}

func (s *docStore) ListOwners(ctx context.Context) ([]string, error) {
	ix, err := s.refreshIndex(ctx)
	if err != nil {
		return nil, err
	}
	return ix.owners(), nil
}

func (s *docStore) DeleteEntity(ctx context.Context, owner string, kind model.Kind, id string) error {
	if err := validateAddress(owner, kind, id); err != nil {
		return err
	}
	if kind == model.KindProfile {
		id = ""
	}
	release, err := s.lockOwner(ctx, owner)
	if err != nil {
		return err
	}
	defer release()
	defer s.invalidate(owner, kind, id)

	path := docPath(owner, kind, id)
	if err := s.backend.Delete(ctx, path); err != nil {
		return store.WrapError(store.RetCBackendUnavailable, err, "delete %s", path)
	}
	return s.mutateIndex(ctx, func(ix *Index) bool {
		p, _ := ix.partition(owner, false)
		return p != nil && p.remove(kind, id)
	})
}

func (s *docStore) DeleteOwnerPartition(ctx context.Context, owner string) error {
	if err := validateOwner(owner); err != nil {
		return err
	}
	release, err := s.lockOwner(ctx, owner)
	if err != nil {
		return err
	}
	defer release()
	defer s.invalidateOwner(owner)

	s.ensured.Delete(owner)
	if err := s.backend.Delete(ctx, ownerDir(owner)); err != nil {
		return store.WrapError(store.RetCBackendUnavailable, err, "delete partition %s", owner)
	}
	return s.mutateIndex(ctx, func(ix *Index) bool {
		if _, ok := ix.Owners[owner]; !ok {
			return false
		}
		delete(ix.Owners, owner)
		return true
	})
}

func (s *docStore) ClearAll(ctx context.Context) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	defer s.clearCache()

	s.ensured.Clear()
	if err := s.backend.Delete(ctx, ownersDir); err != nil {
		return store.WrapError(store.RetCBackendUnavailable, err, "delete %s", ownersDir)
	}
	if err := s.persistIndexLocked(ctx, newIndex()); err != nil {
		return err
	}
	Logger.Warningf("cleared all owner partitions")
	return nil
}

func (s *docStore) RebuildIndex(ctx context.Context) error {
	done, ok := s.locks.TryAcquire(rebuildLock)
	if !ok {
		return store.NewError(store.RetCConflict, "an index rebuild is already running")
	}
	defer done()

	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	defer s.clearCache()

	owners, err := s.backend.List(ctx, ownersDir)
	if err != nil {
		return store.WrapError(store.RetCBackendUnavailable, err, "list %s", ownersDir)
	}

	ix := newIndex()
	var mu sync.Mutex
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(s.fanout)
	for _, owner := range owners {
		if validateOwner(owner) != nil {
			Logger.Warningf("skipping invalid owner directory %q", owner)
			continue
		}
		p.Go(func(ctx context.Context) error {
			partition := newPartition()
			for _, kind := range append([]model.Kind{model.KindProfile}, model.RecordKinds...) {
				docs, err := s.listBackend(ctx, owner, kind)
				if err != nil {
					return err
				}
				for _, doc := range docs {
					partition.put(doc)
				}
			}
			mu.Lock()
			ix.Owners[owner] = partition
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}
	if err := s.persistIndexLocked(ctx, ix); err != nil {
		return err
	}
	Logger.Infof("rebuilt index with %d owners", len(ix.Owners))
	return nil
}

func (s *docStore) Close() error {
	s.cache.Close()
	return s.backend.Close()
}

// --------------------------------------------------------------------------
// Write path
// --------------------------------------------------------------------------

// writeLocked runs backend write, index mutation, index persist and cache
// invalidation in this order. The caller holds the owner lock.
func (s *docStore) writeLocked(ctx context.Context, owner string, doc model.Document) error {
	kind, id := doc.Kind(), doc.DocID()
	if kind == model.KindProfile {
		id = ""
	}
	defer s.invalidate(owner, kind, id)

	if err := s.ensureDirs(ctx, owner, false); err != nil {
		return err
	}
	data, err := model.Encode(doc)
	if err != nil {
		return store.WrapError(store.RetCValidationFailed, err, "encode %s", kind)
	}
	path := docPath(owner, kind, id)
	if err := s.backend.Write(ctx, path, data); err != nil {
		return store.WrapError(store.RetCBackendUnavailable, err, "write %s", path)
	}
	return s.mutateIndex(ctx, func(ix *Index) bool {
		p, _ := ix.partition(owner, true)
		p.put(doc)
		return true
	})
}

// ensureDirs creates the owner's kind directories unless this process has
// already done so. force skips that shortcut.
func (s *docStore) ensureDirs(ctx context.Context, owner string, force bool) error {
	if _, ok := s.ensured.Load(owner); ok && !force {
		return nil
	}
	for _, kind := range model.RecordKinds {
		dir := kindDir(owner, kind)
		if err := s.backend.Mkdir(ctx, dir); err != nil {
			return store.WrapError(store.RetCBackendUnavailable, err, "mkdir %s", dir)
		}
	}
	s.ensured.Store(owner, struct{}{})
	return nil
}

func (s *docStore) lockOwner(ctx context.Context, owner string) (func(), error) {
	release, err := s.locks.Acquire(ctx, "owner:"+owner)
	if err != nil {
		return nil, store.WrapError(store.RetCInternalError, err, "lock owner %s", owner)
	}
	return release, nil
}

func (s *docStore) invalidate(owner string, kind model.Kind, id string) {
	key := docKey(owner, kind, id)
	s.gens.Compute(key, func(gen uint64, _ bool) (uint64, bool) {
		return gen + 1, false
	})
	s.cache.Invalidate(key)
	s.cache.Invalidate(listKey(owner, kind))
	s.cache.Invalidate(allKey(kind))
}

func (s *docStore) invalidateOwner(owner string) {
	s.epochMu.Lock()
	s.epoch++
	for _, prefix := range ownerPrefixes(owner) {
		s.cache.InvalidatePrefix(prefix)
	}
	s.epochMu.Unlock()
	s.cache.Invalidate(allKey(model.KindProfile))
	for _, kind := range model.RecordKinds {
		s.cache.Invalidate(allKey(kind))
	}
}

func (s *docStore) clearCache() {
	s.epochMu.Lock()
	s.epoch++
	s.cache.Clear()
	s.epochMu.Unlock()
}

// generation returns the current generation of key and the epoch.
func (s *docStore) generation(key string) (gen, epoch uint64) {
	s.epochMu.RLock()
	epoch = s.epoch
	s.epochMu.RUnlock()
	gen, _ = s.gens.Load(key)
	return gen, epoch
}

// cacheIfCurrent stores doc under key unless key was invalidated since gen
// and epoch were taken. Check and store run inside the key's Compute and
// under the epoch read lock, so no invalidation can slip in between.
func (s *docStore) cacheIfCurrent(key string, doc model.Document, gen, epoch uint64) {
	s.epochMu.RLock()
	defer s.epochMu.RUnlock()
	s.gens.Compute(key, func(cur uint64, loaded bool) (uint64, bool) {
		if cur == gen && s.epoch == epoch {
			s.cache.Set(key, doc, 0)
		}
		return cur, !loaded
	})
}

// --------------------------------------------------------------------------
// Index access
// --------------------------------------------------------------------------

// mutateIndex reads the index fresh from the backend, applies fn and
// persists the result if fn reports a change.
func (s *docStore) mutateIndex(ctx context.Context, fn func(ix *Index) (changed bool)) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	ix, err := s.loadIndexLocked(ctx)
	if err != nil {
		return err
	}
	if !fn(ix) {
		s.index = ix
		return nil
	}
	return s.persistIndexLocked(ctx, ix)
}

func (s *docStore) persistIndexLocked(ctx context.Context, ix *Index) error {
	data, err := ix.encode()
	if err != nil {
		return store.WrapError(store.RetCInternalError, err, "encode index")
	}
	if err := s.backend.Write(ctx, indexPath, data); err != nil {
		Logger.Errorf("failed to persist index: %v", err)
		return store.WrapError(store.RetCBackendUnavailable, err, "persist index")
	}
	s.index = ix
	return nil
}

func (s *docStore) loadIndexLocked(ctx context.Context) (*Index, error) {
	data, loaded, err := s.backend.Read(ctx, indexPath)
	if err != nil {
		return nil, store.WrapError(store.RetCBackendUnavailable, err, "read index")
	}
	if !loaded {
		return newIndex(), nil
	}
	ix, err := decodeIndex(data)
	if err != nil {
		return nil, store.WrapError(store.RetCInternalError, err, "index is corrupt, run a rebuild")
	}
	return ix, nil
}

func (s *docStore) currentIndexLocked(ctx context.Context) (*Index, error) {
	if s.index != nil {
		return s.index, nil
	}
	ix, err := s.loadIndexLocked(ctx)
	if err != nil {
		return nil, err
	}
	s.index = ix
	return ix, nil
}

// refreshIndex replaces the held index with a fresh copy and returns it.
func (s *docStore) refreshIndex(ctx context.Context) (*Index, error) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	ix, err := s.loadIndexLocked(ctx)
	if err != nil {
		return nil, err
	}
	s.index = ix
	return ix, nil
}

// --------------------------------------------------------------------------
// Read path
// --------------------------------------------------------------------------

func (s *docStore) readBackend(ctx context.Context, path string, kind model.Kind) (model.Document, bool, error) {
	data, loaded, err := s.backend.Read(ctx, path)
	if err != nil {
		return nil, false, store.WrapError(store.RetCBackendUnavailable, err, "read %s", path)
	}
	if !loaded {
		return nil, false, nil
	}
	doc, err := model.Decode(kind, data)
	if err != nil {
		return nil, false, store.WrapError(store.RetCInternalError, err, "decode %s", path)
	}
	return doc, true, nil
}

// ownerListing returns the cached listing of the owner's documents of kind.
// The returned map is shared with the cache and must not be modified.
func (s *docStore) ownerListing(ctx context.Context, owner string, kind model.Kind) (map[string]model.Document, error) {
	return cache.GetOrCompute(s.cache, listKey(owner, kind), 0, func() (map[string]model.Document, error) {
		return s.listBackend(ctx, owner, kind)
	})
}

// listBackend reads the owner's documents of kind directly from the backend.
// Unreadable documents are logged and skipped.
func (s *docStore) listBackend(ctx context.Context, owner string, kind model.Kind) (map[string]model.Document, error) {
	if kind == model.KindProfile {
		doc, loaded, err := s.readBackend(ctx, docPath(owner, kind, ""), kind)
		if err != nil && store.CodeOf(err) != store.RetCInternalError {
			return nil, err
		}
		if err != nil {
			Logger.Warningf("skipping unreadable profile of %s: %v", owner, err)
		}
		if !loaded || err != nil {
			return map[string]model.Document{}, nil
		}
		return map[string]model.Document{doc.DocID(): doc}, nil
	}

	dir := kindDir(owner, kind)
	names, err := s.backend.List(ctx, dir)
	if err != nil {
		return nil, store.WrapError(store.RetCBackendUnavailable, err, "list %s", dir)
	}

	type item struct {
		id  string
		doc model.Document
	}
	p := pool.NewWithResults[item]().WithMaxGoroutines(s.fanout)
	for _, name := range names {
		p.Go(func() item {
			doc, loaded, err := s.readBackend(ctx, backend.Join(dir, name), kind)
			if err != nil {
				Logger.Warningf("skipping unreadable document %s/%s: %v", dir, name, err)
				return item{}
			}
			if !loaded {
				return item{}
			}
			return item{id: name, doc: doc}
		})
	}

	docs := make(map[string]model.Document, len(names))
	for _, it := range p.Wait() {
		if it.doc != nil {
			docs[it.id] = it.doc
		}
	}
	return docs, nil
}

// listAll fans out over every indexed owner and flattens their listings.
func (s *docStore) listAll(ctx context.Context, kind model.Kind) ([]model.Document, error) {
	ix, err := s.refreshIndex(ctx)
	if err != nil {
		return nil, err
	}

	p := pool.NewWithResults[[]model.Document]().WithContext(ctx).WithMaxGoroutines(s.fanout)
	for _, owner := range ix.owners() {
		p.Go(func(ctx context.Context) ([]model.Document, error) {
			docs, err := s.ownerListing(ctx, owner, kind)
			if err != nil {
				return nil, err
			}
			out := make([]model.Document, 0, len(docs))
			for _, doc := range docs {
				c := doc.Clone()
				c.SetOwner(owner)
				out = append(out, c)
			}
			return out, nil
		})
	}
	perOwner, err := p.Wait()
	if err != nil {
		return nil, err
	}

	var all []model.Document
	for _, docs := range perOwner {
		all = append(all, docs...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Owner() != all[j].Owner() {
			return all[i].Owner() < all[j].Owner()
		}
		return all[i].DocID() < all[j].DocID()
	})
	return all, nil
}

// --------------------------------------------------------------------------
// Validation
// --------------------------------------------------------------------------

func validateOwner(owner string) error {
	if err := model.ValidateOwnerKey(owner); err != nil {
		return store.WrapError(store.RetCValidationFailed, err, "invalid owner")
	}
	if owner != model.NormalizeOwnerKey(owner) {
		return store.NewError(store.RetCValidationFailed, "owner key %q is not normalized", owner)
	}
	return nil
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\:`) {
		return store.NewError(store.RetCValidationFailed, "invalid document id %q", id)
	}
	return nil
}

func validateAddress(owner string, kind model.Kind, id string) error {
	if err := validateOwner(owner); err != nil {
		return err
	}
	if !kind.Valid() {
		return store.NewError(store.RetCValidationFailed, "unknown kind %q", kind)
	}
	if kind.IsRecord() {
		return validateID(id)
	}
	return nil
}

func validateDocument(owner string, doc model.Document) error {
	if doc == nil {
		return store.NewError(store.RetCValidationFailed, "document is nil")
	}
	if err := validateOwner(owner); err != nil {
		return err
	}
	if doc.Kind() == model.KindProfile {
		if doc.Owner() != owner {
			return store.NewError(store.RetCValidationFailed, "profile callsign %q does not match owner %s", doc.Owner(), owner)
		}
		return nil
	}
	return validateID(doc.DocID())
}
