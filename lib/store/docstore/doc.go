// Package docstore implements store.IStore on a backend.IBackend.
//
// Every document is one backend value:
//
//	root/index                              the denormalized index
//	root/owners/{owner}/profile             the owner's profile
//	root/owners/{owner}/{kind}/{id}         records (applications, exams, ...)
//
// The index maps every owner to the last written content of each of its
// documents. It is the source of truth for which owners exist and for
// id lookups without a known owner (FindOwner). It is rewritten as a whole
// after every document mutation; the rewrite starts from a fresh read of
// the stored index and is serialized by a mutex, so concurrent writers in
// this process never drop each other's entries.
//
// Writes run in the order document, index, cache invalidation. A failed
// index write leaves the document in place without an index entry and is
// reported as RetCBackendUnavailable; RebuildIndex repairs such states by
// scanning the owner directories.
//
// Operations on the same owner are serialized by a lockmgr.ILockManager,
// which makes CreateEntity an atomic check-and-write.
//
// Reads go through a cache.ICache:
//
//	doc:{owner}:{kind}:{id}    single documents
//	list:{owner}:{kind}        per-owner listings
//	all:{kind}                 cross-owner listings (short TTL)
//
// Cached values are never handed out: callers always receive clones.
package docstore
