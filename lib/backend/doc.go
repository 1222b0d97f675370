// Package backend defines the persistent key-value contract the document
// store is built on, together with helpers shared by its implementations.
//
// A backend stores opaque byte values under slash-separated paths and
// exposes directory semantics: values live at leaf paths, directories are
// created implicitly by writes or explicitly by Mkdir, Delete is recursive
// and idempotent, and List returns direct children only.
//
// Implementations:
//
//   - fsbackend: files below a local data directory, written atomically.
//   - membackend: an in-process map, used in tests and for ephemeral stores.
//   - httpbackend: a client for the HTTP file proxy served by rpc/fsproxy.
//   - s3backend: objects in an S3 compatible bucket (MinIO).
//   - sqlbackend: rows in a SQLite table.
//
// Every implementation is expected to pass backend/testing.RunBackendTests.
//
// Instrument wraps any backend with per-operation timers.
package backend
