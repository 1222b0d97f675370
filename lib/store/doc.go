// Package store defines the document store: a per-owner document database
// emulated on top of a hierarchical key-value backend.
//
// Key Components:
//
//   - IStore Interface: operations on owner partitions and the documents in
//     them (see model.Document for the closed set of document kinds).
//
//   - Error System: every failure is an *Error carrying a RetCode. The codes
//     distinguish missing documents (RetCNotFound), uniqueness violations
//     (RetCConflict), failing backends (RetCBackendUnavailable) and rejected
//     input (RetCValidationFailed). Sentinels such as ErrNotFound work with
//     errors.Is; IsNotFound and friends are shorthands.
//
// Implementations:
//
//	- Document Store (docstore): keeps one document per backend path, a
//	  denormalized index of everything that exists and a TTL cache in front
//	  of both. Available in the "lib/store/docstore" package.
package store
