package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is a per-owner document database. Owner keys are passed already
// normalized (see model.NormalizeOwnerKey). All errors returned are *Error.
type IStore interface {
	// EnsureOwnerPartition creates the owner's directories and index entry if missing.
	EnsureOwnerPartition(ctx context.Context, owner string) (err error)

	// WriteEntity creates or replaces doc below owner. Profiles are singletons
	// per owner; records are addressed by their id.
	WriteEntity(ctx context.Context, owner string, doc model.Document) (err error)
	// CreateEntity writes doc only if no document exists at its address yet,
	// returning a RetCConflict error otherwise. Check and write are atomic per owner.
	CreateEntity(ctx context.Context, owner string, doc model.Document) (err error)
	// UpdateEntity reads the stored document, applies fn and writes the result,
	// all while holding the owner's lock. A missing document is RetCNotFound;
	// an error from fn aborts without writing and is returned as is. fn must
	// not change kind or id. id is ignored for profiles.
	UpdateEntity(ctx context.Context, owner string, kind model.Kind, id string, fn func(doc model.Document) error) (doc model.Document, err error)

	// ReadEntity returns a single document. A missing document is not an
	// error: loaded is false. id is ignored for profiles.
	ReadEntity(ctx context.Context, owner string, kind model.Kind, id string) (doc model.Document, loaded bool, err error)
	// ListEntitiesForOwner returns the owner's documents of kind, keyed by id.
	// For profiles the map holds at most one entry. Documents that cannot be
	// read are skipped.
	ListEntitiesForOwner(ctx context.Context, owner string, kind model.Kind) (docs map[string]model.Document, err error)
	// ListAllEntities returns the documents of kind of every indexed owner, each
	// annotated with its owner key. Order is by owner, then id.
	ListAllEntities(ctx context.Context, kind model.Kind) (docs []model.Document, err error)
	// FindOwner looks up the owner of the document with kind and id in the index.
	FindOwner(ctx context.Context, kind model.Kind, id string) (owner string, err error)
	// ListOwners returns the sorted owner keys of the index.
	ListOwners(ctx context.Context) (owners []string, err error)

	// DeleteEntity removes a document. Deleting a missing document succeeds.
	DeleteEntity(ctx context.Context, owner string, kind model.Kind, id string) (err error)
	// DeleteOwnerPartition removes the owner with all documents.
	DeleteOwnerPartition(ctx context.Context, owner string) (err error)
	// ClearAll removes every owner and resets the index.
	ClearAll(ctx context.Context) (err error)
	// RebuildIndex replaces the index with one derived from the documents in
	// the backend, adopting orphaned documents.
	RebuildIndex(ctx context.Context) (err error)

	// Close releases the cache and the backend.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode),
// a message and optionally the underlying cause.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
	Err  error   // The cause, may be nil.
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("StoreError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel errors of this package by code, so
// errors.Is(err, store.ErrNotFound) holds for every not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Msg == "" && t.Err == nil && t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string, args ...any) *Error {
	return &Error{
		Code: code,
		Msg:  fmt.Sprintf(msg, args...),
	}
}

// WrapError creates a new Error with the given code carrying err as cause.
func WrapError(code RetCode, err error, msg string, args ...any) *Error {
	return &Error{
		Code: code,
		Msg:  fmt.Sprintf(msg, args...),
		Err:  err,
	}
}

// Sentinels for errors.Is.
var (
	ErrNotFound           = &Error{Code: RetCNotFound}
	ErrConflict           = &Error{Code: RetCConflict}
	ErrBackendUnavailable = &Error{Code: RetCBackendUnavailable}
	ErrValidationFailed   = &Error{Code: RetCValidationFailed}
)

// CodeOf returns the code of the first *Error in err's chain,
// RetCSuccess for nil and RetCInternalError for foreign errors.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.Code
	}
	return RetCInternalError
}

func IsNotFound(err error) bool           { return CodeOf(err) == RetCNotFound }
func IsConflict(err error) bool           { return CodeOf(err) == RetCConflict }
func IsBackendUnavailable(err error) bool { return CodeOf(err) == RetCBackendUnavailable }
func IsValidationFailed(err error) bool   { return CodeOf(err) == RetCValidationFailed }

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess            RetCode = iota // 0: Operation succeeded.
	RetCInternalError                     // 1: Unexpected failure, e.g. a corrupt document.
	RetCNotFound                          // 2: A required document does not exist.
	RetCConflict                          // 3: A uniqueness constraint was violated.
	RetCBackendUnavailable                // 4: The backend failed to read or write.
	RetCValidationFailed                  // 5: The input was rejected before touching the backend.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCNotFound:
		return "NotFound"
	case RetCConflict:
		return "Conflict"
	case RetCBackendUnavailable:
		return "BackendUnavailable"
	case RetCValidationFailed:
		return "ValidationFailed"
	default:
		return "Unknown"
	}
}
