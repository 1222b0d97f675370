// Package testing provides a standardised conformance suite for
// implementations of the store.IStore interface.
//
// Example usage:
//
//	factory := func(t *testing.T) store.IStore {
//		return docstore.NewDocumentStore(membackend.NewMemBackend(), docstore.DefaultOptions())
//	}
//
//	storetesting.RunStoreTests(t, "DocStore", factory)
package testing
