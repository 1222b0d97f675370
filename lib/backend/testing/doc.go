// Package testing provides the conformance suite every backend.IBackend
// implementation is run against.
//
// Example usage:
//
//	func TestMyBackend(t *testing.T) {
//		backendtesting.RunBackendTests(t, "MyBackend", func(t *testing.T) backend.IBackend {
//			return NewMyBackend(t.TempDir())
//		})
//	}
package testing
