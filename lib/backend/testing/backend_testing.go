package testing

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend"
)

// BackendFactory creates a fresh, empty backend for a single test.
type BackendFactory func(t *testing.T) backend.IBackend

// RunBackendTests runs the conformance suite for an IBackend implementation.
func RunBackendTests(t *testing.T, name string, factory BackendFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Write&Read", func(t *testing.T) {
			testWriteRead(t, open(t, factory))
		})

		t.Run("WriteCreatesParents", func(t *testing.T) {
			testWriteCreatesParents(t, open(t, factory))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, open(t, factory))
		})

		t.Run("DeleteRecursive", func(t *testing.T) {
			testDeleteRecursive(t, open(t, factory))
		})

		t.Run("NonASCIIPaths", func(t *testing.T) {
			testNonASCIIPaths(t, open(t, factory))
		})

		t.Run("Mkdir", func(t *testing.T) {
			testMkdir(t, open(t, factory))
		})

		t.Run("ListMissing", func(t *testing.T) {
			testListMissing(t, open(t, factory))
		})

		t.Run("ListSorted", func(t *testing.T) {
			testListSorted(t, open(t, factory))
		})

		t.Run("InvalidPaths", func(t *testing.T) {
			testInvalidPaths(t, open(t, factory))
		})

		t.Run("ConcurrentWrites", func(t *testing.T) {
			testConcurrentWrites(t, open(t, factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func open(t *testing.T, factory BackendFactory) backend.IBackend {
	b := factory(t)
	t.Cleanup(func() {
		if err := b.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return b
}

func mustWrite(t *testing.T, b backend.IBackend, path string, value []byte) {
	t.Helper()
	if err := b.Write(context.Background(), path, value); err != nil {
		t.Fatalf("Write(%s) failed: %v", path, err)
	}
}

func mustList(t *testing.T, b backend.IBackend, path string) []string {
	t.Helper()
	names, err := b.List(context.Background(), path)
	if err != nil {
		t.Fatalf("List(%s) failed: %v", path, err)
	}
	return names
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testWriteRead(t *testing.T, b backend.IBackend) {
	ctx := context.Background()
	path := "root/owners/A/profile"

	mustWrite(t, b, path, []byte(`{"v":1}`))
	value, loaded, err := b.Read(ctx, path)
	if err != nil || !loaded {
		t.Fatalf("Expected %s to be readable, got loaded=%v err=%v", path, loaded, err)
	}
	if !bytes.Equal(value, []byte(`{"v":1}`)) {
		t.Errorf("Expected value %s, got %s", `{"v":1}`, value)
	}

	mustWrite(t, b, path, []byte(`{"v":2}`))
	value, _, _ = b.Read(ctx, path)
	if !bytes.Equal(value, []byte(`{"v":2}`)) {
		t.Errorf("Expected overwritten value %s, got %s", `{"v":2}`, value)
	}

	// returned slices must not alias stored state
	value[0] = 'X'
	again, _, _ := b.Read(ctx, path)
	if again[0] == 'X' {
		t.Errorf("Expected stored value to be unaffected by caller mutation")
	}

	_, loaded, err = b.Read(ctx, "root/owners/A/missing")
	if err != nil {
		t.Errorf("Expected no error for missing path, got %v", err)
	}
	if loaded {
		t.Errorf("Expected missing path to return loaded=false")
	}
}

func testWriteCreatesParents(t *testing.T, b backend.IBackend) {
	mustWrite(t, b, "root/owners/B/exams/e1", []byte("{}"))

	if names := mustList(t, b, "root/owners"); !equalNames(names, []string{"B"}) {
		t.Errorf("Expected [B], got %v", names)
	}
	if names := mustList(t, b, "root/owners/B"); !equalNames(names, []string{"exams"}) {
		t.Errorf("Expected [exams], got %v", names)
	}
	if names := mustList(t, b, "root/owners/B/exams"); !equalNames(names, []string{"e1"}) {
		t.Errorf("Expected [e1], got %v", names)
	}
}

func testDelete(t *testing.T, b backend.IBackend) {
	ctx := context.Background()
	mustWrite(t, b, "root/a", []byte("1"))

	if err := b.Delete(ctx, "root/a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, loaded, _ := b.Read(ctx, "root/a"); loaded {
		t.Errorf("Expected root/a to be gone after Delete")
	}
	// deleting again is not an error
	if err := b.Delete(ctx, "root/a"); err != nil {
		t.Errorf("Expected second Delete to succeed, got %v", err)
	}
	if err := b.Delete(ctx, "root/never/existed"); err != nil {
		t.Errorf("Expected Delete of missing path to succeed, got %v", err)
	}
}

func testDeleteRecursive(t *testing.T, b backend.IBackend) {
	ctx := context.Background()
	mustWrite(t, b, "root/owners/C/profile", []byte("p"))
	mustWrite(t, b, "root/owners/C/exams/e1", []byte("e"))
	mustWrite(t, b, "root/owners/C/exams/e2", []byte("e"))
	mustWrite(t, b, "root/owners/CC/profile", []byte("other"))

	if err := b.Delete(ctx, "root/owners/C"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	for _, p := range []string{"root/owners/C/profile", "root/owners/C/exams/e1", "root/owners/C/exams/e2"} {
		if _, loaded, _ := b.Read(ctx, p); loaded {
			t.Errorf("Expected %s to be deleted recursively", p)
		}
	}
	if names := mustList(t, b, "root/owners/C/exams"); len(names) != 0 {
		t.Errorf("Expected no children below deleted dir, got %v", names)
	}
	// siblings sharing a name prefix survive
	if _, loaded, _ := b.Read(ctx, "root/owners/CC/profile"); !loaded {
		t.Errorf("Expected sibling root/owners/CC to survive")
	}
	if names := mustList(t, b, "root/owners"); !equalNames(names, []string{"CC"}) {
		t.Errorf("Expected [CC], got %v", names)
	}
}

func testNonASCIIPaths(t *testing.T, b backend.IBackend) {
	ctx := context.Background()
	mustWrite(t, b, "root/owners/测试/profile", []byte("p"))
	mustWrite(t, b, "root/owners/测试/applications/a1", []byte("a"))
	mustWrite(t, b, "root/owners/测试0/profile", []byte("other"))

	if names := mustList(t, b, "root/owners/测试/applications"); !equalNames(names, []string{"a1"}) {
		t.Errorf("Expected [a1], got %v", names)
	}
	if names := mustList(t, b, "root/owners/测试"); !equalNames(names, []string{"applications", "profile"}) {
		t.Errorf("Expected [applications profile], got %v", names)
	}

	if err := b.Delete(ctx, "root/owners/测试"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	for _, p := range []string{"root/owners/测试/profile", "root/owners/测试/applications/a1"} {
		if _, loaded, _ := b.Read(ctx, p); loaded {
			t.Errorf("Expected %s to be deleted recursively", p)
		}
	}
	if _, loaded, _ := b.Read(ctx, "root/owners/测试0/profile"); !loaded {
		t.Errorf("Expected sibling root/owners/测试0 to survive")
	}
	if names := mustList(t, b, "root/owners"); !equalNames(names, []string{"测试0"}) {
		t.Errorf("Expected [测试0], got %v", names)
	}
}

func testMkdir(t *testing.T, b backend.IBackend) {
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := b.Mkdir(ctx, "root/owners/D/applications"); err != nil {
			t.Fatalf("Mkdir #%d failed: %v", i, err)
		}
	}
	if names := mustList(t, b, "root/owners/D/applications"); len(names) != 0 {
		t.Errorf("Expected empty directory, got %v", names)
	}
	mustWrite(t, b, "root/owners/D/applications/a1", []byte("{}"))
	if err := b.Mkdir(ctx, "root/owners/D/applications"); err != nil {
		t.Errorf("Mkdir on populated directory failed: %v", err)
	}
	if names := mustList(t, b, "root/owners/D/applications"); !equalNames(names, []string{"a1"}) {
		t.Errorf("Expected Mkdir to keep existing children, got %v", names)
	}
}

func testListMissing(t *testing.T, b backend.IBackend) {
	names := mustList(t, b, "root/nothing/here")
	if len(names) != 0 {
		t.Errorf("Expected empty list for missing dir, got %v", names)
	}
}

func testListSorted(t *testing.T, b backend.IBackend) {
	for _, id := range []string{"c", "a", "b"} {
		mustWrite(t, b, "root/list/"+id, []byte(id))
	}
	mustWrite(t, b, "root/list/d/nested", []byte("n"))

	names := mustList(t, b, "root/list")
	if !sort.StringsAreSorted(names) {
		t.Errorf("Expected sorted names, got %v", names)
	}
	if !equalNames(names, []string{"a", "b", "c", "d"}) {
		t.Errorf("Expected [a b c d], got %v", names)
	}
}

func testInvalidPaths(t *testing.T, b backend.IBackend) {
	ctx := context.Background()
	for _, p := range []string{"", "../escape", "root/../../x"} {
		if err := b.Write(ctx, p, []byte("x")); err == nil {
			t.Errorf("Expected Write(%q) to fail", p)
		}
		if _, _, err := b.Read(ctx, p); err == nil {
			t.Errorf("Expected Read(%q) to fail", p)
		}
	}
}

func testConcurrentWrites(t *testing.T, b backend.IBackend) {
	const workers = 8
	const perWorker = 10

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				p := fmt.Sprintf("root/conc/w%d/%d", w, i)
				if err := b.Write(context.Background(), p, []byte(p)); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent write failed: %v", err)
	}

	if names := mustList(t, b, "root/conc"); len(names) != workers {
		t.Errorf("Expected %d worker dirs, got %d", workers, len(names))
	}
	for w := 0; w < workers; w++ {
		if names := mustList(t, b, fmt.Sprintf("root/conc/w%d", w)); len(names) != perWorker {
			t.Errorf("Expected %d values for worker %d, got %d", perWorker, w, len(names))
		}
	}
}
