package membackend

import (
	"testing"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend"
	backendtesting "github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend/testing"
)

func TestMemBackend(t *testing.T) {
	backendtesting.RunBackendTests(t, "MemBackend", func(t *testing.T) backend.IBackend {
		return NewMemBackend()
	})
}
