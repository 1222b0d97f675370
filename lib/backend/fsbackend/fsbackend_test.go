package fsbackend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend"
	backendtesting "github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSBackend(t *testing.T) {
	backendtesting.RunBackendTests(t, "FSBackend", func(t *testing.T) backend.IBackend {
		b, err := NewFSBackend(t.TempDir())
		require.NoError(t, err)
		return b
	})
}

func TestFSBackendLayoutOnDisk(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFSBackend(dir)
	require.NoError(t, err)

	require.NoError(t, b.Write(context.Background(), "root/owners/A/profile", []byte("{}")))

	data, err := os.ReadFile(filepath.Join(dir, "root", "owners", "A", "profile"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Join(dir, "root", "owners", "A"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFSBackendHidesTempFiles(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFSBackend(dir)
	require.NoError(t, err)

	require.NoError(t, b.Mkdir(context.Background(), "root/x"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "root", "x", ".a.1234.tmp"), []byte("partial"), 0o600))

	names, err := b.List(context.Background(), "root/x")
	require.NoError(t, err)
	assert.Empty(t, names)
}
