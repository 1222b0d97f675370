package sqlbackend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend"
	backendtesting "github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLBackend(t *testing.T) {
	backendtesting.RunBackendTests(t, "SQLBackend", func(t *testing.T) backend.IBackend {
		b, err := NewSQLBackend(filepath.Join(t.TempDir(), "store.db"))
		require.NoError(t, err)
		return b
	})
}

func TestSQLBackendPersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "store.db")
	ctx := context.Background()

	b, err := NewSQLBackend(dbPath)
	require.NoError(t, err)
	require.NoError(t, b.Write(ctx, "root/index", []byte(`{"owners":{}}`)))
	require.NoError(t, b.Close())

	b, err = NewSQLBackend(dbPath)
	require.NoError(t, err)
	defer b.Close()

	value, loaded, err := b.Read(ctx, "root/index")
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, `{"owners":{}}`, string(value))
}

func TestSQLBackendDirectoryIsNotAValue(t *testing.T) {
	b, err := NewSQLBackend(":memory:")
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.Mkdir(ctx, "root/owners/A"))

	_, loaded, err := b.Read(ctx, "root/owners/A")
	require.NoError(t, err)
	assert.False(t, loaded)

	names, err := b.List(ctx, "root/owners")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, names)
}
