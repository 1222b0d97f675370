// Package fsbackend implements backend.IBackend on a local directory.
//
// Every backend path maps to a file or directory below the data directory.
// Writes go to a temp file in the target directory, are fsynced and then
// renamed over the target, so a reader sees either the old or the new value.
package fsbackend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("backend")

const (
	dirPerm  = 0o750
	filePerm = 0o640
	tmpExt   = ".tmp"
)

type fsBackend struct {
	dataDir string
}

// NewFSBackend creates the data directory if needed and returns a backend rooted in it.
func NewFSBackend(dataDir string) (backend.IBackend, error) {
	if err := os.MkdirAll(dataDir, dirPerm); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}
	return &fsBackend{dataDir: dataDir}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend.IBackend)
// --------------------------------------------------------------------------

func (b *fsBackend) Read(_ context.Context, path string) ([]byte, bool, error) {
	full, err := b.resolve(path)
	if err != nil {
		return nil, false, err
	}
	value, err := os.ReadFile(full)
	switch {
	case err == nil:
		return value, true, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
}

func (b *fsBackend) Write(_ context.Context, path string, value []byte) error {
	full, err := b.resolve(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	tmpPath := filepath.Join(dir, "."+filepath.Base(full)+"."+uuid.NewString()[:8]+tmpExt)
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if _, err := f.Write(value); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("fsync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, full); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func (b *fsBackend) Delete(_ context.Context, path string) error {
	full, err := b.resolve(path)
	if err != nil {
		return err
	}
	// RemoveAll returns nil for missing paths
	if err := os.RemoveAll(full); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (b *fsBackend) Mkdir(_ context.Context, path string) error {
	full, err := b.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(full, dirPerm); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

func (b *fsBackend) List(_ context.Context, path string) ([]string, error) {
	full, err := b.resolve(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list %s: %w", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") && strings.HasSuffix(name, tmpExt) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (b *fsBackend) Close() error {
	Logger.Debugf("closing fs backend at %s", b.dataDir)
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// resolve maps a backend path to a file system path below the data directory.
func (b *fsBackend) resolve(path string) (string, error) {
	p, err := backend.CleanPath(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.dataDir, filepath.FromSlash(p)), nil
}
