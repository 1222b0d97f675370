// Package membackend implements backend.IBackend in process memory.
//
// Values and directory markers are kept in two concurrent maps keyed by the
// canonical path. Nothing survives the process; the backend is meant for
// tests and for throwaway stores.
package membackend

import (
	"context"
	"sort"
	"strings"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend"
	"github.com/puzpuzpuz/xsync/v3"
)

type memBackend struct {
	values *xsync.MapOf[string, []byte]
	dirs   *xsync.MapOf[string, struct{}]
}

// NewMemBackend returns an empty in-memory backend.
func NewMemBackend() backend.IBackend {
	return &memBackend{
		values: xsync.NewMapOf[string, []byte](),
		dirs:   xsync.NewMapOf[string, struct{}](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend.IBackend)
// --------------------------------------------------------------------------

func (m *memBackend) Read(_ context.Context, path string) ([]byte, bool, error) {
	p, err := backend.CleanPath(path)
	if err != nil {
		return nil, false, err
	}
	value, ok := m.values.Load(p)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (m *memBackend) Write(_ context.Context, path string, value []byte) error {
	p, err := backend.CleanPath(path)
	if err != nil {
		return err
	}
	m.markParents(p)
	m.values.Store(p, append([]byte(nil), value...))
	return nil
}

func (m *memBackend) Delete(_ context.Context, path string) error {
	p, err := backend.CleanPath(path)
	if err != nil {
		return err
	}
	prefix := p + "/"
	m.values.Range(func(key string, _ []byte) bool {
		if key == p || strings.HasPrefix(key, prefix) {
			m.values.Delete(key)
		}
		return true
	})
	m.dirs.Range(func(key string, _ struct{}) bool {
		if key == p || strings.HasPrefix(key, prefix) {
			m.dirs.Delete(key)
		}
		return true
	})
	return nil
}

func (m *memBackend) Mkdir(_ context.Context, path string) error {
	p, err := backend.CleanPath(path)
	if err != nil {
		return err
	}
	m.markParents(p)
	m.dirs.Store(p, struct{}{})
	return nil
}

func (m *memBackend) List(_ context.Context, path string) ([]string, error) {
	p, err := backend.CleanPath(path)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	m.values.Range(func(key string, _ []byte) bool {
		if name := backend.ChildName(p, key); name != "" {
			seen[name] = struct{}{}
		}
		return true
	})
	m.dirs.Range(func(key string, _ struct{}) bool {
		if name := backend.ChildName(p, key); name != "" {
			seen[name] = struct{}{}
		}
		return true
	})

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *memBackend) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (m *memBackend) markParents(p string) {
	for _, parent := range backend.Parents(p) {
		m.dirs.Store(parent, struct{}{})
	}
}
