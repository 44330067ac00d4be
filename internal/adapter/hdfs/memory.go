package hdfs

import (
	"fmt"
	"path"
	"sync"

	"github.com/citylake/traffic-weather-etl/internal/domain"
)

// MemoryFS is an in-memory domain.BulkFS for tests. Directories are tracked
// explicitly; writes into an absent directory fail as HDFS would.
type MemoryFS struct {
	mu    sync.Mutex
	dirs  map[string]bool
	files map[string][]byte

	failWith error
}

func NewMemoryFS() *MemoryFS {
	return &MemoryFS{
		dirs:  map[string]bool{"/": true},
		files: make(map[string][]byte),
	}
}

// SetFailure makes every subsequent call fail with err. Pass nil to heal.
func (m *MemoryFS) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *MemoryFS) Exists(p string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}
	if m.dirs[p] {
		return true, nil
	}
	_, ok := m.files[p]
	return ok, nil
}

func (m *MemoryFS) MkdirAll(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	for p != "/" && p != "." && p != "" {
		m.dirs[p] = true
		p = path.Dir(p)
	}
	return nil
}

func (m *MemoryFS) WriteFile(p string, data []byte, overwrite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if !m.dirs[path.Dir(p)] {
		return fmt.Errorf("directory %s does not exist", path.Dir(p))
	}
	if _, ok := m.files[p]; ok && !overwrite {
		return fmt.Errorf("file %s already exists", p)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.files[p] = stored
	return nil
}

// File returns the stored contents of p.
func (m *MemoryFS) File(p string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[p]
	return data, ok
}

var _ domain.BulkFS = (*MemoryFS)(nil)
