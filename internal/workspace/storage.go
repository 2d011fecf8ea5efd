package workspace

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Storage is the file system the store reads and writes documents through.
type Storage interface {
	// ReadFile reads the entire file at path.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile replaces the file at path.
	WriteFile(ctx context.Context, path string, data []byte) error

	// Stat returns file info for path.
	Stat(ctx context.Context, path string) (fs.FileInfo, error)
}

// OSStorage implements Storage using the real OS file system.
type OSStorage struct{}

// ReadFile reads the entire file at path.
func (OSStorage) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// WriteFile writes data to a temporary file next to path and renames it into
// place.
func (OSStorage) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	perm := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	f, err := os.CreateTemp(filepath.Dir(path), ".exthost-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Stat returns file info for path.
func (OSStorage) Stat(ctx context.Context, path string) (fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Stat(path)
}

// MemStorage implements Storage in memory. It is safe for concurrent use.
type MemStorage struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
}

// NewMemStorage creates an empty in-memory storage.
func NewMemStorage() *MemStorage {
	return &MemStorage{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

// Ensure the implementations satisfy Storage.
var (
	_ Storage = OSStorage{}
	_ Storage = (*MemStorage)(nil)
)

// Put stores a file.
func (m *MemStorage) Put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = bytes.Clone(data)
}

// Mkdir records a directory.
func (m *MemStorage) Mkdir(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[filepath.Clean(path)] = true
}

// ReadFile returns a copy of the file content.
func (m *MemStorage) ReadFile(ctx context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	path = filepath.Clean(path)
	if m.dirs[path] {
		return nil, &fs.PathError{Op: "read", Path: path, Err: ErrIsDirectory}
	}
	data, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
	}
	return bytes.Clone(data), nil
}

// WriteFile stores a copy of data.
func (m *MemStorage) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Put(path, data)
	return nil
}

// Stat returns file info for path.
func (m *MemStorage) Stat(ctx context.Context, path string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	path = filepath.Clean(path)
	if m.dirs[path] {
		return memInfo{name: filepath.Base(path), dir: true}, nil
	}
	data, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return memInfo{name: filepath.Base(path), size: int64(len(data))}, nil
}

type memInfo struct {
	name string
	size int64
	dir  bool
}

func (i memInfo) Name() string { return i.name }
func (i memInfo) Size() int64  { return i.size }
func (i memInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return i.dir }
func (i memInfo) Sys() any           { return nil }

// IsBinary reports whether content looks like binary data: it contains a
// NUL byte or more than 10% control characters in the first 8KB.
func IsBinary(content []byte) bool {
	sample := content[:min(len(content), 8192)]
	if len(sample) == 0 {
		return false
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}
	nonText := 0
	for _, b := range sample {
		if b < 32 && b != '\t' && b != '\n' && b != '\r' && b != '\f' {
			nonText++
		}
	}
	return nonText*10 > len(sample)
}
