package vfs

import (
	"bytes"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Mem is an in-memory FileSystem for tests. Zero value is ready to use.
type Mem struct {
	mu    sync.Mutex
	files map[string]*memFile
}

type memFile struct {
	data    []byte
	mode    fs.FileMode
	modTime time.Time
	dir     bool
}

func (m *Mem) init() {
	if m.files == nil {
		m.files = make(map[string]*memFile)
	}
}

func clean(name string) string {
	return filepath.ToSlash(filepath.Clean(name))
}

func (m *Mem) Open(name string) (fs.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[clean(name)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return &memReadFile{memFile: f, name: name, Reader: bytes.NewReader(f.data)}, nil
}

func (m *Mem) Stat(name string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[clean(name)]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return memFileInfo{name: filepath.Base(name), f: f}, nil
}

func (m *Mem) ReadDir(name string) ([]fs.DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := clean(name)
	if prefix != "." {
		prefix += "/"
	} else {
		prefix = ""
	}
	seen := map[string]bool{}
	var entries []fs.DirEntry
	for path, f := range m.files {
		if !strings.HasPrefix(path, prefix) || path == clean(name) {
			continue
		}
		rest := strings.TrimPrefix(path, prefix)
		parts := strings.SplitN(rest, "/", 2)
		child := parts[0]
		if seen[child] {
			continue
		}
		seen[child] = true
		isDir := len(parts) > 1 || f.dir
		entries = append(entries, memDirEntry{name: child, isDir: isDir})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (m *Mem) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[clean(name)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out, nil
}

func (m *Mem) MkdirAll(path string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.files[clean(path)] = &memFile{mode: perm | fs.ModeDir, modTime: memNow(), dir: true}
	return nil
}

func (m *Mem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.files[clean(name)] = &memFile{data: buf, mode: perm, modTime: memNow()}
	return nil
}

func (m *Mem) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, clean(name))
	return nil
}

func (m *Mem) RemoveAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := clean(path)
	for k := range m.files {
		if k == prefix || strings.HasPrefix(k, prefix+"/") {
			delete(m.files, k)
		}
	}
	return nil
}

func (m *Mem) Rename(oldpath, newpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[clean(oldpath)]
	if !ok {
		return &fs.PathError{Op: "rename", Path: oldpath, Err: fs.ErrNotExist}
	}
	delete(m.files, clean(oldpath))
	m.files[clean(newpath)] = f
	return nil
}

func (m *Mem) Symlink(oldname, newname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.files[clean(newname)] = &memFile{data: []byte(oldname), mode: fs.ModeSymlink, modTime: memNow()}
	return nil
}

func (m *Mem) Exists(name string) bool {
	_, err := m.Stat(name)
	return err == nil
}

// SetModTime lets a test simulate a source file becoming newer without
// changing its content, for the time-policy-vs-hash-policy rebuild
// rebuild-policy tests.
func (m *Mem) SetModTime(name string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[clean(name)]; ok {
		f.modTime = t
	}
}

// memClock lets tests fix "now" deterministically instead of depending
// on wall-clock time, since Date.now()-style nondeterminism is exactly
// what the build-identity tests must avoid.
var memClock = time.Unix(1700000000, 0)

func memNow() time.Time {
	memClock = memClock.Add(time.Second)
	return memClock
}

type memReadFile struct {
	*memFile
	name string
	*bytes.Reader
}

func (f *memReadFile) Stat() (fs.FileInfo, error) {
	return memFileInfo{name: filepath.Base(f.name), f: f.memFile}, nil
}
func (f *memReadFile) Close() error { return nil }
func (f *memReadFile) Read(p []byte) (int, error) {
	n, err := f.Reader.Read(p)
	if err == io.EOF {
		return n, io.EOF
	}
	return n, err
}

type memFileInfo struct {
	name string
	f    *memFile
}

func (i memFileInfo) Name() string       { return i.name }
func (i memFileInfo) Size() int64        { return int64(len(i.f.data)) }
func (i memFileInfo) Mode() fs.FileMode  { return i.f.mode }
func (i memFileInfo) ModTime() time.Time { return i.f.modTime }
func (i memFileInfo) IsDir() bool        { return i.f.dir }
func (i memFileInfo) Sys() any           { return nil }

type memDirEntry struct {
	name  string
	isDir bool
}

func (e memDirEntry) Name() string { return e.name }
func (e memDirEntry) IsDir() bool  { return e.isDir }
func (e memDirEntry) Type() fs.FileMode {
	if e.isDir {
		return fs.ModeDir
	}
	return 0
}
func (e memDirEntry) Info() (fs.FileInfo, error) {
	return memFileInfo{name: e.name, f: &memFile{dir: e.isDir}}, nil
}
