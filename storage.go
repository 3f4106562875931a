package leveldb

import (
	"io"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/luozeyaoGitHub/leveldb/internal/base"
	"github.com/luozeyaoGitHub/leveldb/sstable"
)

// RandomAccessFile is the read side of the file abstraction a table
// reader needs: sized, positioned reads.
type RandomAccessFile interface {
	io.ReaderAt
	Size() (int64, error)
	Close() error
}

// WritableFile is the write side of the file abstraction a table builder
// needs: sequential writes, optionally an explicit Sync.
type WritableFile interface {
	io.Writer
	Sync() error
	Close() error
}

// Storage maps names to files. It is a deliberately small surface: no
// directory listing, locking or atomic rename, since the write-ahead log
// and manifest machinery that would need those live outside this package.
type Storage interface {
	Create(name string) (WritableFile, error)
	Open(name string) (RandomAccessFile, error)
	Remove(name string) error
}

var _ sstable.File = (*memFile)(nil)

// memFile is an in-memory RandomAccessFile/WritableFile, used by
// MemStorage and directly by tests.
type memFile struct {
	mu   sync.RWMutex
	data []byte
}

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if off < 0 {
		return 0, errors.New("leveldb: negative offset")
	}
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = append(f.data, p...)
	return len(p), nil
}

func (f *memFile) Size() (int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return int64(len(f.data)), nil
}

func (f *memFile) Sync() error { return nil }
func (f *memFile) Close() error { return nil }

// MemStorage is an in-memory Storage implementation, used by tests and by
// callers embedding this package without a real filesystem.
type MemStorage struct {
	mu    sync.Mutex
	files map[string]*memFile
}

// NewMemStorage returns an empty MemStorage.
func NewMemStorage() *MemStorage {
	return &MemStorage{files: make(map[string]*memFile)}
}

// Create returns a new, empty, writable file. Any existing file of the same
// name is replaced at once, before anything is written.
func (s *MemStorage) Create(name string) (WritableFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := &memFile{}
	s.files[name] = f
	return f, nil
}

// Open returns the named file for random access reads.
func (s *MemStorage) Open(name string) (RandomAccessFile, error) {
	s.mu.Lock()
	f, ok := s.files[name]
	s.mu.Unlock()
	if !ok {
		return nil, errors.Mark(errors.Newf("leveldb: no such file: %s", name), base.ErrNotFound)
	}
	return f, nil
}

// Remove deletes the named file.
func (s *MemStorage) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[name]; !ok {
		return errors.Mark(errors.Newf("leveldb: no such file: %s", name), base.ErrNotFound)
	}
	delete(s.files, name)
	return nil
}
