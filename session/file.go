package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// CorruptSuffix is appended to a storage file that no longer parses before
// a write starts a fresh one.
const CorruptSuffix = ".corrupt"

var errCorruptFile = errors.New("corrupt storage file")

// FileStorage persists all keys as one JSON object on disk. Every Set and
// Delete rewrites the file through a temporary file and rename.
type FileStorage struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// FileOption configures a FileStorage.
type FileOption func(*FileStorage)

// WithFileLogger sets the logger used to report a corrupt file.
func WithFileLogger(l *slog.Logger) FileOption {
	return func(f *FileStorage) {
		if l != nil {
			f.logger = l
		}
	}
}

func NewFileStorage(path string, opts ...FileOption) (*FileStorage, error) {
	if path == "" {
		return nil, errors.New("file storage path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	f := &FileStorage{
		path:   path,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Path returns the backing file.
func (f *FileStorage) Path() string {
	return f.path
}

func (f *FileStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileStorage) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.loadForWrite()
	if err != nil {
		return err
	}
	values[key] = value
	return f.save(values)
}

func (f *FileStorage) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.loadForWrite()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := values[k]; ok {
			delete(values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.save(values)
}

func (f *FileStorage) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrStorageUnavailable, errCorruptFile, err)
	}
	return values, nil
}

// loadForWrite is load, except that a corrupt file is renamed to
// path+CorruptSuffix and writing continues from an empty set. Other read
// errors are returned.
func (f *FileStorage) loadForWrite() (map[string]string, error) {
	values, err := f.load()
	if err == nil {
		return values, nil
	}
	if !errors.Is(err, errCorruptFile) {
		return nil, err
	}

	aside := f.path + CorruptSuffix
	if rerr := os.Rename(f.path, aside); rerr != nil {
		return nil, fmt.Errorf("%w: move corrupt file aside: %v", ErrStorageUnavailable, rerr)
	}
	f.logger.Warn("storage file is corrupt, moved aside",
		"path", f.path,
		"moved_to", aside,
		"error", err,
	)
	return make(map[string]string), nil
}

func (f *FileStorage) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".storage-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
