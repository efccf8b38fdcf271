package submissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wolfman30/riskdesk-demo/pkg/logging"
)

// FileStore keeps every request in a single JSON document on local disk.
//
// Appends are serialized by a mutex and the document is replaced with an
// atomic rename, so writers inside one process never lose records. Several
// processes sharing the same path are not supported.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *logging.Logger
	now    func() time.Time
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store writing to path.
func NewFileStore(path string, logger *logging.Logger) *FileStore {
	if path == "" {
		panic("submissions: file path required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FileStore{path: path, logger: logger, now: time.Now}
}

// Path returns the document location.
func (s *FileStore) Path() string {
	return s.path
}

// Append adds rec to the document and returns its id.
func (s *FileStore) Append(ctx context.Context, rec *Record) (string, error) {
	if rec == nil || rec.ID == "" {
		return "", fmt.Errorf("%w: record id required", ErrStoreUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(); err != nil {
		return "", err
	}
	doc, err := s.load()
	if err != nil {
		return "", err
	}
	doc.Requests = append(doc.Requests, *rec)
	if err := s.write(doc); err != nil {
		return "", err
	}
	s.logger.Debug("demo request stored", "id", rec.ID, "store", "file", "count", len(doc.Requests))
	return rec.ID, nil
}

// List returns every stored record in insertion order.
func (s *FileStore) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Requests, nil
}

func (s *FileStore) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: create dir: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// load treats a missing or unparseable document as an empty collection. An
// unparseable file is moved aside so the next write does not destroy it. Any
// other read failure is returned so the existing document is never replaced.
func (s *FileStore) load() (document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return document{}, nil
		}
		return document{}, fmt.Errorf("%w: read: %v", ErrStoreUnavailable, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		backup := fmt.Sprintf("%s.corrupt-%d", s.path, s.now().UnixNano())
		if renameErr := os.Rename(s.path, backup); renameErr != nil {
			return document{}, fmt.Errorf("%w: move corrupt document aside: %v", ErrStoreUnavailable, renameErr)
		}
		s.logger.Warn("demo request store unparseable, starting empty", "path", s.path, "backup", backup, "error", err)
		return document{}, nil
	}
	return doc, nil
}

func (s *FileStore) write(doc document) error {
	if doc.Requests == nil {
		doc.Requests = []Record{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrStoreUnavailable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: temp file: %v", ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("%w: sync: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close: %v", ErrStoreUnavailable, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("%w: chmod: %v", ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("%w: rename: %v", ErrStoreUnavailable, err)
	}
	return nil
}
