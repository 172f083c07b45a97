// Package file implements queue.Store as a snapshot file on disk, the
// default durable backend for client applications. Each Save writes a
// temp file in the same directory and renames it over the target, so a
// crash mid-write leaves the previous snapshot intact.
//
// One Store manages one file; the storage key selects a section inside
// it, keeping the on-disk layout a single key→snapshot document.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/KBH222/reliq"
	"github.com/KBH222/reliq/queue"
)

var _ queue.Store = (*Store)(nil)

// Store persists snapshots in a JSON file keyed by storage key.
type Store struct {
	path string

	mu     sync.Mutex
	closed bool
}

// New creates a Store backed by the file at path. The file is created
// on first Save; a missing file reads as an empty store.
func New(path string) *Store {
	return &Store{path: path}
}

// Load returns the snapshot under storageKey, or (nil, nil) if the file
// or the key does not exist.
func (s *Store) Load(_ context.Context, storageKey string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, reliq.ErrStoreClosed
	}

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	data, ok := doc[storageKey]
	if !ok {
		return nil, nil
	}
	return data, nil
}

// Save replaces the snapshot under storageKey. The write is atomic:
// temp file plus rename in the snapshot's directory.
func (s *Store) Save(_ context.Context, storageKey string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return reliq.ErrStoreClosed
	}

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc[storageKey] = json.RawMessage(data)

	out, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("file: encode store document: %w", err)
	}
	return s.writeAtomic(out)
}

// read parses the store file into a key→snapshot map. A missing file
// is an empty map.
func (s *Store) read() (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file: read %s: %w", s.path, err)
	}

	doc := map[string]json.RawMessage{}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("file: parse %s: %w", s.path, err)
	}
	return doc, nil
}

// writeAtomic writes data to a temp file in the target directory and
// renames it over the store file.
func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("file: create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("file: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("file: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("file: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("file: rename temp: %w", err)
	}
	return nil
}

// Migrate ensures the parent directory exists.
func (s *Store) Migrate(_ context.Context) error {
	return os.MkdirAll(filepath.Dir(s.path), 0o755)
}

// Ping verifies the parent directory is accessible.
func (s *Store) Ping(_ context.Context) error {
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}

// Close marks the store closed; further operations fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
