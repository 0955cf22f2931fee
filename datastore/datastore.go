// Package datastore is a small JSON-file key/value store. Values are kept as
// raw JSON in memory and written back atomically on Save.
package datastore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("datastore is closed")

// Config configures a Store.
type Config struct {
	FilePath    string
	BackupCount int // timestamped copies kept next to the file, 0 disables
}

type Store struct {
	cfg    Config
	logger zerolog.Logger

	mu       sync.RWMutex
	data     map[string]json.RawMessage
	checksum string
	closed   bool
	now      func() time.Time
}

// Open loads cfg.FilePath, creating it (and its directory) when missing.
func Open(cfg Config) (*Store, error) {
	if cfg.FilePath == "" {
		return nil, errors.New("datastore: file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("datastore: create directory: %w", err)
	}

	s := &Store{
		cfg:    cfg,
		logger: log.With().Str("component", "datastore").Str("file", cfg.FilePath).Logger(),
		data:   make(map[string]json.RawMessage),
		now:    time.Now,
	}

	raw, err := os.ReadFile(cfg.FilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := s.writeAtomic([]byte("{}")); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("datastore: read: %w", err)
	default:
		if len(strings.TrimSpace(string(raw))) > 0 {
			if err := json.Unmarshal(raw, &s.data); err != nil {
				return nil, fmt.Errorf("datastore: invalid JSON in %s: %w", cfg.FilePath, err)
			}
		}
		s.checksum = checksum(raw)
	}
	return s, nil
}

// Get decodes the value under key into out. It reports false when the key is
// missing.
func (s *Store) Get(key string, out any) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}
	raw, ok := s.data[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("datastore: decode %q: %w", key, err)
	}
	return true, nil
}

// Set stores value under key in memory. Call Save to persist.
func (s *Store) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("datastore: encode %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.data[key] = raw
	return nil
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Keys lists keys starting with prefix, sorted.
func (s *Store) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Save writes the store to disk unless nothing changed since the last load
// or save.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.saveLocked()
}

// Close saves pending changes and rejects further use.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("datastore: marshal: %w", err)
	}
	sum := checksum(raw)
	if sum == s.checksum {
		return nil
	}

	if s.cfg.BackupCount > 0 {
		if err := s.backup(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to back up datastore")
		}
	}
	if err := s.writeAtomic(raw); err != nil {
		return err
	}
	s.checksum = sum
	return nil
}

// writeAtomic writes through a synced temp file and a rename.
func (s *Store) writeAtomic(raw []byte) error {
	tmp := s.cfg.FilePath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("datastore: open temp file: %w", err)
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("datastore: write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("datastore: sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("datastore: close temp file: %w", err)
	}
	if err := os.Rename(tmp, s.cfg.FilePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("datastore: rename temp file: %w", err)
	}
	return nil
}

func (s *Store) backup() error {
	src, err := os.Open(s.cfg.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	name := fmt.Sprintf("%s.backup.%s", s.cfg.FilePath, s.now().Format("20060102_150405.000"))
	dst, err := os.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	s.pruneBackups()
	return nil
}

// pruneBackups keeps the newest BackupCount backups. The timestamp suffix
// sorts lexically in time order.
func (s *Store) pruneBackups() {
	matches, err := filepath.Glob(s.cfg.FilePath + ".backup.*")
	if err != nil || len(matches) <= s.cfg.BackupCount {
		return
	}
	slices.Sort(matches)
	for _, old := range matches[:len(matches)-s.cfg.BackupCount] {
		if err := os.Remove(old); err != nil {
			s.logger.Debug().Err(err).Str("backup", old).Msg("Failed to remove old backup")
		}
	}
}

func checksum(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
