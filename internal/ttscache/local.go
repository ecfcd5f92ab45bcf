package ttscache

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// AudioExt is the extension of every file in the local tier.
const AudioExt = ".mp3"

const tempPrefix = ".tmp-"

// LocalStore is the process-local audio tier: one file per ContentKey in a
// directory, mirrored by an in-memory index. An index entry is only added after
// its file has been fully written, and any entry found pointing at a missing
// file is dropped on the spot.
type LocalStore struct {
	dir string
	log *slog.Logger

	mu    sync.RWMutex
	index map[string]string
}

// NewLocalStore creates dir if needed and returns an empty store rooted there.
func NewLocalStore(dir string, logger *slog.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local cache dir: %w", err)
	}
	return &LocalStore{
		dir:   dir,
		log:   logger.With("component", "tts_local_cache"),
		index: make(map[string]string),
	}, nil
}

// Dir returns the directory holding cached audio.
func (s *LocalStore) Dir() string { return s.dir }

// Path returns the canonical file path for key.
func (s *LocalStore) Path(key string) string {
	return filepath.Join(s.dir, key+AudioExt)
}

// Lookup returns the path of the cached audio for key. The in-memory index is
// consulted first; a stale entry is purged and the canonical path is checked
// directly so a dropped index does not cause a miss.
func (s *LocalStore) Lookup(key string) (string, bool) {
	s.mu.RLock()
	indexed, ok := s.index[key]
	s.mu.RUnlock()

	if ok {
		found, err := fileExists(indexed)
		switch {
		case err != nil:
			s.log.Warn("stat cached audio", "key", key, "path", indexed, "error", err)
			return "", false
		case found:
			return indexed, true
		}
		s.purge(key, indexed)
		s.log.Debug("purged stale index entry", "key", key, "path", indexed)
	}

	path := s.Path(key)
	found, err := fileExists(path)
	if err != nil {
		s.log.Warn("stat cached audio", "key", key, "path", path, "error", err)
		return "", false
	}
	if !found {
		return "", false
	}

	s.mu.Lock()
	s.index[key] = path
	s.mu.Unlock()
	return path, true
}

// Store writes audio to the canonical path for key and registers it in the
// index. Repeated stores for the same key replace the same file.
func (s *LocalStore) Store(key string, audio []byte) (string, error) {
	if !ValidKey(key) {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create local cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, tempPrefix+key+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp audio file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write audio: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("sync audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close audio: %w", err)
	}

	path := s.Path(key)
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("move audio into place: %w", err)
	}

	s.mu.Lock()
	s.index[key] = path
	s.mu.Unlock()
	return path, nil
}

// Clear deletes every local audio file and resets the index. The remote tier
// is not touched.
func (s *LocalStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read local cache dir: %w", err)
	}

	var errs []error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, AudioExt) || strings.HasPrefix(name, tempPrefix)) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	s.index = make(map[string]string)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("clear local cache: %w", err)
	}
	return nil
}

// FileCount returns the number of audio files currently on disk.
func (s *LocalStore) FileCount() (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+AudioExt))
	if err != nil {
		return 0, fmt.Errorf("glob local cache: %w", err)
	}
	return len(matches), nil
}

// IndexSize returns the number of entries in the in-memory index.
func (s *LocalStore) IndexSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// purge removes key from the index unless a concurrent Store already replaced it.
func (s *LocalStore) purge(key, stale string) {
	s.mu.Lock()
	if s.index[key] == stale {
		if found, _ := fileExists(stale); !found {
			delete(s.index, key)
		}
	}
	s.mu.Unlock()
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return info.Mode().IsRegular(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
