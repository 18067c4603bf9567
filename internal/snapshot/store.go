package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pawscope/backend/internal/security"
	"github.com/pawscope/backend/pkg/model"
)

// ErrNotFound is returned when no snapshot exists under the requested key
var ErrNotFound = errors.New("snapshot not found")

// Store persists one session snapshot per key. Writing to an existing key
// replaces the previous snapshot.
type Store interface {
	Put(key string, snap *model.SessionSnapshot) error
	Get(key string) (*model.SessionSnapshot, error)
	Delete(key string) error
}

// MemoryStore keeps snapshots in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStore creates an empty in-memory snapshot store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func (s *MemoryStore) Put(key string, snap *model.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = data
	return nil
}

func (s *MemoryStore) Get(key string) (*model.SessionSnapshot, error) {
	s.mu.RLock()
	data, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var snap model.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// Unreadable snapshots are treated as absent
		return nil, ErrNotFound
	}
	return &snap, nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// FileStore persists snapshots as files under a base directory. With an
// encryptor set, snapshots are sealed at rest; without one they are plain
// JSON.
type FileStore struct {
	dir    string
	enc    *security.Encryptor
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileStore creates a file-backed snapshot store rooted at dir. A nil
// encryptor stores snapshots unencrypted.
func NewFileStore(dir string, enc *security.Encryptor, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileStore{dir: dir, enc: enc, logger: logger}, nil
}

func (s *FileStore) path(key string) string {
	// Keys may contain path separators (e.g. "triage/<profile>")
	safe := strings.ReplaceAll(key, string(os.PathSeparator), "_")
	safe = strings.ReplaceAll(safe, "/", "_")
	return filepath.Join(s.dir, safe+".json")
}

func (s *FileStore) Put(key string, snap *model.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if s.enc != nil {
		if data, err = s.enc.Encrypt(data); err != nil {
			return fmt.Errorf("failed to encrypt snapshot: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

func (s *FileStore) Get(key string) (*model.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	if s.enc != nil {
		if data, err = s.enc.Decrypt(data); err != nil {
			// Undecryptable snapshots are treated as absent, same as corrupt JSON
			if s.logger != nil {
				s.logger.Warn("Discarding undecryptable session snapshot",
					zap.String("key", key),
					zap.Error(err))
			}
			return nil, ErrNotFound
		}
	}

	var snap model.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// Corrupt snapshots are treated as absent rather than surfaced
		if s.logger != nil {
			s.logger.Warn("Discarding corrupt session snapshot",
				zap.String("key", key),
				zap.Error(err))
		}
		return nil, ErrNotFound
	}
	return &snap, nil
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*FileStore)(nil)
