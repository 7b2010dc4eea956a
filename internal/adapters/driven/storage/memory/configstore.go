package memory

import (
	"sync"

	"github.com/custodia-labs/docrag/internal/adapters/driven/config/values"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// MemoryPath is what Path reports for an in-memory store.
const MemoryPath = ":memory:"

// ConfigStore keeps settings in a map. It backs tests and --config=:memory:.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore returns an empty store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{values: make(map[string]any)}
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *ConfigStore) lookup(key string) any {
	v, _ := s.Get(key)
	return v
}

func (s *ConfigStore) GetString(key string) string { return values.String(s.lookup(key)) }

func (s *ConfigStore) GetInt(key string) int { return values.Int(s.lookup(key)) }

func (s *ConfigStore) GetFloat(key string) float64 { return values.Float(s.lookup(key)) }

func (s *ConfigStore) GetBool(key string) bool { return values.Bool(s.lookup(key)) }

func (s *ConfigStore) GetStringSlice(key string) []string { return values.Strings(s.lookup(key)) }

func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

// Save and Load have nothing to persist.
func (s *ConfigStore) Save() error { return nil }

func (s *ConfigStore) Load() error { return nil }

func (s *ConfigStore) Path() string { return MemoryPath }
