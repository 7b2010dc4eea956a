package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docrag/internal/adapters/driven/config/values"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// Format is a configuration file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from a file extension. Anything that is not
// .yaml or .yml is TOML.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

func (f Format) marshal(v any) ([]byte, error) {
	if f == FormatYAML {
		return yaml.Marshal(v)
	}
	return toml.Marshal(v)
}

func (f Format) unmarshal(data []byte, v any) error {
	if f == FormatYAML {
		return yaml.Unmarshal(data, v)
	}
	return toml.Unmarshal(data, v)
}

// ConfigStore keeps a TOML or YAML file as flat dotted keys. Tables are
// flattened on Load and rebuilt on every write.
type ConfigStore struct {
	path   string
	format Format

	mu   sync.RWMutex
	data map[string]any
}

// NewConfigStore opens <configDir>/config.toml, with ~/.docrag as the
// default directory.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".docrag")
	}
	return NewConfigStoreAt(filepath.Join(configDir, "config.toml"))
}

// NewConfigStoreAt opens an explicit file, creating its directory. A file
// that does not exist yet is an empty configuration.
func NewConfigStoreAt(path string) (*ConfigStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	s := &ConfigStore{path: path, format: FormatForPath(path)}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
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

// Set records value and rewrites the file. On a write error the in-memory
// value is rolled back.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.data[key]
	s.data[key] = value
	if err := s.write(); err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

// Save rewrites the file from the current values.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write()
}

// write replaces the file through a temporary sibling so readers never see
// a partial document. Caller holds mu.
func (s *ConfigStore) write() error {
	data, err := s.format.marshal(nest(s.data))
	if err != nil {
		return fmt.Errorf("encode %s config: %w", s.format, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".config-*")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err == nil {
		err = tmp.Chmod(0o600)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), s.path)
	}
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load rereads the file, discarding unsaved values.
func (s *ConfigStore) Load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		raw, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var doc map[string]any
	if err := s.format.unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}

	flat := make(map[string]any)
	flatten(flat, "", doc)

	s.mu.Lock()
	s.data = flat
	s.mu.Unlock()
	return nil
}

func (s *ConfigStore) Path() string { return s.path }

// flatten copies tables from doc into dst under dotted keys.
func flatten(dst map[string]any, prefix string, doc map[string]any) {
	for k, v := range doc {
		if prefix != "" {
			k = prefix + "." + k
		}
		if table, ok := v.(map[string]any); ok {
			flatten(dst, k, table)
			continue
		}
		dst[k] = v
	}
}

// nest rebuilds tables from dotted keys. When a key is both a value and a
// table prefix, the value stays at the top level under its dotted name.
// Shallow keys are placed first so the outcome does not depend on map order.
func nest(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if d := strings.Count(a, ".") - strings.Count(b, "."); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})

	root := make(map[string]any)
	for _, key := range keys {
		v := flat[key]
		parts := strings.Split(key, ".")
		table, ok := root, true
		for _, p := range parts[:len(parts)-1] {
			child, exists := table[p]
			if !exists {
				child = make(map[string]any)
				table[p] = child
			}
			if table, ok = child.(map[string]any); !ok {
				break
			}
		}
		if !ok {
			root[key] = v
			continue
		}
		table[parts[len(parts)-1]] = v
	}
	return root
}
