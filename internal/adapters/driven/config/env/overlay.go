// Package env layers environment variables over another config store.
//
// A dotted key maps to an upper-case variable under a prefix:
// "embedding.api_key" with prefix "DOCRAG_" reads DOCRAG_EMBEDDING_API_KEY.
package env

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docrag/internal/adapters/driven/config/values"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure Overlay implements the interface.
var _ driven.ConfigStore = (*Overlay)(nil)

// DefaultPrefix is prepended to every variable name.
const DefaultPrefix = "DOCRAG_"

// LoadDotEnv loads variables from the given files (default ".env") without
// overriding ones already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Overlay reads environment variables first and falls back to a base store.
// Writes go to the base store.
type Overlay struct {
	base   driven.ConfigStore
	prefix string
	lookup func(string) (string, bool)
}

// NewOverlay wraps base. An empty prefix means DefaultPrefix.
func NewOverlay(base driven.ConfigStore, prefix string) *Overlay {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Overlay{base: base, prefix: prefix, lookup: os.LookupEnv}
}

// VarName returns the environment variable consulted for key.
func (o *Overlay) VarName(key string) string {
	return o.prefix + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

func (o *Overlay) env(key string) (string, bool) {
	v, ok := o.lookup(o.VarName(key))
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Get returns the raw variable as a string when set.
func (o *Overlay) Get(key string) (any, bool) {
	if v, ok := o.env(key); ok {
		return v, true
	}
	return o.base.Get(key)
}

// GetString retrieves a string configuration value.
func (o *Overlay) GetString(key string) string {
	if v, ok := o.env(key); ok {
		return v
	}
	return o.base.GetString(key)
}

// GetInt converts the variable, returning 0 if it is not a whole number.
func (o *Overlay) GetInt(key string) int {
	if v, ok := o.env(key); ok {
		return values.Int(v)
	}
	return o.base.GetInt(key)
}

// GetFloat converts the variable, returning 0 if it is not a number.
func (o *Overlay) GetFloat(key string) float64 {
	if v, ok := o.env(key); ok {
		return values.Float(v)
	}
	return o.base.GetFloat(key)
}

// GetBool parses the variable with strconv.ParseBool rules.
func (o *Overlay) GetBool(key string) bool {
	if v, ok := o.env(key); ok {
		return values.Bool(v)
	}
	return o.base.GetBool(key)
}

// GetStringSlice splits the variable on commas.
func (o *Overlay) GetStringSlice(key string) []string {
	if v, ok := o.env(key); ok {
		return values.Strings(v)
	}
	return o.base.GetStringSlice(key)
}

// Set writes to the base store. A set variable still shadows the value.
func (o *Overlay) Set(key string, value any) error {
	return o.base.Set(key, value)
}

// Save persists the base store.
func (o *Overlay) Save() error {
	return o.base.Save()
}

// Load reloads the base store.
func (o *Overlay) Load() error {
	return o.base.Load()
}

// Path returns the base store's file path.
func (o *Overlay) Path() string {
	return o.base.Path()
}

// Shadowed reports whether an environment variable overrides key.
func (o *Overlay) Shadowed(key string) bool {
	_, ok := o.env(key)
	return ok
}
