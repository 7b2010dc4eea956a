package driven

// ConfigStore is a flat key/value view of the configuration. Keys use dot
// notation ("retrieval.top_k"); nested files are flattened on load.
//
// The typed getters never fail. A missing key or a value that cannot be
// converted yields the zero value, and numeric strings count as numbers so
// quoted values and environment variables behave like native ones.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set records a value. File-backed stores write through immediately.
	Set(key string, value any) error
	Save() error
	Load() error

	// Path identifies the backing file, or ":memory:".
	Path() string
}
