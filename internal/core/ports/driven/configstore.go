package driven

// ConfigStore is a flat key/value view of config.toml. Keys are dotted
// paths ("search.hybrid_alpha", "domains.auth"); tables in the file map
// to prefixes.
//
// Typed getters return the zero value when the key is missing or holds
// another type, so callers apply their own defaults.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	// GetFloat widens integers, so "alpha = 1" reads as 1.0.
	GetFloat(key string) float64
	GetStringSlice(key string) []string

	// Keys lists the keys under prefix in sorted order.
	Keys(prefix string) []string

	// Set writes through to disk.
	Set(key string, value any) error
	Save() error
	Load() error
	Path() string
}
