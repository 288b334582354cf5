// Package values is the flat, dotted-key settings map shared by the TOML
// and in-memory config stores.
package values

import (
	"maps"
	"math"
	"slices"
	"strings"
	"sync"
)

// Map is safe for concurrent use. Values keep the Go type they were
// stored or decoded with; the getters coerce between the numeric types
// TOML and callers produce.
type Map struct {
	mu sync.RWMutex
	m  map[string]any
}

// New copies initial into a new Map.
func New(initial map[string]any) *Map {
	m := make(map[string]any, len(initial))
	maps.Copy(m, initial)
	return &Map{m: m}
}

// Get returns the raw value under key.
func (v *Map) Get(key string) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.m[key]
	return val, ok
}

// GetString returns "" unless key holds a string.
func (v *Map) GetString(key string) string {
	val, _ := v.Get(key)
	s, _ := val.(string)
	return s
}

// GetBool returns false unless key holds a bool.
func (v *Map) GetBool(key string) bool {
	val, _ := v.Get(key)
	b, _ := val.(bool)
	return b
}

// GetInt accepts any integer type, and floats with no fractional part.
func (v *Map) GetInt(key string) int {
	val, _ := v.Get(key)
	switch n := val.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case int32:
		return int(n)
	case float64:
		if n == math.Trunc(n) {
			return int(n)
		}
	}
	return 0
}

// GetFloat widens integers.
func (v *Map) GetFloat(key string) float64 {
	val, _ := v.Get(key)
	switch n := val.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// GetStringSlice reads []string, or the []any TOML decodes arrays into.
// Non-string elements are skipped.
func (v *Map) GetStringSlice(key string) []string {
	val, _ := v.Get(key)
	switch s := val.(type) {
	case []string:
		return slices.Clone(s)
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Keys lists the keys starting with prefix, sorted.
func (v *Map) Keys(prefix string) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := make([]string, 0)
	for k := range v.m {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Put stores value and returns whatever was there before, so a failed
// write can be undone with Restore.
func (v *Map) Put(key string, value any) (prev any, existed bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	prev, existed = v.m[key]
	v.m[key] = value
	return prev, existed
}

// Restore undoes a Put.
func (v *Map) Restore(key string, prev any, existed bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if existed {
		v.m[key] = prev
	} else {
		delete(v.m, key)
	}
}

// Replace swaps in a new set of values.
func (v *Map) Replace(m map[string]any) {
	fresh := make(map[string]any, len(m))
	maps.Copy(fresh, m)
	v.mu.Lock()
	v.m = fresh
	v.mu.Unlock()
}

// Snapshot returns a copy of all values.
func (v *Map) Snapshot() map[string]any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return maps.Clone(v.m)
}
