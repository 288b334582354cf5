package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/rlm/internal/adapters/driven/config/values"
	storagefile "github.com/custodia-labs/rlm/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// HomeEnv overrides the rlm data directory.
const HomeEnv = "RLM_HOME"

// DefaultDir returns $RLM_HOME, or ~/.rlm when it is unset.
func DefaultDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".rlm"), nil
}

// FileName is the settings file inside the data directory.
const FileName = "config.toml"

// ConfigStore keeps settings in a TOML file. Tables are exposed as dotted
// keys, so "[search] alpha = 0.6" is read as "search.alpha". Every Set
// rewrites the file.
type ConfigStore struct {
	*values.Map

	writeMu  sync.Mutex
	filePath string
}

// NewConfigStore opens config.toml in configDir, creating the directory.
// An empty configDir means DefaultDir.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		Map:      values.New(nil),
		filePath: filepath.Join(configDir, FileName),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadFile decodes a config file into dotted keys without opening a store.
// A missing file yields an empty map.
func ReadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	var loaded map[string]any
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return flattenMap(loaded, ""), nil
}

// Set stores value and rewrites the file. The value is dropped again when
// the write fails.
func (s *ConfigStore) Set(key string, value any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev, existed := s.Put(key, value)
	if err := s.write(); err != nil {
		s.Restore(key, prev, existed)
		return err
	}
	return nil
}

// Save rewrites the file from memory.
func (s *ConfigStore) Save() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.write()
}

func (s *ConfigStore) write() error {
	data, err := toml.Marshal(nestMap(s.Snapshot()))
	if err != nil {
		return err
	}
	return storagefile.WriteFileAtomic(s.filePath, data, 0600)
}

// Load replaces the in-memory values with the file's.
func (s *ConfigStore) Load() error {
	loaded, err := ReadFile(s.filePath)
	if err != nil {
		return err
	}
	s.Replace(loaded)
	return nil
}

// flattenMap converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}

// nestMap is the inverse of flattenMap, so the file keeps its tables.
// A key that collides with a scalar is written as a quoted dotted key.
func nestMap(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	// Shorter keys first, so scalars claim their slot before deeper keys.
	sort.Slice(keys, func(i, j int) bool {
		return strings.Count(keys[i], ".") < strings.Count(keys[j], ".") ||
			(strings.Count(keys[i], ".") == strings.Count(keys[j], ".") && keys[i] < keys[j])
	})

	root := make(map[string]any)
	for _, key := range keys {
		parts := strings.Split(key, ".")
		node := root
		placed := true
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part]
			if !ok {
				next := make(map[string]any)
				node[part] = next
				node = next
				continue
			}
			next, isMap := child.(map[string]any)
			if !isMap {
				placed = false
				break
			}
			node = next
		}
		last := parts[len(parts)-1]
		if _, taken := node[last]; !placed || taken {
			root[key] = flat[key]
			continue
		}
		node[last] = flat[key]
	}
	return root
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}
