package memory

import (
	"github.com/custodia-labs/rlm/internal/adapters/driven/config/values"
	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore holds settings for --ephemeral runs and tests. Nothing
// reaches disk, so Save and Load do nothing.
type ConfigStore struct {
	*values.Map
}

// NewConfigStore returns an empty store.
func NewConfigStore() *ConfigStore {
	return NewConfigStoreFrom(nil)
}

// NewConfigStoreFrom returns a store holding a copy of seed.
func NewConfigStoreFrom(seed map[string]any) *ConfigStore {
	return &ConfigStore{Map: values.New(seed)}
}

func (s *ConfigStore) Set(key string, value any) error {
	s.Put(key, value)
	return nil
}

func (s *ConfigStore) Save() error { return nil }
func (s *ConfigStore) Load() error { return nil }

// Path names the store in log lines.
func (s *ConfigStore) Path() string { return ":memory:" }
