// Package file provides the TOML configuration store.
//
// The file lives at $RLM_HOME/config.toml (default ~/.rlm/config.toml) and is
// written atomically with 0600 permissions, since it may hold an API key.
package file
