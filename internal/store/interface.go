package store

import (
	"fmt"
	"path/filepath"
)

// Store is the durable key/value state of the client: the credential, the
// serialized identity and the last active conversation id. Values are opaque
// strings; callers decide how to parse them.
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
	Close() error
}

const (
	BackendSQLite = "sqlite"
	BackendYAML   = "yaml"
)

// Open creates the store selected by backend under dir.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case BackendSQLite, "":
		return OpenSQLite(filepath.Join(dir, "state.db"))
	case BackendYAML:
		return OpenYAML(filepath.Join(dir, "state.yml"))
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
}
