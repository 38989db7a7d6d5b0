package store

import "fmt"

// Open creates a KV backend by type name: "sqlite" (durable, default) or
// "memory".
func Open(storageType, path string) (KV, error) {
	switch storageType {
	case "", "sqlite":
		return OpenSQLite(path)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", storageType)
	}
}
