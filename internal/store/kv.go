package store

import "errors"

// Storage keys. The layout is flat and string-keyed: one record for the
// current user, one JSON array each for friends and pings, and one counter
// record per calendar date.
const (
	KeyCurrentUser = "current_user"
	KeyFriends     = "friends"
	KeyPings       = "pings"
	KeyOutbox      = "outbox"
	StatsPrefix    = "stats_"
)

// ErrNotFound is returned by typed stores when a record does not exist.
var ErrNotFound = errors.New("record not found")

// KV is the device-local key-value store. Values are JSON documents; writes
// replace the whole value under a key. There is no cross-key atomicity.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(key string) ([]byte, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Keys returns all keys with the given prefix.
	Keys(prefix string) ([]string, error)
	// Close releases the underlying resources.
	Close() error
}

// ClearAll removes every key from the store. Used when the account is
// deleted.
func ClearAll(kv KV) error {
	keys, err := kv.Keys("")
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := kv.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
