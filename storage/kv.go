package storage

import "time"

// KVConfig says where the journal keeps its records and for how long.
type KVConfig struct {
	StorageDirPath string
	// KeyTTLDuration is how long a record lives. Zero keeps records forever.
	KeyTTLDuration time.Duration
}

// KeyValue is the store behind a Journal. One entry holds one sent
// message's Record.
type KeyValue interface {
	// Put writes a record, replacing one with the same key.
	Put(KVEntry) error
	// Read returns the record stored under key, or ErrNotFound.
	Read(key []byte) (KVEntry, error)
	// Cleanup reclaims the space of records whose TTL has run out.
	Cleanup() error
	// Close releases the store. The journal calls it once, after Cleanup.
	Close() error
}

// KVEntry is a journal record as stored: the hashed Message-ID and the
// serialized Record.
type KVEntry struct {
	Key   []byte
	Value []byte
}
