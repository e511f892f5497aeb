package storage

import "errors"

// NoOpDB backs a disabled journal, e.g. for a dry run or when no storage
// directory is configured. Journal checks for it and skips recording, so its
// methods only matter to callers that use a KeyValue directly.
type NoOpDB struct{}

// Put fails: a disabled journal keeps nothing.
func (n *NoOpDB) Put(KVEntry) error {
	return errors.New("the journal is disabled: nothing was recorded")
}

// Read never finds a record.
func (n *NoOpDB) Read(key []byte) (KVEntry, error) {
	return KVEntry{}, ErrNotFound
}

// Cleanup has nothing to reclaim.
func (n *NoOpDB) Cleanup() error {
	return nil
}

// Close has nothing to release.
func (n *NoOpDB) Close() error {
	return nil
}
