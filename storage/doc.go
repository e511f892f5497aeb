package storage

// storage contains the KeyValue interface for working with a persistent key/
// value store, an implementation for BadgerDB and a no-op implementation, plus
// the Journal, which records which messages were handed to a transport. The
// KeyValue implementations deal only in opaque binary data; the Journal gives
// that data its meaning.
