package storage

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Record summarizes one message that a transport accepted.
type Record struct {
	MessageID string    `json:"messageID"`
	From      string    `json:"from"`
	To        []string  `json:"to"`
	Cc        []string  `json:"cc,omitempty"`
	Bcc       []string  `json:"bcc,omitempty"`
	Subject   string    `json:"subject"`
	Transport string    `json:"transport"`
	SentAt    time.Time `json:"sentAt"`
}

// Journal keeps a Record per sent message, keyed by Message-ID. It's a log,
// not an outbox: nothing is ever resent from it.
type Journal struct {
	db KeyValue
}

// NewJournal returns a Journal backed by db. A *NoOpDB turns the journal
// off.
func NewJournal(db KeyValue) *Journal {
	return &Journal{db: db}
}

// Enabled reports whether records are actually kept.
func (j *Journal) Enabled() bool {
	_, noop := j.db.(*NoOpDB)
	return !noop
}

// journalKey hashes the Message-ID so keys have a fixed length.
func journalKey(messageID string) []byte {
	k := sha256.New()
	k.Write([]byte(messageID))
	return k.Sum(nil)
}

// Add stores r, replacing any record with the same Message-ID. It does
// nothing when the journal is disabled.
func (j *Journal) Add(r Record) error {
	if !j.Enabled() {
		log.Debug().Str("messageID", r.MessageID).Msg("journal disabled: not recording")
		return nil
	}
	if r.MessageID == "" {
		return fmt.Errorf("can't record a message without a Message-ID")
	}

	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("can't serialize the record for %v: %w", r.MessageID, err)
	}

	if err := j.db.Put(KVEntry{Key: journalKey(r.MessageID), Value: b}); err != nil {
		return fmt.Errorf("can't record %v: %w", r.MessageID, err)
	}
	return nil
}

// Lookup returns the record for messageID, or ErrNotFound.
func (j *Journal) Lookup(messageID string) (Record, error) {
	e, err := j.db.Read(journalKey(messageID))
	if err != nil {
		return Record{}, err
	}

	var r Record
	if err := json.Unmarshal(e.Value, &r); err != nil {
		return Record{}, fmt.Errorf("can't parse the record for %v: %w", messageID, err)
	}
	return r, nil
}

// Close runs a cleanup pass and closes the store.
func (j *Journal) Close() error {
	if err := j.db.Cleanup(); err != nil {
		log.Warn().Err(err).Msg("could not clean up the journal")
	}
	return j.db.Close()
}
