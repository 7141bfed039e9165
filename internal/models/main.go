// Package models defines the core data structures for journals, their entries
// and the blobs kept by the reference store.
package models

import "time"

// Entry is a single line item of a journal.
type Entry struct {
	// ID is the unique identifier for the entry.
	ID string `json:"id"`
	// Content is the user-provided text of the entry.
	Content string `json:"content"`
	// Timestamp is the creation time of the entry. It never changes.
	Timestamp time.Time `json:"timestamp"`
}

// Journal is the root aggregate published to the blob store.
type Journal struct {
	// ID is the public identifier, the hex SHA-1 of PrivateKey.
	ID string `json:"id"`
	// PrivateKey is the capability token. Whoever holds it can read and write the journal.
	PrivateKey string `json:"privateKey"`
	// Title is the human label of the journal.
	Title string `json:"title"`
	// Entries are kept in append order.
	Entries []Entry `json:"entries"`
	// CreatedAt is the creation time of the journal.
	CreatedAt time.Time `json:"createdAt"`
	// ModifiedAt is updated on every successful publish.
	ModifiedAt time.Time `json:"modifiedAt"`
}

// ExportedJournal is the portable projection of a Journal without its PrivateKey.
type ExportedJournal struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Entries    []Entry   `json:"entries"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Blob is an opaque payload stored at a public key address.
type Blob struct {
	// PublicKey is the storage address.
	PublicKey string
	// Data is the stored payload, returned byte for byte.
	Data []byte
	// UpdatedAt is the unix time of the last write.
	UpdatedAt int64
}

// Clone returns a deep copy of the journal.
func (j Journal) Clone() Journal {
	j.Entries = cloneEntries(j.Entries)
	return j
}

// Clone returns a deep copy of the exported journal.
func (e ExportedJournal) Clone() ExportedJournal {
	e.Entries = cloneEntries(e.Entries)
	return e
}

// EntryIndex returns the position of the entry with the given id, or -1.
func (j *Journal) EntryIndex(entryID string) int {
	for i, e := range j.Entries {
		if e.ID == entryID {
			return i
		}
	}
	return -1
}

func cloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
