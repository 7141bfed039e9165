package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/atinyakov/journalon/internal/common"
	"github.com/atinyakov/journalon/internal/models"
)

// MarshalJournal serializes a journal into the blob format published to the store.
func MarshalJournal(j models.Journal) ([]byte, error) {
	if j.Entries == nil {
		j.Entries = []models.Entry{}
	}
	data, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("marshal journal %s: %w", j.ID, err)
	}
	return data, nil
}

// UnmarshalJournal parses a blob written by MarshalJournal, or by any client
// speaking the same format.
func UnmarshalJournal(data []byte) (*models.Journal, error) {
	var j models.Journal
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal journal: %w", err)
	}
	if j.ID == "" {
		return nil, &common.ValidationError{Field: "id", Message: "missing"}
	}
	if j.Entries == nil {
		j.Entries = []models.Entry{}
	}
	return &j, nil
}

// MarshalExport renders the export file: indented with two spaces plus a
// trailing newline.
func MarshalExport(e models.ExportedJournal) ([]byte, error) {
	if e.Entries == nil {
		e.Entries = []models.Entry{}
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export %s: %w", e.ID, err)
	}
	return append(data, '\n'), nil
}

// UnmarshalExport parses an export file. A privateKey present in the file is ignored.
func UnmarshalExport(data []byte) (*models.ExportedJournal, error) {
	var e models.ExportedJournal
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("invalid JSON file: %w", err)
	}
	if e.ID == "" {
		return nil, &common.ValidationError{Field: "id", Message: "missing"}
	}
	if e.Entries == nil {
		e.Entries = []models.Entry{}
	}
	return &e, nil
}

// ExportFileName returns the suggested file name for an exported journal, for
// example "journal-my_trip_2024.json" for "My Trip 2024".
func ExportFileName(title string) string {
	var b strings.Builder
	b.WriteString("journal-")
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	b.WriteString(".json")
	return b.String()
}
