// Package history serializes a repair order's append-only status log into the
// notes cell of its spreadsheet row. The sheet has no structured columns for
// history, so entries ride along inside the free-text cell using a marker
// format:
//
//	HISTORY:<JSON array>|NOTES:<free text>
//
// A cell without a marker is all free text. Decoding fails open: a cell whose
// embedded JSON no longer parses is treated as plain notes and logged, never
// surfaced as an error, because a corrupt cell must not make the whole row
// unreadable.
package history

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/skylinemro/ro-dashboard/internal/domain"
)

const (
	historyMarker = "HISTORY:"
	notesMarker   = "|NOTES:"

	// MaxEntries bounds the embedded log so the cell cannot grow without
	// limit. Older entries are discarded permanently on encode.
	MaxEntries = 20

	// cellDateFormat is the compact day-level representation used inside
	// the cell ("3/7/25"). Sub-day precision is intentionally lost.
	cellDateFormat = "1/2/06"
)

// cellEntry is the JSON shape of one entry inside the cell. Dates travel as
// compact strings, so it differs from domain.StatusEntry.
type cellEntry struct {
	Status       string   `json:"status"`
	Date         string   `json:"date"`
	User         string   `json:"user"`
	Notes        string   `json:"notes,omitempty"`
	Cost         *float64 `json:"cost,omitempty"`
	DeliveryDate string   `json:"deliveryDate,omitempty"`
}

// Codec encodes and decodes notes cells. The zero value is usable; Log
// receives the fail-open warning on corrupt cells.
type Codec struct {
	Log zerolog.Logger
}

// Decode splits a notes cell into its free-text notes and structured history.
//
// Cells without the HISTORY marker return the whole text as notes with no
// history. Cells with a marker but unparseable JSON also return the raw text
// as notes (fail open) and log a warning.
func (c Codec) Decode(cell string) (notes string, entries []domain.StatusEntry) {
	if !strings.HasPrefix(cell, historyMarker) {
		return cell, nil
	}
	payload := cell[len(historyMarker):]

	// The notes marker cannot be searched for textually: entry notes are
	// user text and may themselves contain "|NOTES:", which JSON does not
	// escape. Decode the array first and take the marker positionally from
	// where the JSON ends.
	dec := json.NewDecoder(strings.NewReader(payload))
	var raw []cellEntry
	if err := dec.Decode(&raw); err != nil {
		c.Log.Warn().Err(err).Msg("history: unparsable history cell, falling back to raw notes")
		return cell, nil
	}
	rest := payload[dec.InputOffset():]
	if !strings.HasPrefix(rest, notesMarker) {
		c.Log.Warn().Msg("history: missing notes marker after history array, falling back to raw notes")
		return cell, nil
	}
	notes = rest[len(notesMarker):]

	entries = make([]domain.StatusEntry, 0, len(raw))
	for _, e := range raw {
		entry := domain.StatusEntry{
			Status: e.Status,
			User:   e.User,
			Notes:  e.Notes,
			Cost:   e.Cost,
		}
		if d, ok := parseCellDate(e.Date); ok {
			entry.Date = d
		}
		if d, ok := parseCellDate(e.DeliveryDate); ok {
			entry.DeliveryDate = &d
		}
		entries = append(entries, entry)
	}
	return notes, entries
}

// Encode combines free-text notes and a history log back into one cell.
//
// An empty history returns the notes untouched, so rows that never had a
// structured log carry no marker overhead. Otherwise only the most recent
// MaxEntries entries are kept, in order.
func (c Codec) Encode(notes string, entries []domain.StatusEntry) string {
	if len(entries) == 0 {
		return notes
	}
	if len(entries) > MaxEntries {
		entries = entries[len(entries)-MaxEntries:]
	}

	raw := make([]cellEntry, 0, len(entries))
	for _, e := range entries {
		ce := cellEntry{
			Status: e.Status,
			Date:   e.Date.Format(cellDateFormat),
			User:   e.User,
			Notes:  e.Notes,
			Cost:   e.Cost,
		}
		if e.DeliveryDate != nil {
			ce.DeliveryDate = e.DeliveryDate.Format(cellDateFormat)
		}
		raw = append(raw, ce)
	}

	// Marshaling []cellEntry cannot fail; the fields are plain values.
	buf, _ := json.Marshal(raw)
	return historyMarker + string(buf) + notesMarker + notes
}

// parseCellDate reads the compact cell format, with ISO-8601 accepted for
// cells written by older clients.
func parseCellDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if d, err := time.Parse(cellDateFormat, s); err == nil {
		return d, true
	}
	if d, err := time.Parse(time.RFC3339, s); err == nil {
		return d, true
	}
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d, true
	}
	return time.Time{}, false
}
