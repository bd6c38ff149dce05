package media

import "time"

// RenameResult is what the external rename step reports back for one file.
// It only lives for the duration of processing a single queue item.
type RenameResult struct {
	Source      string
	Destination string
	// Renamed is false when the tool exited cleanly but reported no rename,
	// e.g. the file was already in place.
	Renamed bool
}

// HistoryEntry is a completed pipeline outcome kept for the operator.
type HistoryEntry struct {
	ID          int64     `json:"id"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	// DuplicateOf is set when the file was deleted as a byte-identical
	// duplicate of an earlier rename.
	DuplicateOf string    `json:"duplicateOf,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
