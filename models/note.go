package models

// Note represents a row in the "notes" table. Exactly one note exists per
// sleep session; it is created with NULL text in the same transaction as the
// session and each annotate call overwrites the text — latest write wins.
type Note struct {
	ID        int64
	SessionID int64
	Text      *string
}
