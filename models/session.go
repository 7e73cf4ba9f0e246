package models

import "time"

// SleepSession represents a row in the "sleep_sessions" table — one sleep
// interval for a user, from begin to end. Fields map 1-to-1 with columns;
// nullable columns are pointers, nil meaning the column is NULL.
//
// A session is "open" while EndTime is nil. Duration is whole seconds and is
// present iff EndTime is present; it always equals EndTime − StartTime.
// Quality, when present, is an integer in [1,10].
type SleepSession struct {
	ID        int64
	UserID    int64
	StartTime time.Time
	EndTime   *time.Time
	Duration  *int64
	Quality   *int64
}

// Open reports whether the session has no end time recorded yet.
func (s *SleepSession) Open() bool { return s.EndTime == nil }

// JournalEntry is a session joined with its note text, as read back for the
// journal report. NoteText is nil when the note row still holds NULL.
type JournalEntry struct {
	Session  SleepSession
	NoteText *string
}
