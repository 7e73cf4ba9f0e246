package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/okorolev/sleepjournal/models"
	"github.com/okorolev/sleepjournal/repo"
)

const (
	noData     = "no data"
	timeLayout = "2006-01-02 15:04:05"
)

// Journal returns the user's sleep report: one numbered block per session,
// ordered by ascending session id (equivalently, by start time). Missing
// values render as "no data"; a zero-length duration renders as an empty
// string. With zero sessions it returns ErrNoSessions — the gateway turns
// that into its "no records yet" reply.
func (t *Tracker) Journal(ctx context.Context, userID int64) (string, error) {
	entries, err := repo.NewSessionRepo(t.db).ListWithNotes(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("tracker: journal for user %d: %w", userID, err)
	}
	if len(entries) == 0 {
		return "", ErrNoSessions
	}

	blocks := make([]string, 0, len(entries))
	for i, e := range entries {
		blocks = append(blocks, renderEntry(i+1, e))
	}
	return strings.Join(blocks, "\n\n"), nil
}

func renderEntry(ordinal int, e models.JournalEntry) string {
	s := e.Session

	end := noData
	if s.EndTime != nil {
		end = s.EndTime.Format(timeLayout)
	}

	duration := noData
	if s.Duration != nil {
		duration = FormatDuration(*s.Duration)
	}

	quality := noData
	if s.Quality != nil {
		quality = fmt.Sprintf("%d", *s.Quality)
	}

	note := noData
	if e.NoteText != nil && *e.NoteText != "" {
		note = *e.NoteText
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d. Start: %s\n", ordinal, s.StartTime.Format(timeLayout))
	fmt.Fprintf(&b, "End: %s\n", end)
	fmt.Fprintf(&b, "Duration: %s\n", duration)
	fmt.Fprintf(&b, "Quality: %s\n", quality)
	fmt.Fprintf(&b, "Notes: %s", note)
	return b.String()
}

// FormatDuration renders a whole-second duration as "{h}h {m}m {s}s",
// omitting any zero-valued unit and preserving h-m-s order. Zero renders as
// an empty string, not "0s".
func FormatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if secs > 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}
