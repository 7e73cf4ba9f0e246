package tracker_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okorolev/sleepjournal/tracker"
)

// ─────────────────────────────────────────────────────────────────────────────
// FormatDuration
// ─────────────────────────────────────────────────────────────────────────────

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int64
		want    string
	}{
		{0, ""},
		{45, "45s"},
		{60, "1m"},
		{90, "1m 30s"},
		{3600, "1h"},
		{3660, "1h 1m"},
		{5445, "1h 30m 45s"},
		{5455, "1h 30m 55s"},
		{28800, "8h"},
		{7*3600 + 59*60 + 1, "7h 59m 1s"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, tracker.FormatDuration(c.seconds), "seconds=%d", c.seconds)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Journal rendering
// ─────────────────────────────────────────────────────────────────────────────

func TestJournal_NoSessions(t *testing.T) {
	tr, _ := registered(t)

	_, err := tr.Journal(context.Background(), userID)
	assert.ErrorIs(t, err, tracker.ErrNoSessions)
}

func TestJournal_SingleClosedSession(t *testing.T) {
	tr, clock := registered(t)
	ctx := context.Background()

	// Clock starts at 2026-03-01 23:30:00 UTC.
	require.NoError(t, tr.BeginSession(ctx, userID))
	clock.Advance(8 * time.Hour)
	require.NoError(t, tr.EndSession(ctx, userID))
	require.NoError(t, tr.SetQuality(ctx, userID, 8))
	require.NoError(t, tr.SetNote(ctx, userID, "deep sleep"))

	journal, err := tr.Journal(ctx, userID)
	require.NoError(t, err)

	want := strings.Join([]string{
		"1. Start: 2026-03-01 23:30:00",
		"End: 2026-03-02 07:30:00",
		"Duration: 8h",
		"Quality: 8",
		"Notes: deep sleep",
	}, "\n")
	assert.Equal(t, want, journal)
}

func TestJournal_OpenSessionShowsNoData(t *testing.T) {
	tr, _ := registered(t)
	ctx := context.Background()

	require.NoError(t, tr.BeginSession(ctx, userID))

	journal, err := tr.Journal(ctx, userID)
	require.NoError(t, err)

	assert.Contains(t, journal, "Start: 2026-03-01 23:30:00")
	assert.Contains(t, journal, "End: no data")
	assert.Contains(t, journal, "Duration: no data")
	assert.Contains(t, journal, "Quality: no data")
	assert.Contains(t, journal, "Notes: no data")
}

func TestJournal_OrderedBlocks(t *testing.T) {
	tr, clock := registered(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, tr.BeginSession(ctx, userID))
		clock.Advance(8 * time.Hour)
		require.NoError(t, tr.EndSession(ctx, userID))
		clock.Advance(16 * time.Hour)
	}

	journal, err := tr.Journal(ctx, userID)
	require.NoError(t, err)

	blocks := strings.Split(journal, "\n\n")
	require.Len(t, blocks, 3)
	assert.True(t, strings.HasPrefix(blocks[0], "1. Start: 2026-03-01"))
	assert.True(t, strings.HasPrefix(blocks[1], "2. Start: 2026-03-02"))
	assert.True(t, strings.HasPrefix(blocks[2], "3. Start: 2026-03-03"))
}

func TestJournal_ZeroDurationRendersEmpty(t *testing.T) {
	tr, _ := registered(t)
	ctx := context.Background()

	// Begin and end on the same clock tick: duration is zero seconds.
	require.NoError(t, tr.BeginSession(ctx, userID))
	require.NoError(t, tr.EndSession(ctx, userID))

	journal, err := tr.Journal(ctx, userID)
	require.NoError(t, err)
	assert.Contains(t, journal, "Duration: \n")
}
