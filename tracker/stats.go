package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/okorolev/sleepjournal/repo"
)

// Stats summarises a user's recorded sleep. Duration figures cover closed
// sessions only; AverageQuality covers rated sessions only.
type Stats struct {
	Sessions       int
	Closed         int
	Rated          int
	TotalSleep     time.Duration
	AverageSleep   time.Duration
	AverageQuality float64
}

// Stats computes summary figures over all of the user's sessions.
// Returns ErrNoSessions when nothing has been recorded yet.
func (t *Tracker) Stats(ctx context.Context, userID int64) (*Stats, error) {
	sessions, err := repo.NewSessionRepo(t.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("tracker: stats for user %d: %w", userID, err)
	}
	if len(sessions) == 0 {
		return nil, ErrNoSessions
	}

	st := &Stats{Sessions: len(sessions)}
	var totalQuality int64
	for _, s := range sessions {
		if s.Duration != nil {
			st.Closed++
			st.TotalSleep += time.Duration(*s.Duration) * time.Second
		}
		if s.Quality != nil {
			st.Rated++
			totalQuality += *s.Quality
		}
	}

	if st.Closed > 0 {
		st.AverageSleep = st.TotalSleep / time.Duration(st.Closed)
	}
	if st.Rated > 0 {
		st.AverageQuality = float64(totalQuality) / float64(st.Rated)
	}
	return st, nil
}
