package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeStatistics_Consistency(t *testing.T) {
	now := time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC)
	actions := []Action{ActionCreate, ActionUpdate, ActionDelete}

	var entries []Entry
	for i := 0; i < 40; i++ {
		entries = append(entries, Entry{
			Action:    actions[i%3],
			Timestamp: now.Add(-time.Duration(i) * 7 * time.Hour),
		})
	}

	st := ComputeStatistics(entries, now, time.UTC)
	assert.Equal(t, 40, st.Total)
	assert.Equal(t, st.Total, st.Creates+st.Updates+st.Deletes)
	assert.LessOrEqual(t, st.Today, st.ThisWeek)
	assert.LessOrEqual(t, st.ThisWeek, st.Total)
	// 0h and 7h ago fall on 2024-05-20; 14h ago is the previous day.
	assert.Equal(t, 2, st.Today)
	// i*7h <= 168h for i = 0..24.
	assert.Equal(t, 25, st.ThisWeek)
}

func TestComputeStatistics_TodayUsesLocalCalendarDate(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*3600)
	// 2024-05-20 01:00 in Bangkok.
	now := time.Date(2024, 5, 19, 18, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Action: ActionCreate, Timestamp: time.Date(2024, 5, 19, 17, 30, 0, 0, time.UTC)}, // 00:30 local, today
		{Action: ActionCreate, Timestamp: time.Date(2024, 5, 19, 16, 30, 0, 0, time.UTC)}, // 23:30 local, yesterday
	}

	assert.Equal(t, 1, ComputeStatistics(entries, now, bangkok).Today)
	assert.Equal(t, 2, ComputeStatistics(entries, now, time.UTC).Today)
}

func TestComputeStatistics_Empty(t *testing.T) {
	assert.Equal(t, Statistics{}, ComputeStatistics(nil, time.Now(), nil))
}
