package activity

import "time"

const weekWindow = 7 * 24 * time.Hour

// ComputeStatistics aggregates entries relative to now.
// Today compares calendar dates in loc; ThisWeek is a rolling 7-day window.
func ComputeStatistics(entries []Entry, now time.Time, loc *time.Location) Statistics {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	ty, tm, td := now.Date()
	weekAgo := now.Add(-weekWindow)

	var out Statistics
	for _, e := range entries {
		out.Total++

		ts := e.Timestamp.In(loc)
		if y, m, d := ts.Date(); y == ty && m == tm && d == td {
			out.Today++
		}
		if !ts.Before(weekAgo) {
			out.ThisWeek++
		}

		switch e.Action {
		case ActionCreate:
			out.Creates++
		case ActionUpdate:
			out.Updates++
		case ActionDelete:
			out.Deletes++
		}
	}
	return out
}
