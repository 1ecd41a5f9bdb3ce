package schedule

import "time"

// Season anchors day indices to calendar dates: day 1 is the epoch date.
// All date math funnels through this type so nothing else in the system does
// its own day arithmetic.
type Season struct {
	epoch time.Time
}

func NewSeason(epoch time.Time) Season {
	return Season{epoch: midnightUTC(epoch)}
}

func (s Season) Epoch() time.Time {
	return s.epoch
}

// DateOf converts a 1-based day index to its calendar date.
func (s Season) DateOf(day int) time.Time {
	return s.epoch.AddDate(0, 0, day-1)
}

// DayOn converts a point in time to its 1-based season day. Times before the
// epoch map to day 0 or lower.
func (s Season) DayOn(t time.Time) int {
	diff := midnightUTC(t).Sub(s.epoch)
	return int(diff/(24*time.Hour)) + 1
}

func midnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
