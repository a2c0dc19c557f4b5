package reminder

import "time"

// OffsetPolicy is the fixed set of days-until values at which a reminder
// should fire for an event kind. It is defined at process start and never
// mutated at runtime.
type OffsetPolicy []int

// DefaultOffsets is the standard reminder window: a week out, then daily from
// three days before until the day itself.
var DefaultOffsets = OffsetPolicy{7, 3, 2, 1, 0}

// Contains reports whether days is one of the offsets at which a reminder
// should fire.
func (p OffsetPolicy) Contains(days int) bool {
	for _, d := range p {
		if d == days {
			return true
		}
	}
	return false
}

const dayMillis = 24 * 60 * 60 * 1000

// DaysUntil returns the number of calendar days between now and target, both
// truncated to midnight in loc. The result is negative for past dates and 0
// on the exact calendar day regardless of the time-of-day component of
// either instant. The division is rounded up so that a short day across a
// DST switch still counts as a full day.
func DaysUntil(target, now time.Time, loc *time.Location) int {
	t := target.In(loc)
	n := now.In(loc)
	targetMidnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	nowMidnight := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)

	ms := targetMidnight.Sub(nowMidnight).Milliseconds()
	days := ms / dayMillis
	if ms%dayMillis > 0 {
		days++
	}
	return int(days)
}
