package schedule

import (
	"time"

	"vitalrite-api/internal/model"
)

// NextTrigger returns the instant dose i of r should fire for user u.
// ok is false when the dose must not be scheduled: index out of range,
// an unparseable date or snooze, or an instant at or before now.
// Callers treat !ok as "skip", never as an error.
func NextTrigger(r *model.Reminder, i int, u *model.User, now time.Time, loc *time.Location) (at time.Time, ok bool) {
	if i < 0 || i >= len(r.Times) {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(model.DateLayout, r.Date, loc)
	if err != nil {
		return time.Time{}, false
	}

	if s := r.Snooze(i); s != nil {
		m, ok := ParseClock(*s)
		if !ok {
			return time.Time{}, false
		}
		at = atMinute(day, m)
	} else {
		at = atMinute(day, Resolve(r.Times[i], u))
	}

	if !at.After(now) {
		return time.Time{}, false
	}
	return at, true
}

func atMinute(day time.Time, m int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), m/60, m%60, 0, 0, day.Location())
}

// SnoozeMinutes is how far a Snooze pushes dose label: a "Before Lunch"
// dose comes back after 5 minutes, everything else after 10.
func SnoozeMinutes(label string) int {
	if label == BeforeLunch {
		return 5
	}
	return 10
}

// SnoozeUntil is the HH:mm override stored for a dose snoozed at now.
func SnoozeUntil(label string, now time.Time) string {
	return now.Add(time.Duration(SnoozeMinutes(label)) * time.Minute).Format(model.ClockLayout)
}
