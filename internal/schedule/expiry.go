package schedule

import (
	"strconv"
	"strings"
	"time"

	"vitalrite-api/internal/model"
)

// MaxDays is the longest course among meds. A noOfDays that is not a
// number counts as zero.
func MaxDays(meds []model.Medicine) int {
	longest := 0
	for _, m := range meds {
		n, err := strconv.Atoi(strings.TrimSpace(m.NoOfDays))
		if err != nil {
			continue
		}
		if n > longest {
			longest = n
		}
	}
	return longest
}

// ExpiryDate adds days to start (yyyy-MM-dd).
func ExpiryDate(start string, days int) (string, error) {
	d, err := time.Parse(model.DateLayout, start)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, days).Format(model.DateLayout), nil
}

// Expired reports whether p's expiry date is today or earlier. An
// expiry that does not parse never expires.
func Expired(p *model.Prescription, today string) bool {
	exp, err := time.Parse(model.DateLayout, p.ExpiryDate)
	if err != nil {
		return false
	}
	t, err := time.Parse(model.DateLayout, today)
	if err != nil {
		return false
	}
	return !exp.After(t)
}

// IsActive is true for a prescription flagged active whose expiry is
// strictly after today.
func IsActive(p *model.Prescription, today string) bool {
	return p.Active && !Expired(p, today)
}

// IsFutureDate reports whether date (yyyy-MM-dd) is strictly after today.
func IsFutureDate(date, today string) bool {
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return false
	}
	t, err := time.Parse(model.DateLayout, today)
	if err != nil {
		return false
	}
	return d.After(t)
}

// Today formats now's calendar date in loc.
func Today(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(model.DateLayout)
}
