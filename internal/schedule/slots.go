package schedule

import "strings"

// SlotInterval is the gap in minutes between consecutive appointment
// slots for a doctor taking maxPerHour bookings an hour.
func SlotInterval(maxPerHour int) int {
	if maxPerHour <= 0 {
		return 60
	}
	step := 60 / maxPerHour
	if step < 1 {
		step = 1
	}
	return step
}

// GenerateSlots lists HH:mm slots from open up to but excluding close.
// Unparseable bounds or open >= close give no slots.
func GenerateSlots(open, close string, maxPerHour int) []string {
	start, ok := ParseClock(open)
	if !ok {
		return nil
	}
	end, ok := ParseClock(close)
	if !ok {
		return nil
	}
	step := SlotInterval(maxPerHour)

	var slots []string
	for m := start; m < end; m += step {
		slots = append(slots, FormatClock(m))
	}
	return slots
}

// FilterSlots drops slots that are booked, and every slot in an hour
// that already holds maxPerHour bookings. A non-positive capacity is
// treated as one per hour.
func FilterSlots(all, booked []string, maxPerHour int) []string {
	capacity := maxPerHour
	if capacity <= 0 {
		capacity = 1
	}

	taken := make(map[string]bool, len(booked))
	perHour := make(map[string]int)
	for _, b := range booked {
		taken[b] = true
		perHour[hourOf(b)]++
	}

	out := make([]string, 0, len(all))
	for _, s := range all {
		if taken[s] || perHour[hourOf(s)] >= capacity {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Available reports whether slot can still take a booking.
func Available(slot string, booked []string, maxPerHour int) bool {
	return len(FilterSlots([]string{slot}, booked, maxPerHour)) == 1
}

func hourOf(slot string) string {
	h, _, _ := strings.Cut(strings.TrimSpace(slot), ":")
	if len(h) == 1 {
		h = "0" + h
	}
	return h
}
