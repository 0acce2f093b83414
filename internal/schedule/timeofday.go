// Package schedule holds the date and clock arithmetic behind medicine
// reminders and appointment slots. Nothing in here touches storage or
// reads the wall clock; callers pass "now" in.
package schedule

import (
	"fmt"
	"strconv"
	"strings"

	"vitalrite-api/internal/model"
)

// Medicine time labels a prescription can carry.
const (
	BeforeBreakfast = "Before Breakfast"
	AfterBreakfast  = "After Breakfast"
	BeforeLunch     = "Before Lunch"
	AfterLunch      = "After Lunch"
	BeforeDinner    = "Before Dinner"
	AfterDinner     = "After Dinner"
	BeforeSleep     = "Before Sleep"
)

const (
	minutesPerDay = 24 * 60
	beforeOffset  = 15
	unknownLabel  = 8 * 60
)

type rule struct {
	anchor   func(u *model.User) string
	before   bool
	fallback int
}

func breakfast(u *model.User) string { return u.BreakfastTime }
func lunch(u *model.User) string     { return u.LunchTime }
func dinner(u *model.User) string    { return u.DinnerTime }
func sleep(u *model.User) string     { return u.SleepTime }

// fallbacks apply when the user never filled in the anchor.
var rules = map[string]rule{
	BeforeBreakfast: {breakfast, true, 8 * 60},
	AfterBreakfast:  {breakfast, false, 8*60 + 15},
	BeforeLunch:     {lunch, true, 13 * 60},
	AfterLunch:      {lunch, false, 13*60 + 15},
	BeforeDinner:    {dinner, true, 19 * 60},
	AfterDinner:     {dinner, false, 19*60 + 15},
	BeforeSleep:     {sleep, true, 22 * 60},
}

// Labels lists every recognised label in the order a day runs.
func Labels() []string {
	return []string{
		BeforeBreakfast, AfterBreakfast,
		BeforeLunch, AfterLunch,
		BeforeDinner, AfterDinner,
		BeforeSleep,
	}
}

// Resolve maps label to a minute of the day for user u (nil means no
// anchors). A "before" label that wraps past midnight stays on the same
// calendar day: a 00:05 breakfast gives a 23:50 Before Breakfast dose.
func Resolve(label string, u *model.User) int {
	r, ok := rules[label]
	if !ok {
		return unknownLabel
	}
	anchor := ""
	if u != nil {
		anchor = r.anchor(u)
	}
	m, ok := ParseClock(anchor)
	if !ok {
		return r.fallback
	}
	if !r.before {
		return m
	}
	return (m - beforeOffset + minutesPerDay) % minutesPerDay
}

// ResolveTime is Resolve rendered as HH:mm.
func ResolveTime(label string, u *model.User) string {
	return FormatClock(Resolve(label, u))
}

// ParseClock reads "HH:mm" (a single-digit hour is accepted) into
// minutes since midnight.
func ParseClock(s string) (int, bool) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(ms) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// FormatClock renders minutes since midnight as HH:mm, wrapping into a
// single day.
func FormatClock(m int) string {
	m %= minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
