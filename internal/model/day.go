package model

import (
	"fmt"
	"strings"
	"time"
)

// DayLayout is the calendar day format used in every persisted file.
const DayLayout = "2006-01-02"

var frenchDays = [...]string{"Dimanche", "Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi", "Samedi"}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayKey formats t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDay parses the first ten characters of value as YYYY-MM-DD in loc.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) > len(DayLayout) {
		value = value[:len(DayLayout)]
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DayLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

// DayName returns the French weekday name.
func DayName(t time.Time) string {
	return frenchDays[t.Weekday()]
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DaysBetween counts whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
