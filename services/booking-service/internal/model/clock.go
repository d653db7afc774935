package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a time of day in whole minutes since midnight.
type Clock int

const minutesPerDay = 24 * 60

// ParseClock accepts "HH:MM" and "HH:MM:SS" (seconds must be zero).
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 || len(parts[0]) != 2 {
		return 0, fmt.Errorf("invalid time %q: bad hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid time %q: bad minute", s)
	}
	if len(parts) == 3 && parts[2] != "00" {
		return 0, fmt.Errorf("invalid time %q: seconds are not supported", s)
	}
	return Clock(h*60 + m), nil
}

func (c Clock) Valid() bool { return c >= 0 && c < minutesPerDay }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) Add(minutes int) Clock { return c + Clock(minutes) }

// Duration converts c to the offset from midnight, the form used by Postgres TIME values.
func (c Clock) Duration() time.Duration { return time.Duration(c) * time.Minute }

// ClockFromDuration truncates d to whole minutes.
func ClockFromDuration(d time.Duration) Clock { return Clock(d / time.Minute) }

func (c Clock) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Clock) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

const DateLayout = "2006-01-02"

// ParseDate parses YYYY-MM-DD into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

// DateOf drops the clock part of t, keeping its calendar day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ISOWeekday maps a date to Monday = 0 ... Sunday = 6.
func ISOWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
