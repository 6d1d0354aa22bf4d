package utils

import (
	"time"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// TodayIST returns the current calendar date in India as a UTC midnight.
func TodayIST() time.Time {
	return DateOf(time.Now().In(IndiaLocation))
}

// DateOf strips the time of day, keeping the calendar date of t.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD valuation date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// SessionExpiry returns when a Kite access token issued at t stops being
// valid: 06:00 IST on the following day.
func SessionExpiry(t time.Time) time.Time {
	now := t.In(IndiaLocation)
	return time.Date(now.Year(), now.Month(), now.Day()+1, 6, 0, 0, 0, IndiaLocation)
}
