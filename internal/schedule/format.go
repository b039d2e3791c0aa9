package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatTemperature renders a reading with at least one decimal place,
// e.g. 20 -> "20.0", 21.25 -> "21.25".
func FormatTemperature(t float64) string {
	s := strconv.FormatFloat(t, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatCountdown renders a remaining duration as "MM:SS". Minutes wrap
// at 60; countdowns here never reach an hour.
func FormatCountdown(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	secs := int64(remaining / time.Second)
	return fmt.Sprintf("%02d:%02d", (secs/60)%60, secs%60)
}

// sunriseLayouts are the ISO-8601 forms accepted from the sun sensor.
var sunriseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseSunrise extracts "HH:MM" from an ISO-8601 timestamp, keeping the
// wall clock of the offset written in the value.
func ParseSunrise(value string) (string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range sunriseLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
}

// burstHours are the hours whose first five minutes run the pump in winter.
var burstHours = map[int]bool{2: true, 5: true, 8: true, 11: true, 14: true, 17: true, 20: true, 23: true}

// InBurstWindow reports whether t falls in one of the eight daily
// HH:00-HH:05 anti-freeze bursts, both minutes inclusive.
func InBurstWindow(t time.Time) bool {
	return burstHours[t.Hour()] && t.Minute() <= 5
}
