package schedule

import "errors"

var (
	// ErrInvalidClock is returned when a pivot is not a valid "HH:MM" time.
	ErrInvalidClock = errors.New("schedule: invalid clock time (want HH:MM)")

	// ErrInvalidDistribution is returned for a policy outside 1..5.
	ErrInvalidDistribution = errors.New("schedule: distribution must be between 1 and 5")

	// ErrInvalidTimestamp is returned when a sunrise value cannot be parsed.
	ErrInvalidTimestamp = errors.New("schedule: invalid ISO-8601 timestamp")
)
