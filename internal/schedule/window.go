package schedule

import (
	"fmt"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// Distribution places the filtration span relative to the pivot.
type Distribution int

const (
	// HalfHalf centres the span on the pivot.
	HalfHalf Distribution = iota + 1
	// ThirdBefore puts one third of the span before the pivot.
	ThirdBefore
	// TwoThirdsBefore puts two thirds of the span before the pivot.
	TwoThirdsBefore
	// AllBefore ends the span at the pivot.
	AllBefore
	// AllAfter starts the span at the pivot.
	AllAfter
)

// Valid reports whether d is one of the five policies.
func (d Distribution) Valid() bool {
	return d >= HalfHalf && d <= AllAfter
}

// parts returns the share of a duration placed before and after the pivot,
// as multiples of duration/den.
func (d Distribution) parts() (before, after, den float64) {
	switch d {
	case ThirdBefore:
		return 1, 2, 3
	case TwoThirdsBefore:
		return 2, 1, 3
	case AllBefore:
		return 1, 0, 1
	case AllAfter:
		return 0, 1, 1
	default:
		return 1, 1, 2
	}
}

// pauseParts is parts for the pause sub-interval. The all-before and
// all-after policies still centre the pause on the pivot.
func (d Distribution) pauseParts() (before, after, den float64) {
	if d == AllBefore || d == AllAfter {
		return 1, 1, 2
	}
	return d.parts()
}

// Window is a filtration window in epoch seconds. PauseStart equals
// PauseEnd when there is no pause.
type Window struct {
	Start      int64
	End        int64
	PauseStart int64
	PauseEnd   int64
}

// HasPause reports whether the window carries a pause.
func (w Window) HasPause() bool {
	return w.PauseStart != w.PauseEnd
}

// Contains reports whether now lies in [Start, End], pause ignored.
func (w Window) Contains(now int64) bool {
	return now >= w.Start && now <= w.End
}

// Pivot anchors clock ("HH:MM") on now's date in now's location. With
// useTomorrow set, a pivot already in the past moves forward 24 hours.
func Pivot(now time.Time, clock string, useTomorrow bool) (time.Time, error) {
	hh, mm, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	pivot := time.Date(now.Year(), now.Month(), now.Day(), hh, mm, 0, 0, now.Location())
	if useTomorrow && pivot.Before(now) {
		pivot = pivot.Add(24 * time.Hour)
	}
	return pivot, nil
}

// ParseClock parses "HH:MM".
func ParseClock(clock string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	return t.Hour(), t.Minute(), nil
}

// ClampPause shrinks pause so that seconds+pause never exceeds a day.
func ClampPause(seconds, pause int64) int64 {
	if seconds+pause > secondsPerDay {
		return secondsPerDay - seconds
	}
	return pause
}

// Distribute lays seconds of filtration plus pause seconds of pause around
// pivot. The pause is clamped first so the span never exceeds a day.
func Distribute(pivot time.Time, seconds, pause int64, d Distribution) Window {
	pause = ClampPause(seconds, pause)
	span := float64(seconds + pause)
	p := float64(pause)
	at := float64(pivot.Unix())

	before, after, den := d.parts()
	pBefore, pAfter, pDen := d.pauseParts()

	return Window{
		Start:      int64(at - span/den*before),
		End:        int64(at + span/den*after),
		PauseStart: int64(at - p/pDen*pBefore),
		PauseEnd:   int64(at + p/pDen*pAfter),
	}
}
