package schedule

import (
	"fmt"
	"time"
)

// Plan is a computed window with the values shown to the user.
type Plan struct {
	Window

	// Temperature is the value the duration was derived from.
	Temperature float64
	// Seconds is the filtration time, pause excluded.
	Seconds int64
	// Duration is Seconds rendered as "HH:MM".
	Duration string
	// Winter marks a winter window; it changes the schedule rendering.
	Winter bool
}

// Season holds the season-mode tunables.
type Season struct {
	Method       Method
	Coefficient  float64
	Pivot        string
	PauseMinutes int
	Distribution Distribution
}

// Plan computes the season window for temp at now.
func (s Season) Plan(temp float64, now time.Time, useTomorrow bool) (Plan, error) {
	if !s.Distribution.Valid() {
		return Plan{}, fmt.Errorf("%w: %d", ErrInvalidDistribution, s.Distribution)
	}
	pivot, err := Pivot(now, s.Pivot, useTomorrow)
	if err != nil {
		return Plan{}, err
	}

	seconds, display := ProcessingTime(s.Method.Hours(temp, s.Coefficient))
	pause := int64(s.PauseMinutes) * 60

	return Plan{
		Window:      Distribute(pivot, seconds, pause, s.Distribution),
		Temperature: temp,
		Seconds:     seconds,
		Duration:    display,
	}, nil
}

// Winter holds the winter-mode tunables. The pivot is supplied per call
// because it may come from the sunrise sensor.
type Winter struct {
	Coefficient  float64
	MinimumHours float64
	Distribution Distribution
}

// Plan computes the winter window for temp anchored on pivot ("HH:MM").
func (w Winter) Plan(temp float64, pivot string, now time.Time, useTomorrow bool) (Plan, error) {
	if !w.Distribution.Valid() {
		return Plan{}, fmt.Errorf("%w: %d", ErrInvalidDistribution, w.Distribution)
	}
	at, err := Pivot(now, pivot, useTomorrow)
	if err != nil {
		return Plan{}, err
	}

	seconds, display := ProcessingTime(WinterHours(temp, w.Coefficient, w.MinimumHours))
	win := Distribute(at, seconds, 0, w.Distribution)
	win.PauseStart, win.PauseEnd = 0, 0

	return Plan{
		Window:      win,
		Temperature: temp,
		Seconds:     seconds,
		Duration:    display,
		Winter:      true,
	}, nil
}

// Schedule renders the window for the schedule display, in loc:
//
//	10:31-12:00 13:00-15:28 : 20.0°C   (season, with pause)
//	10:31-15:28 : 20.0°C               (season)
//	* 03:00-06:00 : 6.0°C              (winter)
func (p Plan) Schedule(loc *time.Location) string {
	clock := func(epoch int64) string {
		return time.Unix(epoch, 0).In(loc).Format("15:04")
	}

	var prefix, body string
	if p.Winter {
		prefix = "* "
	}
	if !p.Winter && p.HasPause() {
		body = fmt.Sprintf("%s-%s %s-%s", clock(p.Start), clock(p.PauseStart), clock(p.PauseEnd), clock(p.End))
	} else {
		body = fmt.Sprintf("%s-%s", clock(p.Start), clock(p.End))
	}
	return fmt.Sprintf("%s%s : %s°C", prefix, body, FormatTemperature(p.Temperature))
}
