package schedule

import (
	"errors"
	"testing"
	"time"
)

func TestSeasonPlan(t *testing.T) {
	s := Season{Method: MethodCurve, Coefficient: 1, Pivot: "13:00", Distribution: HalfHalf}

	p, err := s.Plan(20, at(8, 0, 0), false)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if p.Duration != "04:57" || p.Seconds != 17820 {
		t.Errorf("duration = %q (%ds), want 04:57 (17820s)", p.Duration, p.Seconds)
	}
	if want := at(10, 31, 30).Unix(); p.Start != want {
		t.Errorf("Start = %v, want 10:31:30", time.Unix(p.Start, 0).UTC())
	}
	if want := at(15, 28, 30).Unix(); p.End != want {
		t.Errorf("End = %v, want 15:28:30", time.Unix(p.End, 0).UTC())
	}
	if p.HasPause() {
		t.Error("plan without pause minutes reports a pause")
	}
	if got, want := p.Schedule(time.UTC), "10:31-15:28 : 20.0°C"; got != want {
		t.Errorf("Schedule = %q, want %q", got, want)
	}
}

func TestSeasonPlan_WithPause(t *testing.T) {
	s := Season{Method: MethodCurve, Coefficient: 1, Pivot: "13:00", PauseMinutes: 60, Distribution: HalfHalf}

	p, err := s.Plan(20, at(8, 0, 0), false)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if got, want := p.Schedule(time.UTC), "10:01-12:30 13:30-15:58 : 20.0°C"; got != want {
		t.Errorf("Schedule = %q, want %q", got, want)
	}
	if got := (p.End - p.Start) - (p.PauseEnd - p.PauseStart); got != p.Seconds {
		t.Errorf("filtration time = %d, want %d", got, p.Seconds)
	}
}

func TestSeasonPlan_Tomorrow(t *testing.T) {
	s := Season{Method: MethodHalf, Coefficient: 1, Pivot: "13:00", Distribution: AllAfter}

	p, err := s.Plan(8, at(18, 0, 0), true)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if want := at(13, 0, 0).Add(24 * time.Hour).Unix(); p.Start != want {
		t.Errorf("Start = %v, want tomorrow 13:00", time.Unix(p.Start, 0).UTC())
	}
	if p.Duration != "04:00" {
		t.Errorf("Duration = %q, want 04:00", p.Duration)
	}
}

func TestSeasonPlan_Errors(t *testing.T) {
	_, err := Season{Pivot: "13:00", Distribution: 9}.Plan(20, at(8, 0, 0), false)
	if !errors.Is(err, ErrInvalidDistribution) {
		t.Errorf("bad distribution error = %v, want ErrInvalidDistribution", err)
	}

	_, err = Season{Pivot: "1pm", Distribution: HalfHalf}.Plan(20, at(8, 0, 0), false)
	if !errors.Is(err, ErrInvalidClock) {
		t.Errorf("bad pivot error = %v, want ErrInvalidClock", err)
	}
}

func TestWinterPlan(t *testing.T) {
	w := Winter{Coefficient: 1, MinimumHours: 3, Distribution: HalfHalf}

	p, err := w.Plan(6, "06:00", at(1, 0, 0), false)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if p.Duration != "03:00" {
		t.Errorf("Duration = %q, want 03:00", p.Duration)
	}
	if p.HasPause() {
		t.Error("winter plan has a pause")
	}
	if got, want := p.Schedule(time.UTC), "* 04:30-07:30 : 6.0°C"; got != want {
		t.Errorf("Schedule = %q, want %q", got, want)
	}

	if _, err := w.Plan(6, "", at(1, 0, 0), false); !errors.Is(err, ErrInvalidClock) {
		t.Errorf("empty pivot error = %v, want ErrInvalidClock", err)
	}
}
