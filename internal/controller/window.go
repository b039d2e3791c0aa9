package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-pool/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-pool/internal/schedule"
	"github.com/nerrad567/gray-logic-pool/internal/state"
)

// ComputeSeasonalWindow recomputes the season window from the tracked
// maximum temperature, or waterTemp when none was tracked. With
// useTomorrow set, a pivot already past is moved to tomorrow and the
// tracked maximum is reset.
func (c *Controller) ComputeSeasonalWindow(ctx context.Context, waterTemp float64, useTomorrow bool) error {
	return c.guard(ctx, "Window", func(context.Context) error {
		return c.computeSeasonalWindow(waterTemp, useTomorrow)
	})
}

// ComputeWinterWindow is ComputeSeasonalWindow for winter mode.
func (c *Controller) ComputeWinterWindow(ctx context.Context, waterTemp float64, useTomorrow bool) error {
	return c.guard(ctx, "Window", func(context.Context) error {
		return c.computeWinterWindow(waterTemp, useTomorrow)
	})
}

func (c *Controller) computeSeasonalWindow(waterTemp float64, useTomorrow bool) error {
	temp := c.calculationTemperature(waterTemp)

	season := schedule.Season{
		Method:       schedule.Method(c.cfg.Season.Method),
		Coefficient:  c.cfg.Season.Coefficient,
		Pivot:        c.cfg.Season.Pivot,
		PauseMinutes: c.cfg.Season.PauseMinutes,
		Distribution: schedule.Distribution(c.cfg.Season.Distribution),
	}
	plan, err := season.Plan(temp, c.now().In(c.loc), useTomorrow)
	if err != nil {
		return fmt.Errorf("computing seasonal window: %w", err)
	}

	c.publishPlan(plan)
	c.store.Update(func(s *state.State) {
		s.FiltrationStart = plan.Start
		s.FiltrationEnd = plan.End
		s.PauseStart = plan.PauseStart
		s.PauseEnd = plan.PauseEnd
		s.WindowFresh = true
		if useTomorrow {
			s.TemperatureMax = 0
		}
	})
	c.logPlan("season", plan)
	return nil
}

func (c *Controller) computeWinterWindow(waterTemp float64, useTomorrow bool) error {
	temp := c.calculationTemperature(waterTemp)

	pivot := c.cfg.Winter.Pivot
	if c.cfg.Winter.PivotSource == config.PivotSunrise {
		pivot = c.sensors.ReadSunrise(c.cfg.Entities.Sunrise)
	}

	winter := schedule.Winter{
		Coefficient:  c.cfg.Winter.Coefficient,
		MinimumHours: c.cfg.Winter.MinimumHours,
		Distribution: schedule.Distribution(c.cfg.Winter.Distribution),
	}
	plan, err := winter.Plan(temp, pivot, c.now().In(c.loc), useTomorrow)
	if err != nil {
		return fmt.Errorf("computing winter window: %w", err)
	}

	c.publishPlan(plan)
	c.store.Update(func(s *state.State) {
		s.FiltrationStart = plan.Start
		s.FiltrationEnd = plan.End
		s.WindowFresh = true
		if useTomorrow {
			s.TemperatureMax = 0
		}
	})
	c.logPlan("winter", plan)
	return nil
}

// calculationTemperature prefers the peak tracked during the last window.
func (c *Controller) calculationTemperature(waterTemp float64) float64 {
	if peak := c.store.Snapshot().TemperatureMax; peak != 0 {
		return peak
	}
	return waterTemp
}

func (c *Controller) publishPlan(p schedule.Plan) {
	show(c.displays.FiltrationTime, p.Duration)
	show(c.displays.FiltrationSchedule, p.Schedule(c.loc))
}

func (c *Controller) logPlan(mode string, p schedule.Plan) {
	const layout = "15:04 02-01-2006"
	args := []any{
		"mode", mode,
		"temperature", p.Temperature,
		"duration", p.Duration,
		"start", time.Unix(p.Start, 0).In(c.loc).Format(layout),
		"end", time.Unix(p.End, 0).In(c.loc).Format(layout),
	}
	if !p.Winter && p.HasPause() {
		args = append(args,
			"pause_start", time.Unix(p.PauseStart, 0).In(c.loc).Format(layout),
			"pause_end", time.Unix(p.PauseEnd, 0).In(c.loc).Format(layout),
		)
	}
	c.logger.Info("filtration window computed", args...)
}
