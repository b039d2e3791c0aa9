package controller

import (
	"context"

	"github.com/nerrad567/gray-logic-pool/internal/schedule"
	"github.com/nerrad567/gray-logic-pool/internal/state"
)

// displayDelay is how long after a window opens the water reading is
// considered representative.
const displayDelay = 5 * 60

// ResolveSeason sets TemperatureActive from the season window and clears
// WinterActive. It computes a first window when none exists and rolls
// the window to tomorrow once it has been consumed.
func (c *Controller) ResolveSeason(ctx context.Context, waterTemp float64) error {
	return c.guard(ctx, "Season", func(context.Context) error {
		return c.resolveSeason(waterTemp)
	})
}

// ResolveWinter sets WinterActive from the winter window, the frost latch
// and the optional burst cycling, and clears TemperatureActive.
func (c *Controller) ResolveWinter(ctx context.Context, waterTemp, outdoorTemp float64) error {
	return c.guard(ctx, "Winter", func(context.Context) error {
		return c.resolveWinter(waterTemp, outdoorTemp)
	})
}

func (c *Controller) resolveSeason(waterTemp float64) error {
	active, err := c.resolveWindow(waterTemp, true, c.computeSeasonalWindow)
	if err != nil {
		return err
	}

	c.store.Update(func(s *state.State) {
		s.TemperatureActive = active
		s.WinterActive = false
	})
	return nil
}

func (c *Controller) resolveWinter(waterTemp, outdoorTemp float64) error {
	active, err := c.resolveWindow(waterTemp, false, c.computeWinterWindow)
	if err != nil {
		return err
	}

	threshold := c.cfg.Winter.SecurityTemperature
	release := threshold + c.cfg.Winter.Hysteresis

	var latched, changed bool
	c.store.Update(func(s *state.State) {
		before := s.FrostLatch
		if s.FrostLatch {
			if outdoorTemp > release {
				s.FrostLatch = false
			}
		} else if outdoorTemp < threshold {
			s.FrostLatch = true
		}
		latched = s.FrostLatch
		changed = before != latched
	})
	if changed {
		c.logger.Info("frost protection changed", "latched", latched, "outdoor_temperature", outdoorTemp)
	}
	if latched {
		active = true
	}

	if c.cfg.Winter.BurstCycling && schedule.InBurstWindow(c.now().In(c.loc)) {
		active = true
	}

	c.store.Update(func(s *state.State) {
		s.WinterActive = active
		s.TemperatureActive = false
	})
	return nil
}

// resolveWindow reports whether now falls in the stored window. The
// pause carve-out only applies to the season window.
func (c *Controller) resolveWindow(waterTemp float64, withPause bool, compute func(float64, bool) error) (bool, error) {
	snap := c.store.Snapshot()

	if !snap.HasWindow() {
		if err := compute(waterTemp, false); err != nil {
			return false, err
		}
		if c.nowUnix() > c.store.Snapshot().FiltrationEnd {
			if err := compute(waterTemp, true); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	now := c.nowUnix()
	active := false

	if withPause && snap.HasPause() {
		if now >= snap.FiltrationStart && now <= snap.PauseStart {
			if now >= snap.FiltrationStart+displayDelay {
				c.showTemperature(waterTemp)
			}
			active = true
		}
		if now >= snap.PauseEnd && now <= snap.FiltrationEnd {
			c.trackTemperature(snap.PauseEnd, now, waterTemp)
			active = true
		}
	} else if now >= snap.FiltrationStart && now <= snap.FiltrationEnd {
		c.trackTemperature(snap.FiltrationStart, now, waterTemp)
		active = true
	}

	if active {
		clearForced := c.cfg.Season.ClearForcedOn
		c.store.Update(func(s *state.State) {
			if clearForced && s.ForcedOn {
				s.ForcedOn = false
			}
			s.WindowFresh = false
		})
	}

	if now > snap.FiltrationEnd && !c.store.Snapshot().WindowFresh {
		if err := compute(waterTemp, true); err != nil {
			return active, err
		}
		c.showTemperature(waterTemp)
	}
	return active, nil
}

// trackTemperature records the peak water temperature of the running
// segment. With the probe in the technical room, readings only count once
// water has flowed for the settle time.
func (c *Controller) trackTemperature(segmentStart, now int64, waterTemp float64) {
	if c.cfg.Probe.LocalTechnicalRoom {
		if now < segmentStart+int64(c.cfg.Probe.SettleMinutes)*60 {
			return
		}
		c.showTemperature(waterTemp)
	}

	c.store.Update(func(s *state.State) {
		if waterTemp > s.TemperatureMax {
			s.TemperatureMax = waterTemp
		}
	})
}
