package controller

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-pool/internal/schedule"
)

// Cycle is the one-minute driver.
func (c *Controller) Cycle(ctx context.Context) error {
	return c.guard(ctx, "Cycle", c.cycle)
}

func (c *Controller) cycle(ctx context.Context) error {
	started := c.now()
	water, outdoor := c.readTemperatures()

	if c.takeRefresh() {
		c.logger.Debug("refreshing devices")
		c.logActuation("filtration", "refresh", c.filtration.Refresh(ctx))
		c.logActuation("booster", "refresh", c.booster.Refresh(ctx))
		for _, t := range c.treatments() {
			c.logActuation("treatment", "refresh", t.Refresh(ctx))
		}
	}

	var err error
	if c.store.Snapshot().WinterMode {
		err = c.resolveWinter(water, outdoor)
	} else {
		err = c.resolveSeason(water)
	}
	if err != nil {
		return err
	}

	if err := c.activateDevices(ctx); err != nil {
		return err
	}

	c.recordCycle(ctx, started, water, outdoor)
	return nil
}

// takeRefresh advances the refresh counter and reports whether this
// cycle re-sends the device states.
func (c *Controller) takeRefresh() bool {
	c.counterMu.Lock()
	defer c.counterMu.Unlock()

	if c.refreshCounter >= c.cfg.Timing.RefreshEvery {
		c.refreshCounter = 0
		return true
	}
	c.refreshCounter++
	return false
}

func (c *Controller) recordCycle(ctx context.Context, started time.Time, water, outdoor float64) {
	if c.telemetry == nil {
		return
	}

	snap := c.store.Snapshot()
	filtrationOn, _ := c.filtration.IsOn(ctx)
	boosterOn, _ := c.booster.IsOn(ctx)
	treatmentOn := false
	for _, t := range c.treatments() {
		if on, _ := t.IsOn(ctx); on {
			treatmentOn = true
		}
	}

	c.telemetry.RecordCycle(Sample{
		Time:           started,
		WinterMode:     snap.WinterMode,
		WaterTemp:      water,
		OutdoorTemp:    outdoor,
		TemperatureMax: snap.TemperatureMax,
		FiltrationOn:   filtrationOn,
		TreatmentOn:    treatmentOn,
		BoosterOn:      boosterOn,
		BackwashStep:   snap.BackwashStep,
		FrostLatch:     snap.FrostLatch,
		ForcedOn:       snap.ForcedOn,
		TotalStop:      snap.TotalStop,
		WindowStart:    snap.FiltrationStart,
		WindowEnd:      snap.FiltrationEnd,
		Duration:       c.now().Sub(started),
	})
}

// Countdown is the five-second driver for the booster and the timed
// backwash steps.
func (c *Controller) Countdown(ctx context.Context) error {
	return c.guard(ctx, "Countdown", c.countdown)
}

func (c *Controller) countdown(ctx context.Context) error {
	snap := c.store.Snapshot()

	if snap.BoosterActive {
		remaining := c.remaining(snap.CountdownEnd)
		if remaining > 0 {
			show(c.displays.Booster, boosterActive+" : "+schedule.FormatCountdown(remaining))
		} else if err := c.stop(ctx); err != nil {
			return err
		}
	}

	snap = c.store.Snapshot()
	if snap.BackwashStep == BackwashWashing || snap.BackwashStep == BackwashRinsing {
		label := labelRinsing
		if snap.BackwashStep == BackwashWashing {
			label = labelWashing
		}
		remaining := c.remaining(snap.CountdownEnd)
		if remaining > 0 {
			show(c.displays.Backwash, label+" : "+schedule.FormatCountdown(remaining))
		} else if err := c.advanceBackwash(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) remaining(end int64) time.Duration {
	return time.Duration(end-c.nowUnix()) * time.Second
}

// startCountdown (re)registers the countdown driver.
func (c *Controller) startCountdown() {
	c.driverMu.Lock()
	defer c.driverMu.Unlock()

	if c.countdownCancel != nil {
		c.countdownCancel()
	}
	// The tick may cancel its own registration (booster expiry), so it
	// runs under the controller's context rather than the tick's.
	c.countdownCancel = c.scheduler.Every(c.cfg.Timing.CountdownInterval, func(context.Context) {
		_ = c.Countdown(c.runContext()) //nolint:errcheck // guard logs and notifies
	})
	c.logger.Debug("countdown started")
}

func (c *Controller) stopCountdown() {
	c.driverMu.Lock()
	defer c.driverMu.Unlock()

	if c.countdownCancel != nil {
		c.countdownCancel()
		c.countdownCancel = nil
		c.logger.Debug("countdown stopped")
	}
}

func (c *Controller) runContext() context.Context {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.runCtx
}

// CountdownRunning reports whether the countdown driver is registered.
func (c *Controller) CountdownRunning() bool {
	c.driverMu.Lock()
	defer c.driverMu.Unlock()
	return c.countdownCancel != nil
}
