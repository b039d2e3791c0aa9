package controller

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-pool/internal/schedule"
	"github.com/nerrad567/gray-logic-pool/internal/state"
)

const (
	boosterActive  = "Active"
	boosterStopped = "Stopped"
)

// StartBooster runs the booster for the configured minutes. A press while
// the booster already runs, or during a backwash, only restarts the
// countdown driver.
func (c *Controller) StartBooster(ctx context.Context) error {
	return c.guard(ctx, "Booster", c.startBooster)
}

func (c *Controller) startBooster(ctx context.Context) error {
	snap := c.store.Snapshot()
	if !snap.BoosterActive && snap.BackwashStep == BackwashIdle {
		run := time.Duration(c.cfg.Booster.Minutes) * time.Minute
		end := c.nowUnix() + int64(run/time.Second)

		c.store.Update(func(s *state.State) { s.CountdownEnd = end })
		show(c.displays.Booster, boosterActive+" : "+schedule.FormatCountdown(run))
		c.store.Update(func(s *state.State) { s.BoosterActive = true })
		c.logger.Info("booster started", "minutes", c.cfg.Booster.Minutes)

		if err := c.activateDevices(ctx); err != nil {
			return err
		}
	}

	c.startCountdown()
	return nil
}

// Stop ends a running booster and aborts a backwash sequence.
func (c *Controller) Stop(ctx context.Context) error {
	return c.guard(ctx, "Stop", c.stop)
}

func (c *Controller) stop(ctx context.Context) error {
	c.stopCountdown()

	if c.store.Snapshot().BoosterActive {
		c.store.Update(func(s *state.State) { s.BoosterActive = false })
		show(c.displays.Booster, boosterStopped)
		c.logger.Info("booster stopped")
		if err := c.activateDevices(ctx); err != nil {
			return err
		}
	}

	if c.store.Snapshot().BackwashStep != BackwashIdle {
		c.store.Update(func(s *state.State) {
			s.BackwashStep = BackwashIdle
			s.BackwashMode = state.ModeNormal
		})
		show(c.displays.Backwash, backwashStopped)
		c.logger.Info("backwash aborted")
		if err := c.activateDevices(ctx); err != nil {
			return err
		}
	}
	return nil
}
