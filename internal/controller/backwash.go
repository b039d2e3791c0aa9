package controller

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-pool/internal/schedule"
	"github.com/nerrad567/gray-logic-pool/internal/state"
)

// Backwash steps.
const (
	BackwashIdle = iota
	BackwashWashPosition
	BackwashWashing
	BackwashRinsePosition
	BackwashRinsing
	BackwashFiltrationPosition
)

// Backwash display texts.
const (
	backwashStopped            = "Stopped"
	backwashWashPosition       = "Stopped, wash position"
	backwashRinsePosition      = "Stopped, rinse position"
	backwashFiltrationPosition = "Stopped, filtration position"
	labelWashing               = "Washing"
	labelRinsing               = "Rinsing"
)

// AdvanceBackwash moves the backwash sequence one step forward. It does
// nothing while the booster runs.
func (c *Controller) AdvanceBackwash(ctx context.Context) error {
	return c.guard(ctx, "Backwash", c.advanceBackwash)
}

func (c *Controller) advanceBackwash(ctx context.Context) error {
	snap := c.store.Snapshot()
	if snap.BoosterActive {
		c.logger.Debug("backwash ignored while booster runs")
		return nil
	}

	wash := time.Duration(c.cfg.Backwash.WashMinutes) * time.Minute
	rinse := time.Duration(c.cfg.Backwash.RinseMinutes) * time.Minute

	switch snap.BackwashStep {
	case BackwashIdle:
		c.setBackwash(BackwashWashPosition, state.ModeReposition, 0)
		show(c.displays.Backwash, backwashWashPosition)
		if err := c.activateDevices(ctx); err != nil {
			return err
		}
		c.startCountdown()

	case BackwashWashPosition:
		next := BackwashWashing
		if rinse == 0 {
			next = BackwashRinsing
		}
		c.setBackwash(next, state.ModeFlowThrough, c.nowUnix()+int64(wash/time.Second))
		show(c.displays.Backwash, labelWashing+" : "+schedule.FormatCountdown(wash))
		return c.activateDevices(ctx)

	case BackwashWashing:
		c.setBackwash(BackwashRinsePosition, state.ModeReposition, 0)
		show(c.displays.Backwash, backwashRinsePosition)
		return c.activateDevices(ctx)

	case BackwashRinsePosition:
		c.setBackwash(BackwashRinsing, state.ModeFlowThrough, c.nowUnix()+int64(rinse/time.Second))
		show(c.displays.Backwash, labelRinsing+" : "+schedule.FormatCountdown(rinse))
		return c.activateDevices(ctx)

	case BackwashRinsing:
		c.setBackwash(BackwashFiltrationPosition, state.ModeReposition, 0)
		show(c.displays.Backwash, backwashFiltrationPosition)
		return c.activateDevices(ctx)

	case BackwashFiltrationPosition:
		c.setBackwash(BackwashIdle, state.ModeNormal, 0)
		show(c.displays.Backwash, backwashStopped)
		if err := c.activateDevices(ctx); err != nil {
			return err
		}
		c.stopCountdown()

	default:
		c.logger.Warn("unknown backwash step", "step", snap.BackwashStep)
	}
	return nil
}

// setBackwash stores the step and valve mode. A non-zero countdownEnd
// starts a timed step.
func (c *Controller) setBackwash(step int, mode state.BackwashMode, countdownEnd int64) {
	c.store.Update(func(s *state.State) {
		s.BackwashStep = step
		s.BackwashMode = mode
		if countdownEnd != 0 {
			s.CountdownEnd = countdownEnd
		}
	})
	c.logger.Info("backwash step", "step", step, "mode", mode)
}
