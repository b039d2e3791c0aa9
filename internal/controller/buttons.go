package controller

import (
	"context"
	"fmt"
	"slices"

	"github.com/nerrad567/gray-logic-pool/internal/state"
)

// Button names, as used on MQTT and the HTTP API.
const (
	ButtonReset    = "reset"
	ButtonStop     = "stop"
	ButtonBooster  = "booster"
	ButtonBackwash = "backwash"
	ButtonForceOn  = "force_on"
	ButtonAuto     = "auto"
	ButtonForceOff = "force_off"
	ButtonWinter   = "winter"
	ButtonSeason   = "season"
)

// Buttons lists every button name.
func Buttons() []string {
	return []string{
		ButtonReset, ButtonStop, ButtonBooster, ButtonBackwash,
		ButtonForceOn, ButtonAuto, ButtonForceOff, ButtonWinter, ButtonSeason,
	}
}

// IsButton reports whether name is a known button.
func IsButton(name string) bool {
	return slices.Contains(Buttons(), name)
}

// Press runs the named button's operation and waits for it.
func (c *Controller) Press(ctx context.Context, name string) error {
	switch name {
	case ButtonReset:
		return c.Reset(ctx)
	case ButtonStop:
		return c.Stop(ctx)
	case ButtonBooster:
		return c.StartBooster(ctx)
	case ButtonBackwash:
		return c.AdvanceBackwash(ctx)
	case ButtonForceOn:
		return c.ForceOn(ctx)
	case ButtonAuto:
		return c.Auto(ctx)
	case ButtonForceOff:
		return c.ForceOff(ctx)
	case ButtonWinter:
		return c.WinterMode(ctx)
	case ButtonSeason:
		return c.SeasonMode(ctx)
	}
	return fmt.Errorf("%w: %q", ErrUnknownButton, name)
}

// PressAsync validates name and runs the press in the background under
// the controller's run context. Close waits for it.
func (c *Controller) PressAsync(name string) error {
	if !IsButton(name) {
		return fmt.Errorf("%w: %q", ErrUnknownButton, name)
	}

	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.closed {
		return ErrClosed
	}
	ctx := c.runCtx
	c.pending.Add(1)

	go func() {
		defer c.pending.Done()
		c.logger.Info("button pressed", "button", name)
		_ = c.Press(ctx, name) //nolint:errcheck // guard logs and notifies
	}()
	return nil
}

// Reset discards the tracked peak temperature, recomputes the window for
// the current mode and re-resolves the status.
func (c *Controller) Reset(ctx context.Context) error {
	return c.guard(ctx, "Reset", c.reset)
}

func (c *Controller) reset(ctx context.Context) error {
	c.store.Update(func(s *state.State) { s.TemperatureMax = 0 })

	water, outdoor := c.readTemperatures()
	winter := c.store.Snapshot().WinterMode

	compute := c.computeSeasonalWindow
	if winter {
		compute = c.computeWinterWindow
	}
	if err := compute(water, false); err != nil {
		return err
	}
	if c.nowUnix() > c.store.Snapshot().FiltrationEnd {
		if err := compute(water, true); err != nil {
			return err
		}
	}

	var err error
	if winter {
		err = c.resolveWinter(water, outdoor)
	} else {
		err = c.resolveSeason(water)
	}
	if err != nil {
		return err
	}
	return c.activateDevices(ctx)
}

// ForceOn runs filtration regardless of the schedule.
func (c *Controller) ForceOn(ctx context.Context) error {
	return c.guard(ctx, "ForceOn", func(ctx context.Context) error {
		return c.setOverride(ctx, true, false)
	})
}

// Auto returns to schedule-driven operation.
func (c *Controller) Auto(ctx context.Context) error {
	return c.guard(ctx, "Auto", func(ctx context.Context) error {
		return c.setOverride(ctx, false, false)
	})
}

// ForceOff stops everything until Auto or ForceOn.
func (c *Controller) ForceOff(ctx context.Context) error {
	return c.guard(ctx, "ForceOff", func(ctx context.Context) error {
		return c.setOverride(ctx, false, true)
	})
}

func (c *Controller) setOverride(ctx context.Context, forcedOn, totalStop bool) error {
	c.store.Update(func(s *state.State) {
		s.ForcedOn = forcedOn
		s.TotalStop = totalStop
	})
	c.logger.Info("override changed", "forced_on", forcedOn, "total_stop", totalStop)
	return c.activateDevices(ctx)
}

// SeasonMode switches to season resolution and resets the window.
func (c *Controller) SeasonMode(ctx context.Context) error {
	return c.guard(ctx, "Season", func(ctx context.Context) error {
		return c.setWinterMode(ctx, false)
	})
}

// WinterMode switches to winter resolution and resets the window.
func (c *Controller) WinterMode(ctx context.Context) error {
	return c.guard(ctx, "Winter", func(ctx context.Context) error {
		return c.setWinterMode(ctx, true)
	})
}

func (c *Controller) setWinterMode(ctx context.Context, winter bool) error {
	c.store.Update(func(s *state.State) { s.WinterMode = winter })
	c.logger.Info("mode changed", "winter", winter)
	if err := c.activateDevices(ctx); err != nil {
		return err
	}
	return c.reset(ctx)
}
