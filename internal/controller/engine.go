package controller

import (
	"context"

	"github.com/nerrad567/gray-logic-pool/internal/state"
)

// Control display texts.
const (
	controlStopped = "Inactif"
	controlForced  = "Actif"
	controlAuto    = "Auto"
	modeSeason     = "Saison"
	modeWinter     = "Hivernage"
)

// ActivateDevices reconciles the devices with the stored flags.
//
//  1. TotalStop turns everything off.
//  2. Backwash mode 1 turns everything off; mode 2 runs filtration only.
//  3. Otherwise any run flag starts filtration, then the treatments (for
//     the temperature schedule, or winter with winter treatment) and the
//     booster; no flag stops treatments, booster and filtration in that
//     order.
func (c *Controller) ActivateDevices(ctx context.Context) error {
	return c.guard(ctx, "Activation", c.activateDevices)
}

func (c *Controller) activateDevices(ctx context.Context) error {
	snap := c.store.Snapshot()
	show(c.displays.Control, controlText(snap))

	if snap.TotalStop {
		c.stopAll(ctx)
		return nil
	}

	switch snap.BackwashMode {
	case state.ModeNormal:
		if snap.AnyRunFlag() {
			return c.runDevices(ctx, snap)
		}
		return c.idleDevices(ctx)
	case state.ModeReposition:
		c.stopAll(ctx)
	case state.ModeFlowThrough:
		c.stopTreatments(ctx)
		c.logActuation("booster", "off", c.booster.TurnOff(ctx, false))
		c.logActuation("filtration", "on", c.filtration.TurnOn(ctx, false))
	default:
		c.logger.Warn("unknown backwash mode", "mode", snap.BackwashMode)
	}
	return nil
}

func controlText(s state.State) string {
	text := controlAuto
	switch {
	case s.TotalStop:
		text = controlStopped
	case s.ForcedOn:
		text = controlForced
	}
	if s.WinterMode {
		return text + " " + modeWinter
	}
	return text + " " + modeSeason
}

func (c *Controller) runDevices(ctx context.Context, snap state.State) error {
	c.logActuation("filtration", "on", c.filtration.TurnOn(ctx, false))

	if snap.TemperatureActive || (snap.WinterActive && c.cfg.Winter.Treatment) {
		treatments := c.treatments()
		if len(treatments) > 0 {
			if err := c.settle(ctx); err != nil {
				return err
			}
		}
		for _, t := range treatments {
			c.logActuation("treatment", "on", t.TurnOn(ctx, false))
		}
	}

	if snap.BoosterActive {
		if err := c.settle(ctx); err != nil {
			return err
		}
		c.logActuation("booster", "on", c.booster.TurnOn(ctx, false))
	} else {
		c.logActuation("booster", "off", c.booster.TurnOff(ctx, false))
	}
	return nil
}

func (c *Controller) idleDevices(ctx context.Context) error {
	treatments := c.treatments()
	for _, t := range treatments {
		if on, _ := t.IsOn(ctx); on {
			c.logActuation("treatment", "off", t.TurnOff(ctx, false))
		}
	}
	if len(treatments) > 0 {
		if err := c.settle(ctx); err != nil {
			return err
		}
	}

	if on, _ := c.booster.IsOn(ctx); on {
		c.logActuation("booster", "off", c.booster.TurnOff(ctx, false))
		if err := c.settle(ctx); err != nil {
			return err
		}
	}

	c.logActuation("filtration", "off", c.filtration.TurnOff(ctx, false))
	return nil
}

func (c *Controller) stopTreatments(ctx context.Context) {
	for _, t := range c.treatments() {
		c.logActuation("treatment", "off", t.TurnOff(ctx, false))
	}
}

func (c *Controller) stopAll(ctx context.Context) {
	c.stopTreatments(ctx)
	c.logActuation("booster", "off", c.booster.TurnOff(ctx, false))
	c.logActuation("filtration", "off", c.filtration.TurnOff(ctx, false))
}
