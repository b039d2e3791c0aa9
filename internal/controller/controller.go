package controller

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-pool/internal/device"
	"github.com/nerrad567/gray-logic-pool/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-pool/internal/scheduler"
	"github.com/nerrad567/gray-logic-pool/internal/state"
)

// Displays are the status texts the controller maintains. Any may be nil.
type Displays struct {
	Control            Display // "Auto Saison", "Inactif Hivernage", ...
	FiltrationTime     Display // "04:57"
	FiltrationSchedule Display // "10:31-15:28 : 20.0°C"
	Booster            Display
	Backwash           Display
	Temperature        NumericDisplay
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Store     *state.Store
	Sensors   Sensors
	Scheduler scheduler.Scheduler

	Filtration Actuator
	Treatment  Actuator
	Treatment2 Actuator
	Booster    Actuator

	Displays  Displays
	Notifier  Notifier
	Telemetry Telemetry
	Logger    Logger

	// Location is the site time zone; defaults to time.Local.
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
	// Sleep waits between actuations; defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Controller runs the pool.
//
// Thread Safety:
//   - All public methods are safe for concurrent use.
type Controller struct {
	cfg config.PoolConfig

	store     *state.Store
	sensors   Sensors
	scheduler scheduler.Scheduler

	filtration Actuator
	treatment  Actuator
	treatment2 Actuator
	booster    Actuator

	displays  Displays
	notifier  Notifier
	telemetry Telemetry
	logger    Logger

	loc   *time.Location
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	counterMu      sync.Mutex
	refreshCounter int

	driverMu        sync.Mutex
	cycleCancel     scheduler.CancelFunc
	countdownCancel scheduler.CancelFunc

	runMu   sync.Mutex
	runCtx  context.Context
	closed  bool
	pending sync.WaitGroup
}

// New creates a Controller. Store, Sensors and Scheduler are required.
func New(cfg config.PoolConfig, deps Deps) (*Controller, error) {
	if deps.Store == nil || deps.Sensors == nil || deps.Scheduler == nil {
		return nil, errors.New("controller: store, sensors and scheduler are required")
	}

	c := &Controller{
		cfg:        cfg,
		store:      deps.Store,
		sensors:    deps.Sensors,
		scheduler:  deps.Scheduler,
		filtration: orUnbound(deps.Filtration),
		treatment:  orUnbound(deps.Treatment),
		treatment2: orUnbound(deps.Treatment2),
		booster:    orUnbound(deps.Booster),
		displays:   deps.Displays,
		notifier:   deps.Notifier,
		telemetry:  deps.Telemetry,
		logger:     deps.Logger,
		loc:        deps.Location,
		now:        deps.Now,
		sleep:      deps.Sleep,
		runCtx:     context.Background(),
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	return c, nil
}

func orUnbound(a Actuator) Actuator {
	if a == nil {
		return unbound{}
	}
	return a
}

// Start registers the cycle driver and runs a first cycle immediately. A
// booster run or backwash step persisted before a restart gets its
// countdown driver back.
func (c *Controller) Start(ctx context.Context) {
	c.runMu.Lock()
	c.runCtx = ctx
	c.runMu.Unlock()

	c.driverMu.Lock()
	if c.cycleCancel != nil {
		c.cycleCancel()
	}
	c.cycleCancel = c.scheduler.Every(c.cfg.Timing.CycleInterval, func(ctx context.Context) {
		_ = c.Cycle(ctx) //nolint:errcheck // guard logs and notifies
	})
	c.driverMu.Unlock()

	if s := c.store.Snapshot(); s.BoosterActive || s.BackwashStep != 0 {
		c.logger.Info("resuming countdown", "booster", s.BoosterActive, "backwash_step", s.BackwashStep)
		c.startCountdown()
	}

	_ = c.Cycle(ctx) //nolint:errcheck // guard logs and notifies
}

// Close waits for in-flight button presses and cancels both drivers.
func (c *Controller) Close() {
	c.runMu.Lock()
	c.closed = true
	c.runMu.Unlock()

	c.pending.Wait()

	c.driverMu.Lock()
	defer c.driverMu.Unlock()
	if c.cycleCancel != nil {
		c.cycleCancel()
		c.cycleCancel = nil
	}
	if c.countdownCancel != nil {
		c.countdownCancel()
		c.countdownCancel = nil
	}
}

// treatments returns the configured treatment actuators.
func (c *Controller) treatments() []Actuator {
	var out []Actuator
	for _, a := range []Actuator{c.treatment, c.treatment2} {
		if a.Configured() {
			out = append(out, a)
		}
	}
	return out
}

// guard runs fn as the named public operation. Panics are recovered; both
// panics and errors are logged and notified. Errors caused by the
// context ending are returned without noise.
func (c *Controller) guard(ctx context.Context, op string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrPanic, op, r)
			c.logger.Error("controller operation panicked",
				"operation", op,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			c.notify(ctx, op, err)
		}
	}()

	if err := fn(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		c.logger.Error("controller operation failed", "operation", op, "error", err)
		c.notify(ctx, op, err)
		return err
	}
	return nil
}

func (c *Controller) notify(ctx context.Context, op string, err error) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(context.WithoutCancel(ctx), fmt.Sprintf("Pool Control - %s error", op), err.Error())
}

// settle pauses between actuations so relays and pumps are not switched
// at the same instant.
func (c *Controller) settle(ctx context.Context) error {
	return c.sleep(ctx, c.cfg.Timing.SettleDelay)
}

// logActuation records an actuator failure. The actuator has already
// notified the user where appropriate; the engine carries on.
func (c *Controller) logActuation(role, action string, err error) {
	switch {
	case err == nil:
	case device.IsQuiet(err):
		c.logger.Debug("skipping unconfigured device", "device", role, "action", action)
	default:
		c.logger.Warn("device action failed", "device", role, "action", action, "error", err)
	}
}

func show(d Display, text string) {
	if d != nil {
		d.SetStatus(text)
	}
}

func (c *Controller) showTemperature(v float64) {
	if c.displays.Temperature != nil {
		c.displays.Temperature.SetNumeric(v)
	}
}

func (c *Controller) nowUnix() int64 {
	return c.now().Unix()
}

// readTemperatures reads the water and outdoor probes.
func (c *Controller) readTemperatures() (water, outdoor float64) {
	water = c.sensors.ReadNumeric(c.cfg.Entities.WaterTemperature)
	outdoor = c.sensors.ReadNumeric(c.cfg.Entities.OutdoorTemperature)
	return water, outdoor
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
