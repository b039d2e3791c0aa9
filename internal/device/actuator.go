package device

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Host is the automation platform the actuators talk to.
type Host interface {
	// ReadBinaryState returns the entity's current state and whether the
	// host knows the entity at all.
	ReadBinaryState(ctx context.Context, entityID string) (string, bool)
	// Invoke calls domain.service on the entity.
	Invoke(ctx context.Context, domain, service, entityID string) error
}

// Display shows a short status text to the user.
type Display interface {
	SetStatus(text string)
}

// Notifier raises a user-facing notification.
type Notifier interface {
	Notify(ctx context.Context, title, message string)
}

// Logger defines the logging interface used by actuators.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Display texts pushed after a successful action.
const (
	StatusActive  = "Active"
	StatusStopped = "Stopped"
)

const notificationTitle = "Pool Control - device error"

// Options tunes retries and state verification.
type Options struct {
	MaxRetries    int
	RetryDelay    time.Duration
	VerifyState   bool
	VerifyDelay   time.Duration
	VerifyTimeout time.Duration
	PollInterval  time.Duration
}

// DefaultOptions returns 3 attempts one second apart, verification off.
func DefaultOptions() Options {
	return Options{
		MaxRetries:    3,
		RetryDelay:    time.Second,
		VerifyDelay:   500 * time.Millisecond,
		VerifyTimeout: 2 * time.Second,
		PollInterval:  100 * time.Millisecond,
	}
}

// Actuator controls one on/off entity.
//
// Thread Safety:
//   - Safe for concurrent use once configured. The Set* methods must be
//     called before the actuator is shared.
type Actuator struct {
	name     string
	entityID string
	host     Host
	opts     Options

	display  Display
	notifier Notifier
	logger   Logger
}

// NewActuator creates an actuator for the role name bound to entityID. An
// empty entityID gives an unconfigured actuator whose actions return
// ErrNotConfigured.
func NewActuator(name, entityID string, host Host, opts Options) *Actuator {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}
	return &Actuator{
		name:     name,
		entityID: entityID,
		host:     host,
		opts:     opts,
		logger:   noopLogger{},
	}
}

// SetDisplay binds the display updated after each successful action.
func (a *Actuator) SetDisplay(d Display) { a.display = d }

// SetNotifier sets the notifier used for runtime failures.
func (a *Actuator) SetNotifier(n Notifier) { a.notifier = n }

// SetLogger sets the logger.
func (a *Actuator) SetLogger(l Logger) { a.logger = l }

// Name returns the role name.
func (a *Actuator) Name() string { return a.name }

// EntityID returns the bound entity reference.
func (a *Actuator) EntityID() string { return a.entityID }

// Configured reports whether an entity is bound.
func (a *Actuator) Configured() bool {
	return a != nil && a.entityID != ""
}

// IsOn reports whether the entity currently reads "on".
func (a *Actuator) IsOn(ctx context.Context) (bool, error) {
	state, err := a.readState(ctx)
	if err != nil {
		return false, err
	}
	return state == StateOn, nil
}

// TurnOn switches the entity on. Without force, an entity already on is
// left alone.
func (a *Actuator) TurnOn(ctx context.Context, force bool) error {
	return a.switchTo(ctx, StateOn, force)
}

// TurnOff switches the entity off. Without force, an entity already off
// is left alone.
func (a *Actuator) TurnOff(ctx context.Context, force bool) error {
	return a.switchTo(ctx, StateOff, force)
}

// Refresh re-sends the entity's current state so the device and the
// display agree. States other than on and off are left alone.
func (a *Actuator) Refresh(ctx context.Context) error {
	state, err := a.readState(ctx)
	if err != nil {
		return err
	}
	switch state {
	case StateOn:
		return a.TurnOn(ctx, true)
	case StateOff:
		return a.TurnOff(ctx, true)
	}
	return nil
}

func (a *Actuator) switchTo(ctx context.Context, target string, force bool) error {
	current, err := a.readState(ctx)
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			a.notify(ctx, fmt.Sprintf("Entity %s (%s) not found", a.entityID, a.name))
		}
		return err
	}
	if !force && current == target {
		return nil
	}

	service := ServiceTurnOn
	if target == StateOff {
		service = ServiceTurnOff
	}
	if err := a.call(ctx, service, target); err != nil {
		return err
	}

	if a.display != nil {
		if target == StateOn {
			a.display.SetStatus(StatusActive)
		} else {
			a.display.SetStatus(StatusStopped)
		}
	}
	return nil
}

// readState maps configuration and lookup failures onto sentinel errors.
// It only logs; notifications are left to the switching path.
func (a *Actuator) readState(ctx context.Context) (string, error) {
	if !a.Configured() {
		a.logger.Debug("device not configured", "device", a.name)
		return "", fmt.Errorf("%s: %w", a.name, ErrNotConfigured)
	}
	if _, err := ParseDomain(a.entityID); err != nil {
		a.logger.Error("invalid entity reference", "device", a.name, "entity_id", a.entityID)
		return "", err
	}
	state, ok := a.host.ReadBinaryState(ctx, a.entityID)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrEntityNotFound, a.entityID)
		a.logger.Warn("entity not found", "device", a.name, "entity_id", a.entityID)
		return "", err
	}
	return state, nil
}

// call invokes the service with retries, then verifies the state if asked.
func (a *Actuator) call(ctx context.Context, service, target string) error {
	domain, err := ParseDomain(a.entityID)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= a.opts.MaxRetries; attempt++ {
		a.logger.Debug("calling service",
			"service", domain+"."+service,
			"entity_id", a.entityID,
			"attempt", attempt,
			"max_attempts", a.opts.MaxRetries,
		)

		lastErr = a.host.Invoke(ctx, domain, service, a.entityID)
		if lastErr == nil {
			break
		}
		if permanent(lastErr) {
			return lastErr
		}

		a.logger.Warn("service call failed",
			"service", domain+"."+service,
			"entity_id", a.entityID,
			"attempt", attempt,
			"error", lastErr,
		)
		if attempt < a.opts.MaxRetries {
			if err := sleep(ctx, a.opts.RetryDelay); err != nil {
				return err
			}
		}
	}

	if lastErr != nil {
		err := fmt.Errorf("%w: %s.%s on %s after %d attempts: %w",
			ErrServiceCall, domain, service, a.entityID, a.opts.MaxRetries, lastErr)
		a.logger.Error("service call gave up", "device", a.name, "error", err)
		a.notify(ctx, err.Error())
		return err
	}

	if a.opts.VerifyState {
		return a.verify(ctx, target)
	}
	return nil
}

// verify waits VerifyDelay, then polls until the entity reports target or
// VerifyTimeout elapses.
func (a *Actuator) verify(ctx context.Context, target string) error {
	if err := sleep(ctx, a.opts.VerifyDelay); err != nil {
		return err
	}

	deadline := time.Now().Add(a.opts.VerifyTimeout)
	actual := "unknown"
	for {
		if state, ok := a.host.ReadBinaryState(ctx, a.entityID); ok {
			actual = state
			if state == target {
				return nil
			}
		}
		if !time.Now().Before(deadline) {
			break
		}
		if err := sleep(ctx, a.opts.PollInterval); err != nil {
			return err
		}
	}

	err := fmt.Errorf("%w: %s expected %q, got %q", ErrStateVerification, a.entityID, target, actual)
	a.logger.Warn("state verification failed", "device", a.name, "error", err)
	a.notify(ctx, err.Error())
	return err
}

func (a *Actuator) notify(ctx context.Context, message string) {
	if a.notifier != nil {
		a.notifier.Notify(ctx, notificationTitle, message)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
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

// IsQuiet reports errors callers should log at debug level and otherwise
// ignore.
func IsQuiet(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}
