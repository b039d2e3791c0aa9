package controller

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-pool/internal/device"
)

// Sensors reads probe values from the host platform.
type Sensors interface {
	// ReadNumeric returns the entity's value, or 0 when it is missing or
	// not a number.
	ReadNumeric(entityID string) float64
	// ReadSunrise returns the sunrise as "HH:MM", defaulting to "06:00".
	ReadSunrise(entityID string) string
}

// Actuator is an on/off device. *device.Actuator implements it.
type Actuator interface {
	Configured() bool
	IsOn(ctx context.Context) (bool, error)
	TurnOn(ctx context.Context, force bool) error
	TurnOff(ctx context.Context, force bool) error
	Refresh(ctx context.Context) error
}

// Display shows a status text.
type Display interface {
	SetStatus(text string)
}

// NumericDisplay shows a number, such as the last water temperature.
type NumericDisplay interface {
	SetNumeric(value float64)
}

// Notifier raises a user-facing notification.
type Notifier interface {
	Notify(ctx context.Context, title, message string)
}

// Telemetry receives one Sample per cycle.
type Telemetry interface {
	RecordCycle(s Sample)
}

// Sample describes one completed cycle.
type Sample struct {
	Time           time.Time
	WinterMode     bool
	WaterTemp      float64
	OutdoorTemp    float64
	TemperatureMax float64
	FiltrationOn   bool
	TreatmentOn    bool
	BoosterOn      bool
	BackwashStep   int
	FrostLatch     bool
	ForcedOn       bool
	TotalStop      bool
	WindowStart    int64
	WindowEnd      int64
	Duration       time.Duration
}

// Logger is the logging interface used by the controller.
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

// unbound stands in for a role with no actuator wired.
type unbound struct{}

func (unbound) Configured() bool                    { return false }
func (unbound) IsOn(context.Context) (bool, error)  { return false, device.ErrNotConfigured }
func (unbound) TurnOn(context.Context, bool) error  { return device.ErrNotConfigured }
func (unbound) TurnOff(context.Context, bool) error { return device.ErrNotConfigured }
func (unbound) Refresh(context.Context) error       { return device.ErrNotConfigured }
