package controller

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-pool/internal/device"
	"github.com/nerrad567/gray-logic-pool/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-pool/internal/scheduler"
	"github.com/nerrad567/gray-logic-pool/internal/state"
)

const (
	entityWater      = "sensor.pool_water"
	entityOutdoor    = "sensor.outdoor"
	entitySunrise    = "sensor.sun_next_rising"
	entityFiltration = "switch.pool_pump"
	entityTreatment  = "switch.chlorinator"
	entityBooster    = "switch.booster"
)

// fakeHost records every service call as "entity service" and applies it.
type fakeHost struct {
	mu     sync.Mutex
	states map[string]string
	calls  []string
}

func (h *fakeHost) ReadBinaryState(_ context.Context, entityID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.states[entityID]
	return s, ok
}

func (h *fakeHost) Invoke(_ context.Context, _, service, entityID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, entityID+" "+service)
	if service == device.ServiceTurnOn {
		h.states[entityID] = device.StateOn
	} else {
		h.states[entityID] = device.StateOff
	}
	return nil
}

func (h *fakeHost) set(entityID, s string) {
	h.mu.Lock()
	h.states[entityID] = s
	h.mu.Unlock()
}

func (h *fakeHost) state(entityID string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.states[entityID]
}

func (h *fakeHost) takeCalls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	calls := h.calls
	h.calls = nil
	return calls
}

type fakeSensors struct {
	mu      sync.Mutex
	values  map[string]float64
	sunrise string
	panics  bool
}

func (s *fakeSensors) ReadNumeric(entityID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panics {
		panic("probe exploded")
	}
	return s.values[entityID]
}

func (s *fakeSensors) ReadSunrise(string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sunrise == "" {
		return "06:00"
	}
	return s.sunrise
}

func (s *fakeSensors) set(entityID string, v float64) {
	s.mu.Lock()
	s.values[entityID] = v
	s.mu.Unlock()
}

type textDisplay struct {
	mu    sync.Mutex
	texts []string
}

func (d *textDisplay) SetStatus(text string) {
	d.mu.Lock()
	d.texts = append(d.texts, text)
	d.mu.Unlock()
}

func (d *textDisplay) last() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.texts) == 0 {
		return ""
	}
	return d.texts[len(d.texts)-1]
}

type numericDisplay struct {
	mu     sync.Mutex
	values []float64
}

func (d *numericDisplay) SetNumeric(v float64) {
	d.mu.Lock()
	d.values = append(d.values, v)
	d.mu.Unlock()
}

func (d *numericDisplay) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.values)
}

type notification struct{ title, message string }

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *fakeNotifier) Notify(_ context.Context, title, message string) {
	n.mu.Lock()
	n.sent = append(n.sent, notification{title, message})
	n.mu.Unlock()
}

type fakeTelemetry struct {
	mu      sync.Mutex
	samples []Sample
}

func (f *fakeTelemetry) RecordCycle(s Sample) {
	f.mu.Lock()
	f.samples = append(f.samples, s)
	f.mu.Unlock()
}

type nopRepository struct{}

func (nopRepository) Load(context.Context) (*state.State, error) { return &state.State{}, nil }
func (nopRepository) Save(context.Context, state.State) error    { return nil }

// harness wires a Controller to in-memory fakes and a manual clock.
type harness struct {
	t *testing.T
	c *Controller

	host      *fakeHost
	sensors   *fakeSensors
	store     *state.Store
	sched     *scheduler.Manual
	notifier  *fakeNotifier
	telemetry *fakeTelemetry

	control, duration, schedule, booster, backwash, filtration *textDisplay
	temperature                                                *numericDisplay

	clockMu sync.Mutex
	clock   time.Time
	sleeps  int
}

func testPoolConfig() config.PoolConfig {
	return config.PoolConfig{
		Entities: config.EntitiesConfig{
			WaterTemperature:   entityWater,
			OutdoorTemperature: entityOutdoor,
			Sunrise:            entitySunrise,
			Filtration:         entityFiltration,
			Treatment:          entityTreatment,
			Booster:            entityBooster,
		},
		Season: config.SeasonConfig{
			Method:       config.MethodCurve,
			Pivot:        "13:00",
			Distribution: 1,
			Coefficient:  1,
		},
		Winter: config.WinterConfig{
			Coefficient:         1,
			MinimumHours:        3,
			Distribution:        4,
			PivotSource:         config.PivotSunrise,
			Pivot:               "06:00",
			SecurityTemperature: -2,
			Hysteresis:          0.5,
		},
		Booster:  config.BoosterConfig{Minutes: 5},
		Backwash: config.BackwashConfig{WashMinutes: 2, RinseMinutes: 2},
		Timing: config.TimingConfig{
			CycleInterval:     time.Minute,
			CountdownInterval: 5 * time.Second,
			SettleDelay:       2 * time.Second,
			RefreshEvery:      5,
		},
		Actions: config.ActionsConfig{MaxRetries: 1},
	}
}

// at returns 2026-06-15 hh:mm:ss UTC.
func at(hh, mm, ss int) time.Time {
	return time.Date(2026, time.June, 15, hh, mm, ss, 0, time.UTC)
}

func newHarness(t *testing.T, initial state.State, tweak ...func(*config.PoolConfig)) *harness {
	t.Helper()

	cfg := testPoolConfig()
	for _, fn := range tweak {
		fn(&cfg)
	}

	h := &harness{
		t: t,
		host: &fakeHost{states: map[string]string{
			entityFiltration: device.StateOff,
			entityTreatment:  device.StateOff,
			entityBooster:    device.StateOff,
		}},
		sensors:     &fakeSensors{values: map[string]float64{entityWater: 20, entityOutdoor: 10}},
		sched:       scheduler.NewManual(),
		notifier:    &fakeNotifier{},
		telemetry:   &fakeTelemetry{},
		control:     &textDisplay{},
		duration:    &textDisplay{},
		schedule:    &textDisplay{},
		booster:     &textDisplay{},
		backwash:    &textDisplay{},
		filtration:  &textDisplay{},
		temperature: &numericDisplay{},
		clock:       at(8, 0, 0),
	}
	h.store = state.NewStore(nopRepository{}, initial)
	t.Cleanup(func() { h.store.Close(context.Background()) })

	opts := device.Options{MaxRetries: 1}
	filtration := device.NewActuator("filtration", cfg.Entities.Filtration, h.host, opts)
	filtration.SetDisplay(h.filtration)

	c, err := New(cfg, Deps{
		Store:      h.store,
		Sensors:    h.sensors,
		Scheduler:  h.sched,
		Filtration: filtration,
		Treatment:  device.NewActuator("treatment", cfg.Entities.Treatment, h.host, opts),
		Treatment2: device.NewActuator("treatment_2", cfg.Entities.Treatment2, h.host, opts),
		Booster:    device.NewActuator("booster", cfg.Entities.Booster, h.host, opts),
		Displays: Displays{
			Control:            h.control,
			FiltrationTime:     h.duration,
			FiltrationSchedule: h.schedule,
			Booster:            h.booster,
			Backwash:           h.backwash,
			Temperature:        h.temperature,
		},
		Notifier:  h.notifier,
		Telemetry: h.telemetry,
		Location:  time.UTC,
		Now:       h.now,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			h.clockMu.Lock()
			h.sleeps++
			h.clockMu.Unlock()
			return ctx.Err()
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.c = c
	return h
}

func (h *harness) now() time.Time {
	h.clockMu.Lock()
	defer h.clockMu.Unlock()
	return h.clock
}

func (h *harness) setClock(t time.Time) {
	h.clockMu.Lock()
	h.clock = t
	h.clockMu.Unlock()
}

func (h *harness) advance(d time.Duration) {
	h.clockMu.Lock()
	h.clock = h.clock.Add(d)
	h.clockMu.Unlock()
}

func (h *harness) sleepCount() int {
	h.clockMu.Lock()
	defer h.clockMu.Unlock()
	return h.sleeps
}

func (h *harness) snapshot() state.State {
	return h.store.Snapshot()
}

func (h *harness) update(fn func(*state.State)) {
	h.store.Update(fn)
}

func (h *harness) expectCalls(want ...string) {
	h.t.Helper()
	got := h.host.takeCalls()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		h.t.Errorf("service calls = %v, want %v", got, want)
	}
}

func on(entity string) string  { return entity + " " + device.ServiceTurnOn }
func off(entity string) string { return entity + " " + device.ServiceTurnOff }

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(testPoolConfig(), Deps{}); err == nil {
		t.Error("New without store, sensors and scheduler should fail")
	}
}

func TestTreatments_SkipsUnconfigured(t *testing.T) {
	h := newHarness(t, state.State{})
	if n := len(h.c.treatments()); n != 1 {
		t.Errorf("treatments() = %d, want 1 (treatment_2 unbound)", n)
	}

	h2 := newHarness(t, state.State{}, func(cfg *config.PoolConfig) {
		cfg.Entities.Treatment2 = "switch.ph_pump"
	})
	if n := len(h2.c.treatments()); n != 2 {
		t.Errorf("treatments() = %d, want 2", n)
	}
}

func TestGuard_RecoversPanic(t *testing.T) {
	h := newHarness(t, state.State{})
	h.sensors.panics = true

	err := h.c.Cycle(context.Background())
	if err == nil {
		t.Fatal("Cycle should report the recovered panic")
	}
	if len(h.notifier.sent) != 1 || h.notifier.sent[0].title != "Pool Control - Cycle error" {
		t.Errorf("notifications = %+v, want one titled %q", h.notifier.sent, "Pool Control - Cycle error")
	}
}

func TestGuard_QuietOnCancelledContext(t *testing.T) {
	h := newHarness(t, state.State{TemperatureActive: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.c.ActivateDevices(ctx); err == nil {
		t.Error("ActivateDevices should stop at the settle delay when cancelled")
	}
	if len(h.notifier.sent) != 0 {
		t.Errorf("notifications on shutdown = %+v, want none", h.notifier.sent)
	}
}
