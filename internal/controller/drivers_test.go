package controller

import (
	"context"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-pool/internal/device"
	"github.com/nerrad567/gray-logic-pool/internal/state"
)

func TestStart_RegistersCycleAndRunsOnce(t *testing.T) {
	h := newHarness(t, state.State{})
	ctx := context.Background()

	h.c.Start(ctx)
	if n := h.sched.Registered(time.Minute); n != 1 {
		t.Fatalf("cycle registrations = %d, want 1", n)
	}
	if !h.snapshot().HasWindow() {
		t.Error("the first cycle should compute a window")
	}
	if h.c.CountdownRunning() {
		t.Error("countdown should not run without a booster or backwash")
	}

	h.advance(time.Minute)
	if n := h.sched.Tick(ctx, time.Minute); n != 1 {
		t.Errorf("ticked %d cycles, want 1", n)
	}
	if n := len(h.telemetry.samples); n != 2 {
		t.Errorf("telemetry samples = %d, want 2", n)
	}

	h.c.Close()
	if n := h.sched.Registered(time.Minute); n != 0 {
		t.Errorf("cycle registrations after Close = %d, want 0", n)
	}
}

func TestStart_ResumesCountdown(t *testing.T) {
	tests := []struct {
		name    string
		initial state.State
	}{
		{"booster", state.State{BoosterActive: true, CountdownEnd: at(8, 3, 0).Unix()}},
		{"backwash", state.State{BackwashStep: BackwashRinsing, BackwashMode: state.ModeFlowThrough, CountdownEnd: at(8, 1, 0).Unix()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.initial)
			h.c.Start(context.Background())
			defer h.c.Close()

			if !h.c.CountdownRunning() {
				t.Error("countdown should resume after a restart")
			}
		})
	}
}

func TestCycle_RefreshEvery(t *testing.T) {
	h := newHarness(t, state.State{ForcedOn: true})
	h.host.set(entityFiltration, device.StateOn)
	ctx := context.Background()

	for i := range 5 {
		if err := h.c.Cycle(ctx); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}
	h.expectCalls()

	if err := h.c.Cycle(ctx); err != nil {
		t.Fatal(err)
	}
	h.expectCalls(on(entityFiltration), off(entityBooster), off(entityTreatment))

	if err := h.c.Cycle(ctx); err != nil {
		t.Fatal(err)
	}
	h.expectCalls()
}

func TestCycle_RecordsTelemetry(t *testing.T) {
	h := newHarness(t, state.State{ForcedOn: true})
	h.sensors.set(entityOutdoor, 4.5)

	if err := h.c.Cycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.telemetry.samples) != 1 {
		t.Fatalf("samples = %d, want 1", len(h.telemetry.samples))
	}
	got := h.telemetry.samples[0]
	if got.WaterTemp != 20 || got.OutdoorTemp != 4.5 {
		t.Errorf("temperatures = %v/%v", got.WaterTemp, got.OutdoorTemp)
	}
	if !got.FiltrationOn || got.BoosterOn || got.TreatmentOn {
		t.Errorf("devices = filtration %v booster %v treatment %v", got.FiltrationOn, got.BoosterOn, got.TreatmentOn)
	}
	if !got.ForcedOn || got.WindowStart == 0 || !got.Time.Equal(at(8, 0, 0)) {
		t.Errorf("sample = %+v", got)
	}
}

func TestCycle_WinterMode(t *testing.T) {
	h := newHarness(t, state.State{WinterMode: true})
	h.sensors.set(entityOutdoor, -5)

	if err := h.c.Cycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	s := h.snapshot()
	if !s.FrostLatch || !s.WinterActive {
		t.Errorf("latch=%v active=%v, want frost protection", s.FrostLatch, s.WinterActive)
	}
	if got := h.host.state(entityFiltration); got != device.StateOn {
		t.Errorf("filtration = %q, want on under frost", got)
	}
}
