// Package controller decides when the pool equipment runs.
//
// A Controller composes the persisted state store, the device actuators,
// the status displays and the scheduler. It exposes one method per user
// action (buttons) and the two periodic drivers:
//
//   - Cycle, every minute: reads the probes, recomputes the filtration
//     window when it has expired, resolves the season or winter status
//     flags and reconciles the devices with ActivateDevices.
//   - Countdown, every five seconds while the booster or a backwash
//     wash/rinse step is running: updates the remaining-time display and
//     ends the timed step when it expires.
//
// # Priority
//
// ActivateDevices applies, in order: total stop, the backwash valve mode,
// then the run flags (temperature schedule, solar, winter, booster,
// forced on). See engine.go.
//
// # Backwash
//
// The sand-filter backwash is a six-step sequence advanced by the
// backwash button and by the countdown:
//
//	0 idle ─▶ 1 wash position ─▶ 2 washing ─▶ 3 rinse position
//	                                │            │
//	                                └(rinse=0)─▶ 4 rinsing ─▶ 5 filtration position ─▶ 0
//
// Nothing advances while the booster runs.
//
// # Concurrency
//
// Operations are not serialised against each other. Every state change
// goes through state.Store.Update, which is atomic per call.
package controller
