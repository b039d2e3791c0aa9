// Package api implements the HTTP REST API and WebSocket server of the
// pool controller.
//
// This package provides:
//   - read endpoints for the persisted state and the status displays
//   - button presses, handed to the controller asynchronously
//   - a WebSocket hub broadcasting display changes
//   - JWT bearer authentication with viewer and operator roles
//   - middleware stack (request ID, logging, recovery, CORS)
//
// # Security
//
// Every route except /health requires a bearer token signed with
// api.auth.jwt_secret. WebSocket clients pass the token in the "token"
// query parameter because browsers cannot set headers on the upgrade.
// An empty secret disables authentication; New logs a warning.
//
// # Graceful Degradation
//
// The API keeps serving when the MQTT broker is down; /health reports
// the broker link as degraded.
package api
