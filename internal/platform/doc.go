// Package platform connects the pool controller to the home automation
// host over MQTT.
//
// The host publishes every entity's state as a retained message on
// poolcontrol/entity/{entity_id}/state. Platform subscribes to all of them
// and keeps the latest value per entity in memory, which serves the
// controller's sensor reads and the device package's state reads without
// a round trip.
//
// Outbound traffic:
//
//	poolcontrol/entity/{id}/command   turn_on / turn_off requests (JSON)
//	poolcontrol/entity/{id}/set       numeric display values
//	poolcontrol/display/{name}        retained status texts
//	poolcontrol/notification/{uuid}   user notifications (JSON)
//
// Status texts are also kept on an in-memory Board so the HTTP API can
// serve them and push changes to WebSocket clients.
//
// Button presses arrive on poolcontrol/button/{name} and are handed to a
// Presser, normally the controller.
package platform
