// Package api implements the HTTP server for RelayDesk Core.
//
// It serves two audiences:
//   - Handset agents, on the legacy root routes (/connect, /commands, /sms,
//     /sms-status, /html-form-data). These keep the wire format the
//     deployed agents speak: JSON or form-encoded bodies, plain text
//     replies.
//   - Operators and tooling, on /api/v1 (health, devices, messages,
//     pending commands, audit trail, metrics) and the WebSocket event feed.
//
// # Architecture
//
// Device requests update the registry and stores synchronously, then
// publish an event.Event. Everything slower (operator notifications, MQTT,
// audit, telemetry, WebSocket broadcast) happens in event sinks so an
// agent's request never waits on the control channel.
//
// # Event feed
//
// Clients connect to the WebSocket path with optional "channels" (event
// types, or "*") and "devices" query parameters, and may change either
// later with subscribe/unsubscribe frames:
//
//	{"type":"subscribe","id":"1","payload":{"channels":["message.received"],"device_ids":["dev-1"]}}
//
// # Graceful Degradation
//
// Audit, MQTT and the database are optional. Endpoints that need a missing
// dependency answer 503; everything else keeps working.
package api
