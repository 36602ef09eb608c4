// Package event fans device-channel activity out to side-effect sinks.
//
// HTTP handlers publish an Event for every check-in, inbound message, send
// report and form submission. The Bus hands each event to every registered
// Sink (operator notifications, MQTT, WebSocket feed, audit trail,
// telemetry) without ever blocking the publisher: each sink has its own
// buffered queue and worker goroutine. Events for one sink are delivered in
// publish order. A full queue drops the event for that sink and logs a
// warning; sink errors and panics are logged and otherwise ignored.
package event
