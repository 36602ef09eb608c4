// Package command implements the per-device command queue.
//
// Operators enqueue commands for a device; the device collects them by
// polling GET /commands, which drains its whole queue in one step. Delivery
// is at-most-once: once a poll has returned a command it is gone from the
// queue, whether or not the handset manages to execute it.
//
// # Components
//
//   - Command: Tagged record sent to handsets (send_sms, sms_forward)
//   - Store: Durable map of device id to pending commands, persisted as a
//     single JSON file rewritten atomically on every mutation
//   - Service: Validating front door used by the HTTP layer, the operator
//     console and the CLI
//
// # Wire Format
//
//	{"type":"send_sms","sim":1,"to":"+919876543210","message":"hello"}
//	{"type":"sms_forward","action":"on","sim":2,"number":"+4915112345678"}
//	{"type":"sms_forward","action":"off","sim":2}
//
// # Thread Safety
//
// Store serialises every read-modify-write cycle with one mutex, so an
// enqueue racing a drain for the same device either lands in that drain's
// result or stays queued for the next poll. Nothing is lost in between.
package command
