// Package session implements the operator interaction state machine.
//
// An operator builds a device command in a few steps: pick a device, pick a
// SIM slot, then either type a destination number and a message (send flow)
// or choose enable/disable and, when enabling, a forwarding number (forward
// flow). The Engine keeps one Session per operator, validates every step and
// performs exactly one enqueue when the flow completes.
//
// # Stages
//
//	send:     awaiting_target → awaiting_slot → awaiting_number → awaiting_text → commit
//	forward:  awaiting_target → awaiting_slot → awaiting_mode → [awaiting_number] → commit
//
// Device, slot and mode choices arrive as Selectors (button presses);
// numbers and message bodies arrive as free text. Typing "cancel" or
// "/cancel" at any stage discards the session. A session idle for longer
// than its TTL is discarded the next time the operator types anything.
//
// # Results
//
// Engine methods return a Result describing what happened (prompt for the
// next step, invalid input, cancelled, committed, target gone). Rendering
// those results into chat messages is the console's job.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Inputs for different operators never
// block each other on I/O; the session map lock is not held while enqueuing.
package session
