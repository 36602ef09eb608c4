// Package message keeps the per-device log of inbound SMS messages.
//
// Each device has its own file (<id>_sms.json) holding its most recent
// messages, newest first, capped at a fixed number of entries. Appending
// past the cap silently drops the oldest message. Reads are paginated with
// Slice, which always reports the full stored count so callers can render
// "a-b of total" navigation.
package message
