// Package device provides the in-memory Device Registry for RelayDesk Core.
//
// The registry is the process-lifetime catalogue of every handset that has
// checked in. It is the only source of truth for which devices exist, which
// of them are online, and which are valid targets for operator commands.
// Nothing here is persisted; a restart starts with an empty registry and
// devices re-appear on their next check-in.
//
// # Lifecycle
//
//	check-in (POST /connect)  → Upsert: record replaced, lastSeen = now
//	poll (GET /commands)      → Touch:  lastSeen = now if known
//	sweep (every 60s)         → Sweep:  drop devices silent for > 5 minutes
//
// Online is derived on read: a device is online while now - lastSeen is
// below the online window (60s by default).
//
// # Key Types
//
//   - Device: Snapshot of one handset's last reported attributes
//   - Attributes: The check-in payload (model, battery, two SIM slots)
//   - Registry: Thread-safe, insertion-ordered store of Devices
//
// # Usage
//
//	registry := device.NewRegistry(time.Minute)
//	registry.SetLogger(log)
//
//	if err := registry.Upsert(id, device.Attributes{Model: "Pixel 7"}); err != nil {
//	    return err
//	}
//	go registry.RunSweeper(ctx, time.Minute, 5*time.Minute, onEvict)
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. Returned Devices are
// copies; callers may modify them freely.
package device
