// Package influxdb records RelayDesk device telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library and is fed from the
// event bus through Sink:
//
//	device_battery   tags: device_id, model   fields: percent
//	device_activity  tags: device_id, kind    fields: count
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	bus.Register(influxdb.NewSink(client))
//
// # Error Handling
//
// Writes are non-blocking and batched (batch_size, flush_interval). Batch
// failures are delivered to the SetOnError callback; connection and health
// check errors are returned directly.
package influxdb
