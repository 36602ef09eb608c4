package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by RelayDesk.
const (
	MeasurementBattery  = "device_battery"
	MeasurementActivity = "device_activity"
)

// WriteBattery records a handset's reported battery percentage.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Device identity from the check-in
//   - model: Reported model, stored as a tag when non-empty
//   - percent: Battery level 0-100
//   - at: Check-in time
func (c *Client) WriteBattery(deviceID, model string, percent int, at time.Time) {
	tags := map[string]string{"device_id": deviceID}
	if model != "" {
		tags["model"] = model
	}
	c.WritePointWithTime(MeasurementBattery, tags, map[string]interface{}{"percent": percent}, at)
}

// WriteActivity counts one unit of channel activity (an event type such as
// "message.received") for a device.
func (c *Client) WriteActivity(deviceID, kind string, at time.Time) {
	c.WritePointWithTime(MeasurementActivity,
		map[string]string{"device_id": deviceID, "kind": kind},
		map[string]interface{}{"count": 1},
		at,
	)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
