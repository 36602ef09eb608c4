package influxdb

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/relaydesk/relaydesk-core/internal/device"
	"github.com/relaydesk/relaydesk-core/internal/event"
	"github.com/relaydesk/relaydesk-core/internal/infrastructure/config"
)

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestBatchSettings(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.InfluxDBConfig
		wantSize  int
		wantFlush int
	}{
		{name: "defaults", cfg: config.InfluxDBConfig{}, wantSize: 100, wantFlush: 10},
		{name: "negative", cfg: config.InfluxDBConfig{BatchSize: -5, FlushInterval: -1}, wantSize: 100, wantFlush: 10},
		{name: "configured", cfg: config.InfluxDBConfig{BatchSize: 500, FlushInterval: 2}, wantSize: 500, wantFlush: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, flush := batchSettings(tt.cfg)
			if size != tt.wantSize || flush != tt.wantFlush {
				t.Errorf("batchSettings() = %d, %d; want %d, %d", size, flush, tt.wantSize, tt.wantFlush)
			}
		})
	}
}

func TestClient_NotConnected(t *testing.T) {
	c := &Client{}
	if c.IsConnected() {
		t.Error("zero Client reports connected")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	// Writes and Flush on a disconnected client are no-ops.
	c.WriteBattery("dev-1", "Pixel", 50, time.Now())
	c.Flush()
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestClient_ForwardErrorsWrapsWriteFailed(t *testing.T) {
	c := &Client{}
	got := make(chan error, 2)
	c.SetOnError(func(err error) { got <- err })

	errs := make(chan error, 1)
	errs <- errors.New("422 unprocessable entity")
	close(errs)
	c.forwardErrors(errs)

	select {
	case err := <-got:
		if !errors.Is(err, ErrWriteFailed) || !strings.Contains(err.Error(), "422") {
			t.Errorf("callback error = %v, want ErrWriteFailed wrapping the cause", err)
		}
	default:
		t.Fatal("callback not invoked")
	}
}

type batteryPoint struct {
	deviceID string
	model    string
	percent  int
}

type fakeWriter struct {
	battery  []batteryPoint
	activity []string
}

func (f *fakeWriter) WriteBattery(deviceID, model string, percent int, _ time.Time) {
	f.battery = append(f.battery, batteryPoint{deviceID, model, percent})
}

func (f *fakeWriter) WriteActivity(deviceID, kind string, _ time.Time) {
	f.activity = append(f.activity, deviceID+"/"+kind)
}

func TestSink_Handle(t *testing.T) {
	w := &fakeWriter{}
	sink := NewSink(w)
	ctx := context.Background()
	dev := &device.Device{ID: "dev-1", Attributes: device.Attributes{Model: "Pixel 7", Battery: 81}}

	events := []event.Event{
		{Type: event.DeviceConnected, DeviceID: "dev-1", Device: dev},
		{Type: event.DeviceCheckedIn, DeviceID: "dev-1"},
		{Type: event.MessageReceived, DeviceID: "dev-1"},
		{Type: event.SendReported, DeviceID: "dev-1"},
		{Type: event.DeviceEvicted, DeviceID: "dev-1"},
	}
	for _, e := range events {
		if err := sink.Handle(ctx, e); err != nil {
			t.Fatalf("Handle(%s) error = %v", e.Type, err)
		}
	}

	if len(w.battery) != 1 || w.battery[0] != (batteryPoint{"dev-1", "Pixel 7", 81}) {
		t.Errorf("battery points = %+v", w.battery)
	}
	want := []string{"dev-1/message.received", "dev-1/send.outcome"}
	if len(w.activity) != len(want) {
		t.Fatalf("activity = %v, want %v", w.activity, want)
	}
	for i := range want {
		if w.activity[i] != want[i] {
			t.Errorf("activity[%d] = %q, want %q", i, w.activity[i], want[i])
		}
	}
	if sink.Name() != "influxdb" {
		t.Errorf("Name() = %q", sink.Name())
	}
}
