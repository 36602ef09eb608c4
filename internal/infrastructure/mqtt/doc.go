// Package mqtt mirrors RelayDesk device activity onto an MQTT broker.
//
// The integration is publish-only. Other systems subscribe to:
//
//	relaydesk/event/<type>/<device_id>     one message per bus event
//	relaydesk/device/<device_id>/presence  retained online/offline state
//	relaydesk/system/status                retained service status (LWT)
//
// The prefix is configurable via mqtt.topic_prefix.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	bus.Register(mqtt.NewSink(client, client.Topics(), client.QoS()))
//
// # Reconnection
//
// paho reconnects automatically with exponential backoff. Publishes made
// while disconnected fail with ErrNotConnected; the event bus logs and drops
// them, so retained presence catches up on the next check-in.
package mqtt
