package mqtt

import (
	"strings"

	"github.com/relaydesk/relaydesk-core/internal/event"
)

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "relaydesk"

// Topics builds RelayDesk topic names under a prefix:
//
//	<prefix>/event/<type>/<device_id>     every event, not retained
//	<prefix>/device/<device_id>/presence  retained online/offline state
//	<prefix>/system/status                retained service status and LWT
type Topics struct {
	prefix string
}

// NewTopics returns a builder for prefix. Surrounding slashes are trimmed.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic prefix.
func (t Topics) Prefix() string { return t.prefix }

// Event returns the topic for an event of type typ about deviceID.
func (t Topics) Event(typ event.Type, deviceID string) string {
	return t.prefix + "/event/" + string(typ) + "/" + deviceID
}

// Presence returns the retained presence topic for deviceID.
func (t Topics) Presence(deviceID string) string {
	return t.prefix + "/device/" + deviceID + "/presence"
}

// SystemStatus returns the retained service status topic.
func (t Topics) SystemStatus() string {
	return t.prefix + "/system/status"
}

// AllEvents returns a subscription filter matching every event topic.
func (t Topics) AllEvents() string {
	return t.prefix + "/event/#"
}
