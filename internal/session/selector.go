package session

import (
	"fmt"
	"strconv"
	"strings"
)

// Flow is the kind of command a session is building.
type Flow string

const (
	// FlowSend builds a send_sms command.
	FlowSend Flow = "send"

	// FlowForward builds an sms_forward command.
	FlowForward Flow = "fwd"
)

// Action is the selector variant.
type Action string

const (
	ActionPickDevice Action = "device"
	ActionPickSlot   Action = "slot"
	ActionPickMode   Action = "mode"
	ActionPage       Action = "page"
	ActionBack       Action = "back"
)

// Selector is a decoded button press.
//
// Only the fields relevant to Action are set:
//   - device: Flow, DeviceID
//   - slot:   Flow, DeviceID, SIM
//   - mode:   DeviceID, SIM, Enable (forward flow only)
//   - page:   DeviceID, Offset
//   - back:   Flow
type Selector struct {
	Action   Action
	Flow     Flow
	DeviceID string
	SIM      int
	Enable   bool
	Offset   int
}

// PickDevice selects the target device for flow.
func PickDevice(flow Flow, deviceID string) Selector {
	return Selector{Action: ActionPickDevice, Flow: flow, DeviceID: deviceID}
}

// PickSlot selects SIM slot sim on deviceID for flow.
func PickSlot(flow Flow, deviceID string, sim int) Selector {
	return Selector{Action: ActionPickSlot, Flow: flow, DeviceID: deviceID, SIM: sim}
}

// PickMode enables or disables forwarding for a slot.
func PickMode(deviceID string, sim int, enable bool) Selector {
	return Selector{Action: ActionPickMode, Flow: FlowForward, DeviceID: deviceID, SIM: sim, Enable: enable}
}

// PageMessages shows deviceID's message log starting at offset.
func PageMessages(deviceID string, offset int) Selector {
	return Selector{Action: ActionPage, DeviceID: deviceID, Offset: offset}
}

// BackToDevices returns to the device picker for flow.
func BackToDevices(flow Flow) Selector {
	return Selector{Action: ActionBack, Flow: flow}
}

// String encodes the selector as a compact "flow.action:arg:arg" payload
// suitable for a chat button value.
func (s Selector) String() string {
	switch s.Action {
	case ActionPickDevice:
		return fmt.Sprintf("%s.device:%s", s.Flow, s.DeviceID)
	case ActionPickSlot:
		return fmt.Sprintf("%s.slot:%s:%d", s.Flow, s.DeviceID, s.SIM)
	case ActionPickMode:
		mode := "off"
		if s.Enable {
			mode = "on"
		}
		return fmt.Sprintf("fwd.mode:%s:%d:%s", s.DeviceID, s.SIM, mode)
	case ActionPage:
		return fmt.Sprintf("sms.page:%s:%d", s.DeviceID, s.Offset)
	case ActionBack:
		return fmt.Sprintf("back.devices:%s", s.Flow)
	default:
		return ""
	}
}

// ParseSelector decodes a payload produced by Selector.String.
func ParseSelector(raw string) (Selector, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || parts[1] == "" {
		return Selector{}, fmt.Errorf("%w: %q", ErrInvalidSelector, raw)
	}

	head, args := parts[0], parts[1:]
	bad := func() (Selector, error) {
		return Selector{}, fmt.Errorf("%w: %q", ErrInvalidSelector, raw)
	}

	switch head {
	case "send.device", "fwd.device":
		if len(args) != 1 {
			return bad()
		}
		return PickDevice(flowOf(head), args[0]), nil

	case "send.slot", "fwd.slot":
		if len(args) != 2 {
			return bad()
		}
		sim, ok := parseSIM(args[1])
		if !ok {
			return bad()
		}
		return PickSlot(flowOf(head), args[0], sim), nil

	case "fwd.mode":
		if len(args) != 3 {
			return bad()
		}
		sim, ok := parseSIM(args[1])
		if !ok {
			return bad()
		}
		switch args[2] {
		case "on":
			return PickMode(args[0], sim, true), nil
		case "off":
			return PickMode(args[0], sim, false), nil
		default:
			return bad()
		}

	case "sms.page":
		if len(args) != 2 {
			return bad()
		}
		offset, err := strconv.Atoi(args[1])
		if err != nil {
			return bad()
		}
		if offset < 0 {
			offset = 0
		}
		return PageMessages(args[0], offset), nil

	case "back.devices":
		if len(args) != 1 {
			return bad()
		}
		switch Flow(args[0]) {
		case FlowSend, FlowForward:
			return BackToDevices(Flow(args[0])), nil
		default:
			return bad()
		}
	}
	return bad()
}

func flowOf(head string) Flow {
	if strings.HasPrefix(head, "fwd.") {
		return FlowForward
	}
	return FlowSend
}

func parseSIM(s string) (int, bool) {
	switch s {
	case "1":
		return 1, true
	case "2":
		return 2, true
	default:
		return 0, false
	}
}
