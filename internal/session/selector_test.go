package session

import (
	"errors"
	"testing"
)

func TestSelector_RoundTrip(t *testing.T) {
	tests := []struct {
		sel  Selector
		wire string
	}{
		{sel: PickDevice(FlowSend, "dev-1"), wire: "send.device:dev-1"},
		{sel: PickDevice(FlowForward, "dev-1"), wire: "fwd.device:dev-1"},
		{sel: PickSlot(FlowSend, "dev-1", 2), wire: "send.slot:dev-1:2"},
		{sel: PickSlot(FlowForward, "dev-1", 1), wire: "fwd.slot:dev-1:1"},
		{sel: PickMode("dev-1", 2, true), wire: "fwd.mode:dev-1:2:on"},
		{sel: PickMode("dev-1", 1, false), wire: "fwd.mode:dev-1:1:off"},
		{sel: PageMessages("dev-1", 40), wire: "sms.page:dev-1:40"},
		{sel: BackToDevices(FlowForward), wire: "back.devices:fwd"},
	}

	for _, tt := range tests {
		t.Run(tt.wire, func(t *testing.T) {
			if got := tt.sel.String(); got != tt.wire {
				t.Errorf("String() = %q, want %q", got, tt.wire)
			}
			parsed, err := ParseSelector(tt.wire)
			if err != nil {
				t.Fatalf("ParseSelector() error = %v", err)
			}
			if parsed != tt.sel {
				t.Errorf("ParseSelector() = %+v, want %+v", parsed, tt.sel)
			}
		})
	}
}

func TestParseSelector_Invalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"send.device",
		"send.device:",
		"send.slot:dev-1",
		"send.slot:dev-1:3",
		"fwd.mode:dev-1:1:maybe",
		"fwd.mode:dev-1:x:on",
		"sms.page:dev-1:abc",
		"back.devices:nowhere",
		"reboot:dev-1",
		"send.device:dev-1:extra",
	} {
		if _, err := ParseSelector(raw); !errors.Is(err, ErrInvalidSelector) {
			t.Errorf("ParseSelector(%q) error = %v, want ErrInvalidSelector", raw, err)
		}
	}
}

func TestParseSelector_NegativeOffsetClamped(t *testing.T) {
	sel, err := ParseSelector("sms.page:dev-1:-20")
	if err != nil {
		t.Fatal(err)
	}
	if sel.Offset != 0 {
		t.Errorf("Offset = %d, want 0", sel.Offset)
	}
}

func TestSanitizePhone(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: "+919876543210", want: "+919876543210", ok: true},
		{raw: "+91 98765-43210", want: "+919876543210", ok: true},
		{raw: "(030) 1234 5678", want: "03012345678", ok: true},
		{raw: "12345678", want: "12345678", ok: true},
		{raw: "123456789012345", want: "123456789012345", ok: true},
		{raw: "1234567", ok: false},
		{raw: "1234567890123456", ok: false},
		{raw: "abc", ok: false},
		{raw: "", ok: false},
		{raw: "12+345678901", ok: false},
	}
	for _, tt := range tests {
		got, ok := SanitizePhone(tt.raw)
		if ok != tt.ok || got != tt.want {
			t.Errorf("SanitizePhone(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIsCancel(t *testing.T) {
	for _, in := range []string{"cancel", "Cancel", "/cancel", "/CANCEL", "  cancel  "} {
		if !IsCancel(in) {
			t.Errorf("IsCancel(%q) = false", in)
		}
	}
	for _, in := range []string{"", "cancelled", "please cancel"} {
		if IsCancel(in) {
			t.Errorf("IsCancel(%q) = true", in)
		}
	}
}
