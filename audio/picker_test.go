package audio

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		in   string
		want pickKey
	}{
		{"\x1b[A", keyUp},
		{"\x1b[B", keyDown},
		{"\x1b[C", keyNone},
		{"k", keyUp},
		{"j", keyDown},
		{"\r", keyEnter},
		{"\x03", keyAbort},
		{"\x1b", keyAbort},
		{"x", keyNone},
		{"ab", keyNone},
	}
	for _, tt := range tests {
		if got := parseKey([]byte(tt.in)); got != tt.want {
			t.Errorf("parseKey(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPickerCursorClamps(t *testing.T) {
	p := &picker{devices: []DeviceInfo{{Name: "a"}, {Name: "b"}, {Name: "c"}}}
	for _, k := range []pickKey{keyUp, keyDown, keyDown, keyDown, keyDown} {
		if done, _ := p.press(k); done {
			t.Fatalf("key %v ended selection", k)
		}
	}
	if p.cursor != 2 {
		t.Fatalf("cursor = %d, want 2", p.cursor)
	}
	done, err := p.press(keyEnter)
	if !done || err != nil {
		t.Fatalf("enter: done=%v err=%v", done, err)
	}
	if p.selected().Name != "c" {
		t.Errorf("selected %q, want c", p.selected().Name)
	}
}

func TestPickerAbort(t *testing.T) {
	p := &picker{devices: []DeviceInfo{{Name: "a"}, {Name: "b"}}}
	done, err := p.press(keyAbort)
	if !done || !errors.Is(err, ErrSelectionAborted) {
		t.Errorf("abort: done=%v err=%v", done, err)
	}
}

func TestPickerRender(t *testing.T) {
	p := &picker{devices: []DeviceInfo{{Name: "Built-in Mic"}, {Name: "AirPods Pro"}}, cursor: 1}
	var buf bytes.Buffer
	p.render(&buf)
	out := buf.String()

	if got := strings.Count(out, "\r\n"); got != p.lines() {
		t.Errorf("rendered %d lines, want %d", got, p.lines())
	}
	if !strings.Contains(out, "    Built-in Mic\r\n") {
		t.Errorf("unselected device not indented:\n%q", out)
	}
	if !strings.Contains(out, "> AirPods Pro") || !strings.Contains(out, "bluetooth") {
		t.Errorf("selected bluetooth device not marked:\n%q", out)
	}
}

type listContext struct {
	devices []DeviceInfo
	err     error
}

func (l listContext) Devices() ([]DeviceInfo, error) { return l.devices, l.err }
func (l listContext) NewCapture(*DeviceInfo, CaptureConfig) (CaptureDevice, error) {
	return nil, errors.New("not supported")
}
func (l listContext) Close() {}

func TestSelectDeviceWithoutPrompt(t *testing.T) {
	if _, err := SelectDevice(listContext{}); err == nil {
		t.Error("no devices: expected an error")
	}
	if _, err := SelectDevice(listContext{err: errors.New("boom")}); err == nil {
		t.Error("enumeration failure: expected an error")
	}
	d, err := SelectDevice(listContext{devices: []DeviceInfo{{ID: "1", Name: "only"}}})
	if err != nil || d.Name != "only" {
		t.Errorf("single device: %v, %v", d, err)
	}
}
