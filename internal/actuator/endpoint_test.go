package actuator

import (
	"testing"

	"github.com/ayusman/handmirror/internal/kinematics"
)

func TestParseCommand(t *testing.T) {
	angles, err := ParseCommand("T:10,I:20,M:30,R:40,P:50,H:60\n")
	if err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	want := kinematics.Angles{Thumb: 10, Index: 20, Middle: 30, Ring: 40, Pinky: 50, Hand: 60}
	if angles != want {
		t.Errorf("ParseCommand() = %+v, want %+v", angles, want)
	}
}

func TestParseCommand_ClampsIndependently(t *testing.T) {
	// The endpoint clamps regardless of what the sender did, so a corrupted
	// value never reaches the servos out of range.
	angles, err := ParseCommand("T:999,I:-5,M:90,R:179,P:0,H:300")
	if err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	if angles.Thumb != 179 || angles.Index != 0 || angles.Hand != 179 {
		t.Errorf("ParseCommand() = %+v, want clamped fields", angles)
	}
}

func TestParseCommand_Rejections(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"wrong label order", "I:10,T:20,M:30,R:40,P:50,H:60"},
		{"missing field", "T:10,I:20,M:30,R:40,P:50"},
		{"non-numeric", "T:ten,I:20,M:30,R:40,P:50,H:60"},
		{"no labels", "10,20,30,40,50,60"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCommand(tt.line); err == nil {
				t.Errorf("ParseCommand(%q) accepted invalid frame", tt.line)
			}
		})
	}
}

func TestAckLine(t *testing.T) {
	got := AckLine(kinematics.Angles{Thumb: 1, Index: 2, Middle: 3, Ring: 4, Pinky: 5, Hand: 6})
	if got != "ACK:1,2,3,4,5,6\n" {
		t.Errorf("AckLine() = %q", got)
	}
}

func TestRoundTrip_CommandToAck(t *testing.T) {
	sent := kinematics.Angles{Thumb: 45, Index: 90, Middle: 135, Ring: 0, Pinky: 179, Hand: 88}

	parsed, err := ParseCommand(FormatCommand(sent))
	if err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	if parsed != sent {
		t.Errorf("round trip = %+v, want %+v", parsed, sent)
	}
}
