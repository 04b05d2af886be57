package kinematics

import (
	"math"
	"testing"

	"github.com/ayusman/handmirror/internal/protocol"
)

func TestFingerFlexion_StraightFinger(t *testing.T) {
	// Three colinear joints: no bend.
	mcp := protocol.Point3D{X: 0, Y: 0, Z: 0}
	pip := protocol.Point3D{X: 0, Y: 1, Z: 0}
	dip := protocol.Point3D{X: 0, Y: 2, Z: 0}

	if got := FingerFlexion(mcp, pip, dip); got != 0 {
		t.Errorf("FingerFlexion(straight) = %d, want 0", got)
	}
}

func TestFingerFlexion_RightAngle(t *testing.T) {
	mcp := protocol.Point3D{X: 0, Y: 0, Z: 0}
	pip := protocol.Point3D{X: 0, Y: 1, Z: 0}
	dip := protocol.Point3D{X: 1, Y: 1, Z: 0}

	if got := FingerFlexion(mcp, pip, dip); got != 90 {
		t.Errorf("FingerFlexion(right angle) = %d, want 90", got)
	}
}

func TestFingerFlexion_Degenerate(t *testing.T) {
	p := protocol.Point3D{X: 0.5, Y: 0.5, Z: 0.5}

	// All joints coincide: zero-length bone vectors fall back to neutral.
	if got := FingerFlexion(p, p, p); got != NeutralAngle {
		t.Errorf("FingerFlexion(degenerate) = %d, want %d", got, NeutralAngle)
	}
}

func TestFingerFlexion_AlwaysInServoRange(t *testing.T) {
	// A folded-back finger approaches 180 degrees between bone vectors; the
	// result must still clamp into [0,179].
	mcp := protocol.Point3D{X: 0, Y: 0, Z: 0}
	pip := protocol.Point3D{X: 0, Y: 1, Z: 0}
	dip := protocol.Point3D{X: 0, Y: 0.0001, Z: 0}

	got := FingerFlexion(mcp, pip, dip)
	if got < MinAngle || got > MaxAngle {
		t.Errorf("FingerFlexion(folded) = %d, outside [%d,%d]", got, MinAngle, MaxAngle)
	}
}

func TestFingerFlexion_Deterministic(t *testing.T) {
	mcp := protocol.Point3D{X: 0.11, Y: 0.72, Z: -0.09}
	pip := protocol.Point3D{X: 0.13, Y: 0.61, Z: -0.12}
	dip := protocol.Point3D{X: 0.17, Y: 0.55, Z: -0.10}

	first := FingerFlexion(mcp, pip, dip)
	for i := 0; i < 100; i++ {
		if got := FingerFlexion(mcp, pip, dip); got != first {
			t.Fatalf("FingerFlexion not deterministic: %d then %d", first, got)
		}
	}
}

func TestHandRotation(t *testing.T) {
	wrist := protocol.Point3D{}

	tests := []struct {
		name      string
		middleMCP protocol.Point3D
		want      int
	}{
		{"straight ahead", protocol.Point3D{Z: 1}, 90},                // atan2(0,1)=0 -> 90
		{"full right", protocol.Point3D{X: 1}, 135},                   // atan2(1,0)=90 -> 135
		{"full left", protocol.Point3D{X: -1}, 45},                    // atan2(-1,0)=-90 -> 45
		{"behind", protocol.Point3D{X: 0, Z: -1}, 179},                // atan2(0,-1)=180 -> clamp 179
		{"degenerate vertical", protocol.Point3D{Y: 1}, NeutralAngle}, // no horizontal component
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HandRotation(wrist, tt.middleMCP); got != tt.want {
				t.Errorf("HandRotation() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHandRotation_RangeSweep(t *testing.T) {
	wrist := protocol.Point3D{}
	for deg := -180; deg <= 180; deg += 5 {
		rad := float64(deg) * math.Pi / 180
		mcp := protocol.Point3D{X: math.Sin(rad), Z: math.Cos(rad)}
		got := HandRotation(wrist, mcp)
		if got < MinAngle || got > MaxAngle {
			t.Errorf("HandRotation(%d deg) = %d, outside [%d,%d]", deg, got, MinAngle, MaxAngle)
		}
	}
}

// deriveHand builds a hand with straight fingers pointing up and the palm
// facing forward.
func deriveHand() *protocol.HandFrame {
	h := &protocol.HandFrame{HandType: protocol.RightHand}
	for f := protocol.Thumb; f < protocol.NumFingers; f++ {
		joints := protocol.FingerJoints(f)
		x := float64(f) * 0.1
		for seg, id := range joints {
			h.Landmarks = append(h.Landmarks, protocol.Landmark{
				ID:       id,
				Name:     protocol.LandmarkName(id),
				Position: [3]float64{x, 0.5 + float64(seg)*0.1, 0},
			})
		}
	}
	h.Landmarks = append(h.Landmarks, protocol.Landmark{
		ID:       protocol.Wrist,
		Name:     protocol.LandmarkName(protocol.Wrist),
		Position: [3]float64{0.2, 0, 0.5},
	})
	return h
}

func TestDerive(t *testing.T) {
	angles, err := Derive(deriveHand())
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}

	// All fingers are straight lines.
	for name, got := range map[string]int{
		"thumb": angles.Thumb, "index": angles.Index, "middle": angles.Middle,
		"ring": angles.Ring, "pinky": angles.Pinky,
	} {
		if got != 0 {
			t.Errorf("%s flexion = %d, want 0", name, got)
		}
	}

	if angles.Hand < MinAngle || angles.Hand > MaxAngle {
		t.Errorf("hand rotation = %d, outside servo range", angles.Hand)
	}
}

func TestDerive_MissingJointsFails(t *testing.T) {
	h := deriveHand()

	// Strip the ring finger.
	var kept []protocol.Landmark
	ring := protocol.FingerJoints(protocol.Ring)
	for _, lm := range h.Landmarks {
		if lm.ID >= ring[0] && lm.ID <= ring[3] {
			continue
		}
		kept = append(kept, lm)
	}
	h.Landmarks = kept

	if _, err := Derive(h); err == nil {
		t.Error("Derive() succeeded with missing ring finger")
	}
}

func TestNeutral(t *testing.T) {
	n := Neutral()
	if n.Thumb != NeutralAngle || n.Hand != NeutralAngle {
		t.Errorf("Neutral() = %+v", n)
	}
}
