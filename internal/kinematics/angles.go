// Package kinematics derives servo joint angles from hand landmarks.
//
// The formulas are a deliberately simple kinematic proxy, not an inverse
// kinematics solve: each finger's flexion is the bend at the PIP joint, and
// hand rotation is the horizontal-plane heading of the wrist-to-palm
// direction. Noisy input is handled by clamping, never by failing.
package kinematics

import (
	"fmt"
	"math"

	"github.com/ayusman/handmirror/internal/protocol"
)

// Servo angle range. Positional outputs accept integer degrees.
const (
	MinAngle = 0
	MaxAngle = 179
	// NeutralAngle is the fallback for degenerate geometry, such as
	// zero-length bone vectors from overlapping landmarks.
	NeutralAngle = 90
)

// Angles is one derived actuation command: five finger flexions plus the
// overall hand rotation, each in [0,179] degrees.
type Angles struct {
	Thumb  int
	Index  int
	Middle int
	Ring   int
	Pinky  int
	Hand   int
}

// Neutral returns the all-neutral pose.
func Neutral() Angles {
	return Angles{
		Thumb:  NeutralAngle,
		Index:  NeutralAngle,
		Middle: NeutralAngle,
		Ring:   NeutralAngle,
		Pinky:  NeutralAngle,
		Hand:   NeutralAngle,
	}
}

// clampAngle limits a to the servo range.
func clampAngle(a int) int {
	if a < MinAngle {
		return MinAngle
	}
	if a > MaxAngle {
		return MaxAngle
	}
	return a
}

// FingerFlexion computes the bend angle at the PIP joint from the MCP→PIP
// and PIP→DIP bone vectors. A perfectly straight finger yields 0; the result
// is clamped to [0,179]. Degenerate zero-length vectors yield the neutral
// angle instead of an error.
func FingerFlexion(mcp, pip, dip protocol.Point3D) int {
	v1 := pip.Sub(mcp)
	v2 := dip.Sub(pip)

	m1 := v1.Length()
	m2 := v2.Length()
	if m1 == 0 || m2 == 0 {
		return NeutralAngle
	}

	cos := v1.Dot(v2) / (m1 * m2)
	// Guard against floating point drift outside acos's domain.
	cos = math.Max(-1, math.Min(1, cos))

	angle := math.Acos(cos) * 180 / math.Pi
	return clampAngle(int(angle))
}

// HandRotation computes the hand's horizontal-plane heading from the wrist
// to middle-finger-MCP direction. atan2(x,z) gives [-180,180], which maps
// onto the servo range via (angle+180)/2. Degenerate direction yields the
// neutral angle.
func HandRotation(wrist, middleMCP protocol.Point3D) int {
	dir := middleMCP.Sub(wrist)
	if dir.X == 0 && dir.Z == 0 {
		return NeutralAngle
	}

	angle := math.Atan2(dir.X, dir.Z) * 180 / math.Pi
	return clampAngle(int((angle + 180) / 2))
}

// Derive computes the full angle vector for one hand frame. A finger whose
// joint landmarks are missing from the frame makes the whole derivation
// fail: the caller skips actuation for this frame and keeps the previous
// command in effect.
func Derive(hand *protocol.HandFrame) (Angles, error) {
	flexions := [protocol.NumFingers]int{}
	for f := protocol.Thumb; f < protocol.NumFingers; f++ {
		joints := protocol.FingerJoints(f)

		mcp, ok1 := hand.Position(joints[0])
		pip, ok2 := hand.Position(joints[1])
		dip, ok3 := hand.Position(joints[2])
		if !ok1 || !ok2 || !ok3 {
			return Angles{}, fmt.Errorf("kinematics: %s joints missing from frame", f)
		}
		flexions[f] = FingerFlexion(mcp, pip, dip)
	}

	wrist, ok1 := hand.Position(protocol.Wrist)
	middleMCP, ok2 := hand.Position(protocol.MiddleMCP)
	if !ok1 || !ok2 {
		return Angles{}, fmt.Errorf("kinematics: wrist landmarks missing from frame")
	}

	return Angles{
		Thumb:  flexions[protocol.Thumb],
		Index:  flexions[protocol.Index],
		Middle: flexions[protocol.Middle],
		Ring:   flexions[protocol.Ring],
		Pinky:  flexions[protocol.Pinky],
		Hand:   HandRotation(wrist, middleMCP),
	}, nil
}
