// Package protocol defines the landmark datagram wire format shared by the
// perception source and every downstream consumer.
package protocol

import "math"

// Hand landmark indices following MediaPipe convention, extended with the
// forearm points the perception source synthesizes from the wrist direction.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist     = 0
	ThumbCMC  = 1
	ThumbMCP  = 2
	ThumbIP   = 3
	ThumbTip  = 4
	IndexMCP  = 5
	IndexPIP  = 6
	IndexDIP  = 7
	IndexTip  = 8
	MiddleMCP = 9
	MiddlePIP = 10
	MiddleDIP = 11
	MiddleTip = 12
	RingMCP   = 13
	RingPIP   = 14
	RingDIP   = 15
	RingTip   = 16
	PinkyMCP  = 17
	PinkyPIP  = 18
	PinkyDIP  = 19
	PinkyTip  = 20

	// Forearm extension landmarks. Optional on the wire.
	Elbow               = 21
	ForearmMid          = 22
	ForearmQuarter      = 23
	ForearmThreeQuarter = 24

	// NumHandLandmarks is the count of the core hand landmarks (0-20).
	NumHandLandmarks = 21
	// NumLandmarks is the count including the optional forearm extension.
	NumLandmarks = 25
)

// landmarkNames holds the canonical wire name for each landmark id.
var landmarkNames = [NumLandmarks]string{
	"WRIST",
	"THUMB_CMC", "THUMB_MCP", "THUMB_IP", "THUMB_TIP",
	"INDEX_FINGER_MCP", "INDEX_FINGER_PIP", "INDEX_FINGER_DIP", "INDEX_FINGER_TIP",
	"MIDDLE_FINGER_MCP", "MIDDLE_FINGER_PIP", "MIDDLE_FINGER_DIP", "MIDDLE_FINGER_TIP",
	"RING_FINGER_MCP", "RING_FINGER_PIP", "RING_FINGER_DIP", "RING_FINGER_TIP",
	"PINKY_MCP", "PINKY_PIP", "PINKY_DIP", "PINKY_TIP",
	"ELBOW", "FOREARM_MID", "FOREARM_QUARTER", "FOREARM_THREE_QUARTER",
}

// LandmarkName returns the canonical name for a landmark id, or "" if the id
// is out of range.
func LandmarkName(id int) string {
	if id < 0 || id >= NumLandmarks {
		return ""
	}
	return landmarkNames[id]
}

// Finger identifies one of the five fingers.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
	NumFingers
)

// fingerJoints maps each finger to its four landmark ids in MCP, PIP, DIP,
// TIP order. The thumb row follows the same MCP-to-tip convention even
// though its anatomical joint names differ.
var fingerJoints = [NumFingers][4]int{
	Thumb:  {ThumbCMC, ThumbMCP, ThumbIP, ThumbTip},
	Index:  {IndexMCP, IndexPIP, IndexDIP, IndexTip},
	Middle: {MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip},
	Ring:   {RingMCP, RingPIP, RingDIP, RingTip},
	Pinky:  {PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip},
}

// FingerJoints returns the landmark ids of a finger's joints in MCP, PIP,
// DIP, TIP order.
func FingerJoints(f Finger) [4]int {
	return fingerJoints[f]
}

// String returns the lower-case finger name.
func (f Finger) String() string {
	switch f {
	case Thumb:
		return "thumb"
	case Index:
		return "index"
	case Middle:
		return "middle"
	case Ring:
		return "ring"
	case Pinky:
		return "pinky"
	}
	return "unknown"
}

// Point3D represents a 3D point with x, y, z coordinates.
type Point3D struct {
	X float64
	Y float64
	Z float64
}

// Sub returns the vector from q to p.
func (p Point3D) Sub(q Point3D) Point3D {
	return Point3D{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Length returns the Euclidean magnitude of p treated as a vector.
func (p Point3D) Length() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Dot returns the dot product of p and q treated as vectors.
func (p Point3D) Dot(q Point3D) float64 {
	return p.X*q.X + p.Y*q.Y + p.Z*q.Z
}
