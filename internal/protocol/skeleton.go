package protocol

// Connection is a pair of landmark ids joined by a visual bone segment.
type Connection struct {
	From int
	To   int
}

// handConnections is the static bone table for the core hand: per-finger
// segments plus the palm perimeter. Derived geometry, never transmitted.
var handConnections = []Connection{
	// Thumb
	{Wrist, ThumbCMC}, {ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
	// Index
	{Wrist, IndexMCP}, {IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
	// Middle
	{MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
	// Ring
	{RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
	// Pinky
	{Wrist, PinkyMCP}, {PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
	// Palm perimeter across the knuckles
	{IndexMCP, MiddleMCP}, {MiddleMCP, RingMCP}, {RingMCP, PinkyMCP},
}

// forearmConnections chains the forearm extension from the wrist out to the
// elbow, nearest point first.
var forearmConnections = []Connection{
	{Wrist, ForearmQuarter},
	{ForearmQuarter, ForearmMid},
	{ForearmMid, ForearmThreeQuarter},
	{ForearmThreeQuarter, Elbow},
}

// Connections returns the bone table, optionally including the forearm
// segments. The returned slice is shared; callers must not modify it.
func Connections(withForearm bool) []Connection {
	if !withForearm {
		return handConnections
	}
	all := make([]Connection, 0, len(handConnections)+len(forearmConnections))
	all = append(all, handConnections...)
	all = append(all, forearmConnections...)
	return all
}

// PalmLandmarks are the five ids that define the palm plane.
var PalmLandmarks = [5]int{Wrist, IndexMCP, MiddleMCP, RingMCP, PinkyMCP}
