package mirror

import "github.com/ayusman/handmirror/internal/protocol"

// Default coordinate mapping from the perception source's screen space into
// the target space. Depth gets a larger factor than the lateral axes so
// movement toward the camera reads clearly against lateral movement.
const (
	DefaultLateralScale = 10.0
	DefaultDepthScale   = 25.0
)

// Transform maps a screen-space landmark position into target space: y is
// inverted (screen y grows downward) and z is scaled by the depth factor.
func Transform(p protocol.Point3D, lateralScale, depthScale float64) protocol.Point3D {
	return protocol.Point3D{
		X: p.X * lateralScale,
		Y: -p.Y * lateralScale,
		Z: p.Z * depthScale,
	}
}

// lerp moves current toward target by fraction t in [0,1].
func lerp(current, target protocol.Point3D, t float64) protocol.Point3D {
	if t >= 1 {
		return target
	}
	if t <= 0 {
		return current
	}
	return protocol.Point3D{
		X: current.X + (target.X-current.X)*t,
		Y: current.Y + (target.Y-current.Y)*t,
		Z: current.Z + (target.Z-current.Z)*t,
	}
}
