package actuator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ayusman/handmirror/internal/kinematics"
)

// commandFields is the fixed label order of the command frame.
var commandFields = [6]string{"T", "I", "M", "R", "P", "H"}

// ParseCommand parses one command line the way the hardware endpoint does,
// clamping each field to the servo range independently of whatever the
// sender did. Defense in depth against transmission corruption.
func ParseCommand(line string) (kinematics.Angles, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != len(commandFields) {
		return kinematics.Angles{}, fmt.Errorf("actuator: command has %d fields, want %d", len(parts), len(commandFields))
	}

	var values [6]int
	for i, part := range parts {
		label, raw, ok := strings.Cut(part, ":")
		if !ok || label != commandFields[i] {
			return kinematics.Angles{}, fmt.Errorf("actuator: field %d = %q, want label %q", i, part, commandFields[i])
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return kinematics.Angles{}, fmt.Errorf("actuator: field %s: %w", label, err)
		}
		if v < kinematics.MinAngle {
			v = kinematics.MinAngle
		}
		if v > kinematics.MaxAngle {
			v = kinematics.MaxAngle
		}
		values[i] = v
	}

	return kinematics.Angles{
		Thumb:  values[0],
		Index:  values[1],
		Middle: values[2],
		Ring:   values[3],
		Pinky:  values[4],
		Hand:   values[5],
	}, nil
}

// AckLine renders the acknowledgment echoing the six applied angles.
func AckLine(a kinematics.Angles) string {
	return fmt.Sprintf("ACK:%d,%d,%d,%d,%d,%d\n",
		a.Thumb, a.Index, a.Middle, a.Ring, a.Pinky, a.Hand)
}
