package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxDatagramSize is the largest payload accepted from the wire. A frame is
// always a single, self-contained datagram; anything larger than what UDP
// can carry in one is a protocol violation.
const MaxDatagramSize = 65507

// Decode error sentinels.
var (
	ErrPayloadTooLarge = errors.New("protocol: payload exceeds datagram size limit")
	ErrEmptyPayload    = errors.New("protocol: empty payload")
)

// HandType identifies which hand a frame describes.
type HandType string

const (
	LeftHand  HandType = "Left"
	RightHand HandType = "Right"
)

// Valid reports whether t is a recognized hand label.
func (t HandType) Valid() bool {
	return t == LeftHand || t == RightHand
}

// Landmark is one tracked anatomical point of a hand.
type Landmark struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
}

// Point returns the landmark position as a Point3D.
func (l Landmark) Point() Point3D {
	return Point3D{X: l.Position[0], Y: l.Position[1], Z: l.Position[2]}
}

// HandFrame is one hand's full landmark set at one instant.
type HandFrame struct {
	HandType  HandType   `json:"hand_type"`
	Timestamp float64    `json:"timestamp"`
	Landmarks []Landmark `json:"landmarks"`
}

// Position looks up a landmark position by id. The second return value is
// false when the id is absent from the frame, which is normal for the
// optional forearm extension.
func (h *HandFrame) Position(id int) (Point3D, bool) {
	for i := range h.Landmarks {
		if h.Landmarks[i].ID == id {
			return h.Landmarks[i].Point(), true
		}
	}
	return Point3D{}, false
}

// HasForearm reports whether the frame carries the forearm extension.
func (h *HandFrame) HasForearm() bool {
	_, ok := h.Position(Elbow)
	return ok
}

// MultiHandFrame is the unit of transmission: all tracked hands at one
// instant. Zero, one or two hands in practice.
type MultiHandFrame struct {
	Timestamp float64     `json:"timestamp"`
	Hands     []HandFrame `json:"hands"`
}

// Labels returns the set of hand labels present in the frame.
func (m *MultiHandFrame) Labels() map[HandType]bool {
	labels := make(map[HandType]bool, len(m.Hands))
	for i := range m.Hands {
		labels[m.Hands[i].HandType] = true
	}
	return labels
}

// Hand returns the first hand frame with the given label, or nil.
func (m *MultiHandFrame) Hand(t HandType) *HandFrame {
	for i := range m.Hands {
		if m.Hands[i].HandType == t {
			return &m.Hands[i]
		}
	}
	return nil
}

// Decode parses one datagram payload into a MultiHandFrame. Decoding is
// all-or-nothing: any structural problem fails the whole payload. Unknown
// fields are ignored for forward compatibility; missing forearm landmarks
// are not an error.
func Decode(payload []byte) (*MultiHandFrame, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if len(payload) > MaxDatagramSize {
		return nil, ErrPayloadTooLarge
	}

	var frame MultiHandFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return nil, fmt.Errorf("protocol: decode frame: %w", err)
	}

	for i := range frame.Hands {
		if err := validateHand(&frame.Hands[i]); err != nil {
			return nil, err
		}
	}

	return &frame, nil
}

// validateHand enforces the per-hand structural invariants: a recognized
// label and unique, in-range landmark ids.
func validateHand(h *HandFrame) error {
	if !h.HandType.Valid() {
		return fmt.Errorf("protocol: unknown hand type %q", h.HandType)
	}

	var seen [NumLandmarks]bool
	for i := range h.Landmarks {
		id := h.Landmarks[i].ID
		if id < 0 || id >= NumLandmarks {
			return fmt.Errorf("protocol: landmark id %d out of range", id)
		}
		if seen[id] {
			return fmt.Errorf("protocol: duplicate landmark id %d", id)
		}
		seen[id] = true
	}
	return nil
}

// Encode serializes a MultiHandFrame into one datagram payload. Used by the
// synthetic sender and round-trip tests; the daemon itself only decodes.
func Encode(frame *MultiHandFrame) ([]byte, error) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode frame: %w", err)
	}
	if len(payload) > MaxDatagramSize {
		return nil, ErrPayloadTooLarge
	}
	return payload, nil
}
