// Package mirror reconciles incoming multi-hand frames against a persistent
// registry of tracked hand entities, driving renderer-owned joint and bone
// objects. The registry is single-owner: only the foreground tick touches
// it, so no locking happens here.
package mirror

import (
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/handmirror/internal/protocol"
)

// JointObject is a renderer-owned handle for one landmark.
type JointObject interface {
	Move(p protocol.Point3D)
	Release()
}

// BoneObject is a renderer-owned handle for one connective segment.
type BoneObject interface {
	Update(from, to protocol.Point3D)
	Release()
}

// ObjectFactory creates the visual sub-objects an entity owns. The renderer
// supplies the implementation; the engine only decides when objects exist
// and where they sit.
type ObjectFactory interface {
	NewJoint(hand protocol.HandType, landmarkID int) JointObject
	NewBone(hand protocol.HandType, conn protocol.Connection) BoneObject
}

// Config selects which optional capabilities the engine runs with. One
// configurable engine replaces per-variant copies.
type Config struct {
	Factory ObjectFactory

	// LateralScale and DepthScale parameterize the coordinate transform.
	// Zero values take the defaults.
	LateralScale float64
	DepthScale   float64

	// SmoothingRate is the exponential smoothing rate per second applied to
	// joint positions. Zero disables smoothing.
	SmoothingRate float64

	// Forearm enables the optional forearm landmarks and segments.
	Forearm bool

	// Bones enables derived connective geometry between joints.
	Bones bool
}

// jointState pairs a renderer object with its current smoothed position.
type jointState struct {
	obj JointObject
	pos protocol.Point3D
}

// entity is one tracked hand: its sub-objects, keyed by landmark id and
// connection, plus identity and freshness.
type entity struct {
	id         uuid.UUID
	label      protocol.HandType
	joints     map[int]*jointState
	bones      map[protocol.Connection]BoneObject
	lastUpdate float64
}

// TrackedHand is a read-only snapshot of one registry entry.
type TrackedHand struct {
	ID         uuid.UUID
	Label      protocol.HandType
	Joints     int
	LastUpdate float64
}

// Engine is the hand reconciliation state machine.
type Engine struct {
	cfg   Config
	conns []protocol.Connection
	hands map[protocol.HandType]*entity
}

// NewEngine creates an engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	if cfg.LateralScale == 0 {
		cfg.LateralScale = DefaultLateralScale
	}
	if cfg.DepthScale == 0 {
		cfg.DepthScale = DefaultDepthScale
	}

	var conns []protocol.Connection
	if cfg.Bones {
		conns = protocol.Connections(cfg.Forearm)
	}

	return &Engine{
		cfg:   cfg,
		conns: conns,
		hands: make(map[protocol.HandType]*entity),
	}
}

// Apply reconciles one frame: entities for labels present in the frame are
// created or updated, entities for absent labels are retired synchronously
// with all their sub-objects, before the next frame can be processed.
// dt is the elapsed time since the previous Apply, used for smoothing.
func (e *Engine) Apply(frame *protocol.MultiHandFrame, dt time.Duration) {
	present := frame.Labels()

	// Retire first so a label that swapped hands this frame starts clean.
	for label, ent := range e.hands {
		if !present[label] {
			ent.release()
			delete(e.hands, label)
		}
	}

	for i := range frame.Hands {
		e.applyHand(&frame.Hands[i], dt)
	}
}

// applyHand creates or updates the entity for one hand frame. Two hands
// with the same label in one frame update the same entity in arrival order;
// label collisions are a perception-source defect the engine tolerates.
func (e *Engine) applyHand(hand *protocol.HandFrame, dt time.Duration) {
	ent, ok := e.hands[hand.HandType]
	if !ok {
		ent = &entity{
			id:     uuid.New(),
			label:  hand.HandType,
			joints: make(map[int]*jointState),
			bones:  make(map[protocol.Connection]BoneObject),
		}
		e.hands[hand.HandType] = ent
	}
	ent.lastUpdate = hand.Timestamp

	smooth := 1.0
	if e.cfg.SmoothingRate > 0 {
		smooth = e.cfg.SmoothingRate * dt.Seconds()
	}

	// Update or create joints by landmark id.
	seen := make(map[int]bool, len(hand.Landmarks))
	for j := range hand.Landmarks {
		lm := &hand.Landmarks[j]
		if !e.cfg.Forearm && lm.ID >= protocol.NumHandLandmarks {
			continue
		}
		seen[lm.ID] = true

		target := Transform(lm.Point(), e.cfg.LateralScale, e.cfg.DepthScale)

		js, ok := ent.joints[lm.ID]
		if !ok {
			js = &jointState{obj: e.cfg.Factory.NewJoint(hand.HandType, lm.ID), pos: target}
			ent.joints[lm.ID] = js
		} else {
			js.pos = lerp(js.pos, target, smooth)
		}
		js.obj.Move(js.pos)
	}

	// Landmarks that vanished from this hand (the forearm extension can
	// come and go) lose their objects.
	for id, js := range ent.joints {
		if !seen[id] {
			js.obj.Release()
			delete(ent.joints, id)
		}
	}

	if e.cfg.Bones {
		e.reconcileBones(ent)
	}
}

// reconcileBones updates the connective geometry from the entity's current
// joint positions. A connection whose endpoints are not both tracked this
// frame is skipped, and its object released, without failing the pass.
func (e *Engine) reconcileBones(ent *entity) {
	for _, conn := range e.conns {
		from, okFrom := ent.joints[conn.From]
		to, okTo := ent.joints[conn.To]

		if !okFrom || !okTo {
			if bone, ok := ent.bones[conn]; ok {
				bone.Release()
				delete(ent.bones, conn)
			}
			continue
		}

		bone, ok := ent.bones[conn]
		if !ok {
			bone = e.cfg.Factory.NewBone(ent.label, conn)
			ent.bones[conn] = bone
		}
		bone.Update(from.pos, to.pos)
	}
}

// release tears down every sub-object the entity owns.
func (ent *entity) release() {
	for id, js := range ent.joints {
		js.obj.Release()
		delete(ent.joints, id)
	}
	for conn, bone := range ent.bones {
		bone.Release()
		delete(ent.bones, conn)
	}
}

// Reset retires every tracked entity, releasing all owned objects.
func (e *Engine) Reset() {
	for label, ent := range e.hands {
		ent.release()
		delete(e.hands, label)
	}
}

// Tracked returns snapshots of the current registry entries.
func (e *Engine) Tracked() []TrackedHand {
	out := make([]TrackedHand, 0, len(e.hands))
	for _, ent := range e.hands {
		out = append(out, TrackedHand{
			ID:         ent.id,
			Label:      ent.label,
			Joints:     len(ent.joints),
			LastUpdate: ent.lastUpdate,
		})
	}
	return out
}

// InstanceID returns the stable per-instance identifier for a tracked
// label. The id is assigned when the entity is created and persists while
// the hand stays continuously tracked.
func (e *Engine) InstanceID(label protocol.HandType) (uuid.UUID, bool) {
	ent, ok := e.hands[label]
	if !ok {
		return uuid.UUID{}, false
	}
	return ent.id, true
}

// PalmCenter returns the centroid of the five palm-plane landmarks of a
// tracked hand, in target space. The feature is skipped (ok=false) when any
// of the five ids is missing from the current entity.
func (e *Engine) PalmCenter(label protocol.HandType) (protocol.Point3D, bool) {
	ent, ok := e.hands[label]
	if !ok {
		return protocol.Point3D{}, false
	}

	var sum protocol.Point3D
	for _, id := range protocol.PalmLandmarks {
		js, ok := ent.joints[id]
		if !ok {
			return protocol.Point3D{}, false
		}
		sum.X += js.pos.X
		sum.Y += js.pos.Y
		sum.Z += js.pos.Z
	}
	n := float64(len(protocol.PalmLandmarks))
	return protocol.Point3D{X: sum.X / n, Y: sum.Y / n, Z: sum.Z / n}, true
}
