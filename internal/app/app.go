// Package app wires the ingestion, reconciliation and actuation stages into
// the running mirror pipeline.
package app

import (
	"log"
	"sync"

	"github.com/ayusman/handmirror/internal/actuator"
	"github.com/ayusman/handmirror/internal/ingest"
	"github.com/ayusman/handmirror/internal/mirror"
	"github.com/ayusman/handmirror/internal/protocol"
	"github.com/ayusman/handmirror/internal/store"
)

// Pipeline timing defaults.
const (
	// DefaultTickFPS is the foreground reconciliation rate.
	DefaultTickFPS = 30
	// DefaultActuationHz is the rate limit for serial commands. Well below
	// the tick rate so a 9600 baud link is never saturated.
	DefaultActuationHz = 15
)

// Config holds configuration options for the application.
type Config struct {
	// UDPPort is the landmark ingestion port.
	UDPPort int
	// TickFPS is the foreground processing rate. Zero takes the default.
	TickFPS int
	// ActuationHz caps the serial command rate. Zero takes the default.
	ActuationHz int
	// MirrorHand selects which hand label drives the actuator.
	MirrorHand protocol.HandType

	// Factory supplies renderer objects. Nil runs headless.
	Factory mirror.ObjectFactory
	// Link is the actuation serial link. Nil disables actuation.
	Link *actuator.Link
	// Store enables session recording when set.
	Store *store.Store

	// Reconciliation options, passed through to the engine.
	LateralScale  float64
	DepthScale    float64
	SmoothingRate float64
	Forearm       bool
	Bones         bool
}

// App is the main application: it owns the receiver, the handoff cell and
// the foreground tick that reconciles frames and drives actuation.
type App struct {
	config   Config
	handoff  *ingest.Handoff
	receiver *ingest.Receiver
	engine   *mirror.Engine

	mu        sync.RWMutex
	enabled   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	lastFrame *protocol.MultiHandFrame
	tracked   []mirror.TrackedHand

	recSession string
	recSeq     int64
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.UDPPort == 0 {
		config.UDPPort = ingest.DefaultPort
	}
	if config.TickFPS <= 0 {
		config.TickFPS = DefaultTickFPS
	}
	if config.ActuationHz <= 0 {
		config.ActuationHz = DefaultActuationHz
	}
	if config.MirrorHand == "" {
		config.MirrorHand = protocol.RightHand
	}

	factory := config.Factory
	if factory == nil {
		factory = noopFactory{}
	}

	handoff := ingest.NewHandoff()
	return &App{
		config:   config,
		handoff:  handoff,
		receiver: ingest.NewReceiver(handoff),
		engine: mirror.NewEngine(mirror.Config{
			Factory:       factory,
			LateralScale:  config.LateralScale,
			DepthScale:    config.DepthScale,
			SmoothingRate: config.SmoothingRate,
			Forearm:       config.Forearm,
			Bones:         config.Bones,
		}),
		enabled: true,
	}
}

// Start binds the ingestion port and begins the foreground tick.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.receiver.Start(a.config.UDPPort); err != nil {
		return err
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	log.Println("Mirror pipeline started")
	return nil
}

// Stop halts the pipeline, retires all tracked hands and releases the
// ingestion socket. Idempotent.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopCh == nil {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	doneCh := a.doneCh
	a.stopCh = nil
	a.doneCh = nil
	a.mu.Unlock()

	<-doneCh
	a.receiver.Stop()

	log.Println("Mirror pipeline stopped")
}

// SetEnabled enables or disables frame processing without tearing the
// pipeline down.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether frame processing is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// LatestFrame returns the most recently reconciled frame, or nil. This is
// the read-only accessor external renderers consume.
func (a *App) LatestFrame() *protocol.MultiHandFrame {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastFrame
}

// Tracked returns a snapshot of the currently tracked hands.
func (a *App) Tracked() []mirror.TrackedHand {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]mirror.TrackedHand, len(a.tracked))
	copy(out, a.tracked)
	return out
}

// IngestStats returns the receiver's diagnostic counters.
func (a *App) IngestStats() ingest.Stats {
	return a.receiver.Stats()
}

// Handoff exposes the frame handoff cell for additional consumers, such as
// the terminal monitor.
func (a *App) Handoff() *ingest.Handoff {
	return a.handoff
}

// Link returns the configured actuation link, or nil when running without
// hardware.
func (a *App) Link() *actuator.Link {
	return a.config.Link
}

// RecordingSession returns the active recording session id, or "".
func (a *App) RecordingSession() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.recSession
}

// StartRecording opens a new session and begins persisting frames and
// derived angles. No-op without a configured store.
func (a *App) StartRecording(note string) (string, error) {
	if a.config.Store == nil {
		return "", nil
	}

	sess, err := a.config.Store.Sessions().Create(note)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	a.recSession = sess.ID
	a.recSeq = 0
	a.mu.Unlock()

	log.Printf("Recording session %s started", sess.ID)
	return sess.ID, nil
}

// StopRecording closes the active session, if any.
func (a *App) StopRecording() error {
	a.mu.Lock()
	id := a.recSession
	a.recSession = ""
	a.mu.Unlock()

	if id == "" || a.config.Store == nil {
		return nil
	}
	log.Printf("Recording session %s stopped", id)
	return a.config.Store.Sessions().End(id)
}

// noopFactory satisfies the engine when no renderer is attached: the
// registry and lifecycle still run, objects just have no visual form.
type noopFactory struct{}

type noopObject struct{}

func (noopObject) Move(protocol.Point3D)        {}
func (noopObject) Update(_, _ protocol.Point3D) {}
func (noopObject) Release()                     {}

func (noopFactory) NewJoint(protocol.HandType, int) mirror.JointObject {
	return noopObject{}
}

func (noopFactory) NewBone(protocol.HandType, protocol.Connection) mirror.BoneObject {
	return noopObject{}
}
