package app

import (
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/handmirror/internal/actuator"
	"github.com/ayusman/handmirror/internal/mirror"
	"github.com/ayusman/handmirror/internal/protocol"
	"github.com/ayusman/handmirror/internal/store"
)

// countingFactory tracks live objects across goroutine-safe counters. Only
// the pipeline goroutine calls it; the test reads after Stop.
type countingFactory struct {
	mu       sync.Mutex
	created  int
	released int
}

type countingObject struct{ f *countingFactory }

func (o countingObject) Move(protocol.Point3D)        {}
func (o countingObject) Update(_, _ protocol.Point3D) {}
func (o countingObject) Release() {
	o.f.mu.Lock()
	o.f.released++
	o.f.mu.Unlock()
}

func (f *countingFactory) new() countingObject {
	f.mu.Lock()
	f.created++
	f.mu.Unlock()
	return countingObject{f: f}
}

func (f *countingFactory) NewJoint(protocol.HandType, int) mirror.JointObject {
	return f.new()
}

func (f *countingFactory) NewBone(protocol.HandType, protocol.Connection) mirror.BoneObject {
	return f.new()
}

func (f *countingFactory) counts() (created, released int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created, f.released
}

// sendFrame encodes and transmits one frame to the app's ingestion port.
func sendFrame(t *testing.T, conn *net.UDPConn, frame *protocol.MultiHandFrame) {
	t.Helper()

	payload, err := protocol.Encode(frame)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("send frame: %v", err)
	}
}

func fullHand(label protocol.HandType, ts float64) protocol.HandFrame {
	h := protocol.HandFrame{HandType: label, Timestamp: ts}
	for i := 0; i < protocol.NumHandLandmarks; i++ {
		h.Landmarks = append(h.Landmarks, protocol.Landmark{
			ID:       i,
			Name:     protocol.LandmarkName(i),
			Position: [3]float64{float64(i) * 0.02, float64(i) * 0.03, 0.1},
		})
	}
	return h
}

// startApp starts an app on an ephemeral port and returns a connected
// sender socket. The test supplies the rest of the config.
func startApp(t *testing.T, cfg Config) (*App, *net.UDPConn) {
	t.Helper()

	cfg.TickFPS = 100
	cfg.ActuationHz = 100

	// Reserve an ephemeral port for the app.
	probe, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("probe udp port: %v", err)
	}
	port := probe.LocalAddr().(*net.UDPAddr).Port
	probe.Close()
	cfg.UDPPort = port

	a := New(cfg)
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(a.Stop)

	conn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	if err != nil {
		t.Fatalf("dial udp: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return a, conn
}

// waitFor polls until cond is true or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestApp_EndToEndReconciliation(t *testing.T) {
	factory := &countingFactory{}
	a, conn := startApp(t, Config{Factory: factory, Bones: true})

	sendFrame(t, conn, &protocol.MultiHandFrame{Timestamp: 1, Hands: []protocol.HandFrame{fullHand(protocol.LeftHand, 1)}})

	waitFor(t, "left hand tracked", func() bool {
		tracked := a.Tracked()
		return len(tracked) == 1 && tracked[0].Label == protocol.LeftHand
	})

	if a.LatestFrame() == nil {
		t.Error("LatestFrame() = nil after reconciliation")
	}

	// Hand disappears: entity must be retired.
	sendFrame(t, conn, &protocol.MultiHandFrame{Timestamp: 2})
	waitFor(t, "registry empty", func() bool {
		return len(a.Tracked()) == 0
	})

	created, released := factory.counts()
	if created == 0 {
		t.Fatal("factory never created objects")
	}
	if released != created {
		t.Errorf("released %d of %d objects", released, created)
	}
}

func TestApp_ActuationFlow(t *testing.T) {
	port := actuator.NewLoopback()
	link := actuator.NewLink()
	if err := link.ConnectPort(port); err != nil {
		t.Fatalf("ConnectPort() error = %v", err)
	}
	defer link.Disconnect()

	a, conn := startApp(t, Config{Link: link, MirrorHand: protocol.RightHand})

	sendFrame(t, conn, &protocol.MultiHandFrame{Timestamp: 1, Hands: []protocol.HandFrame{fullHand(protocol.RightHand, 1)}})

	waitFor(t, "command applied by endpoint", func() bool {
		return len(port.Applied()) > 0
	})

	for _, applied := range port.Applied() {
		for _, v := range []int{applied.Thumb, applied.Index, applied.Middle, applied.Ring, applied.Pinky, applied.Hand} {
			if v < 0 || v > 179 {
				t.Errorf("applied angle %d outside servo range", v)
			}
		}
	}

	// A left-only frame must not actuate a right-hand mirror.
	before := len(port.Applied())
	sendFrame(t, conn, &protocol.MultiHandFrame{Timestamp: 2, Hands: []protocol.HandFrame{fullHand(protocol.LeftHand, 2)}})
	waitFor(t, "left frame processed", func() bool {
		tracked := a.Tracked()
		return len(tracked) == 1 && tracked[0].Label == protocol.LeftHand
	})
	if got := len(port.Applied()); got != before {
		t.Errorf("left-only frame triggered %d extra commands", got-before)
	}
}

func TestApp_RecordingSession(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "rec.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	a, conn := startApp(t, Config{Store: st})

	sessionID, err := a.StartRecording("test capture")
	if err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	if sessionID == "" {
		t.Fatal("StartRecording() returned empty session id")
	}

	sendFrame(t, conn, &protocol.MultiHandFrame{Timestamp: 5, Hands: []protocol.HandFrame{fullHand(protocol.LeftHand, 5)}})

	waitFor(t, "frame recorded", func() bool {
		frames, err := st.Recordings().FramesBySession(sessionID)
		return err == nil && len(frames) > 0
	})

	if err := a.StopRecording(); err != nil {
		t.Fatalf("StopRecording() error = %v", err)
	}

	sess, err := st.Sessions().Get(sessionID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.EndedAt == nil {
		t.Error("session not marked ended")
	}
}

func TestApp_DisabledSkipsProcessing(t *testing.T) {
	a, conn := startApp(t, Config{})
	a.SetEnabled(false)

	sendFrame(t, conn, &protocol.MultiHandFrame{Timestamp: 1, Hands: []protocol.HandFrame{fullHand(protocol.LeftHand, 1)}})

	// The receiver still publishes, but the tick must not reconcile.
	waitFor(t, "datagram received", func() bool {
		return a.IngestStats().Frames > 0
	})
	time.Sleep(100 * time.Millisecond)
	if len(a.Tracked()) != 0 {
		t.Error("disabled app reconciled a frame")
	}

	// Re-enabling picks the pending frame up.
	a.SetEnabled(true)
	waitFor(t, "frame processed after enable", func() bool {
		return len(a.Tracked()) == 1
	})
}

func TestApp_StartStopIdempotent(t *testing.T) {
	a, _ := startApp(t, Config{})

	// Second Start is a no-op, double Stop is safe.
	if err := a.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	a.Stop()
	a.Stop()
}

func TestApp_MalformedTrafficKeepsRunning(t *testing.T) {
	a, conn := startApp(t, Config{})

	if _, err := conn.Write([]byte("{{{ not a frame")); err != nil {
		t.Fatalf("send garbage: %v", err)
	}
	waitFor(t, "decode error counted", func() bool {
		return a.IngestStats().DecodeErrors > 0
	})

	sendFrame(t, conn, &protocol.MultiHandFrame{Timestamp: 9, Hands: []protocol.HandFrame{fullHand(protocol.RightHand, 9)}})
	waitFor(t, "valid frame after garbage", func() bool {
		return len(a.Tracked()) == 1
	})
}
