package e2e

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/handmirror/internal/actuator"
	"github.com/ayusman/handmirror/internal/app"
	"github.com/ayusman/handmirror/internal/protocol"
	"github.com/ayusman/handmirror/internal/server"
	"github.com/ayusman/handmirror/internal/store"
	"github.com/ayusman/handmirror/testdata"
)

// TestE2E_CompleteWorkflow drives the full pipeline over real sockets:
// UDP frames in, reconciliation, actuation over a loopback port, session
// recording, and the HTTP surface on top.
func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	st, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	loopback := actuator.NewLoopback()
	link := actuator.NewLink()
	if err := link.ConnectPort(loopback); err != nil {
		t.Fatalf("ConnectPort() error = %v", err)
	}
	defer link.Disconnect()

	// Reserve a free UDP port for ingestion.
	probe, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("probe udp port: %v", err)
	}
	udpPort := probe.LocalAddr().(*net.UDPAddr).Port
	probe.Close()

	application := app.New(app.Config{
		UDPPort:     udpPort,
		TickFPS:     100,
		ActuationHz: 100,
		Link:        link,
		Store:       st,
	})
	if err := application.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer application.Stop()

	ts := httptest.NewServer(server.New(server.Config{App: application, Store: st}))
	defer ts.Close()
	client := ts.Client()

	sender, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: udpPort})
	if err != nil {
		t.Fatalf("dial udp: %v", err)
	}
	defer sender.Close()

	var sessionID string

	t.Run("StartRecording", func(t *testing.T) {
		resp, err := client.Post(
			ts.URL+"/api/recordings/start",
			"application/json",
			strings.NewReader(`{"note": "e2e run"}`),
		)
		if err != nil {
			t.Fatalf("start recording error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}

		var body struct {
			SessionID string `json:"session_id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.SessionID == "" {
			t.Fatal("empty session id")
		}
		sessionID = body.SessionID
	})

	t.Run("StreamFrames", func(t *testing.T) {
		sequence, err := testdata.LoadSequence("approach")
		if err != nil {
			t.Fatalf("LoadSequence() error = %v", err)
		}
		fist, err := testdata.RawFrame("right_fist.json")
		if err != nil {
			t.Fatalf("RawFrame() error = %v", err)
		}

		for round := 0; round < 5; round++ {
			for _, frame := range sequence {
				// Timestamps must keep advancing across rounds.
				frame.Timestamp += 0.1
				payload, err := protocol.Encode(frame)
				if err != nil {
					t.Fatalf("Encode() error = %v", err)
				}
				if _, err := sender.Write(payload); err != nil {
					t.Fatalf("send frame: %v", err)
				}
				time.Sleep(15 * time.Millisecond)
			}
			if _, err := sender.Write(fist); err != nil {
				t.Fatalf("send frame: %v", err)
			}
			time.Sleep(15 * time.Millisecond)
		}

		waitFor(t, "hands tracked", func() bool {
			return len(application.Tracked()) > 0
		})
	})

	t.Run("StateEndpoint", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/state")
		if err != nil {
			t.Fatalf("get state error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var body struct {
			Enabled bool `json:"enabled"`
			Hands   []struct {
				Label      string `json:"label"`
				InstanceID string `json:"instance_id"`
			} `json:"hands"`
			Recording string `json:"recording"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !body.Enabled {
			t.Error("enabled = false")
		}
		if len(body.Hands) == 0 {
			t.Error("no tracked hands in state")
		}
		for _, h := range body.Hands {
			if h.InstanceID == "" {
				t.Errorf("hand %s has empty instance id", h.Label)
			}
		}
		if body.Recording != sessionID {
			t.Errorf("recording = %q, want %q", body.Recording, sessionID)
		}
	})

	t.Run("Actuation", func(t *testing.T) {
		waitFor(t, "loopback received commands", func() bool {
			return len(loopback.Applied()) > 0
		})
		for _, a := range loopback.Applied() {
			for _, v := range []int{a.Thumb, a.Index, a.Middle, a.Ring, a.Pinky, a.Hand} {
				if v < 0 || v > 179 {
					t.Errorf("angle %d outside servo range", v)
				}
			}
		}
	})

	t.Run("StopRecording", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/recordings/stop", "application/json", nil)
		if err != nil {
			t.Fatalf("stop recording error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
		}
	})

	t.Run("RecordedFrames", func(t *testing.T) {
		resp, err := client.Get(fmt.Sprintf("%s/api/sessions/%s/frames", ts.URL, sessionID))
		if err != nil {
			t.Fatalf("get frames error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var body struct {
			Frames []struct {
				Seq      int64  `json:"seq"`
				HandType string `json:"hand_type"`
			} `json:"frames"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(body.Frames) == 0 {
			t.Fatal("no recorded frames")
		}
	})

	t.Run("Stats", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/stats")
		if err != nil {
			t.Fatalf("get stats error = %v", err)
		}
		defer resp.Body.Close()

		var body map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["frames"].(float64) == 0 {
			t.Error("frames counter is zero")
		}
		if connected, ok := body["serial_connected"].(bool); !ok || !connected {
			t.Error("serial not reported connected")
		}
	})
}

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
