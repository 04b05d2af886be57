package protocol

import "testing"

func TestConnections_HandOnly(t *testing.T) {
	conns := Connections(false)

	for _, c := range conns {
		if c.From < 0 || c.From >= NumHandLandmarks || c.To < 0 || c.To >= NumHandLandmarks {
			t.Errorf("connection %v references a non-core landmark", c)
		}
	}

	// Every finger tip must be reachable.
	tips := map[int]bool{ThumbTip: false, IndexTip: false, MiddleTip: false, RingTip: false, PinkyTip: false}
	for _, c := range conns {
		if _, ok := tips[c.To]; ok {
			tips[c.To] = true
		}
	}
	for tip, seen := range tips {
		if !seen {
			t.Errorf("tip landmark %d (%s) has no bone", tip, LandmarkName(tip))
		}
	}
}

func TestConnections_WithForearm(t *testing.T) {
	hand := Connections(false)
	all := Connections(true)

	if len(all) <= len(hand) {
		t.Fatalf("forearm table added no connections: %d vs %d", len(all), len(hand))
	}

	elbowLinked := false
	for _, c := range all[len(hand):] {
		if c.From == Elbow || c.To == Elbow {
			elbowLinked = true
		}
		if c.From < NumHandLandmarks && c.From != Wrist {
			t.Errorf("forearm connection %v starts inside the hand", c)
		}
	}
	if !elbowLinked {
		t.Error("elbow landmark not connected")
	}
}
