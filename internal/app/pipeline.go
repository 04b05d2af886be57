package app

import (
	"log"
	"time"

	"github.com/ayusman/handmirror/internal/kinematics"
	"github.com/ayusman/handmirror/internal/protocol"
)

// runPipeline is the foreground tick that drains the frame handoff, runs
// reconciliation and forwards derived angles to the actuation link.
//
// Tick logic:
// 1. Consume the latest frame from the handoff (lossy, non-blocking)
// 2. Skip if nothing new arrived since the previous tick
// 3. Reconcile the frame against the tracked hand registry
// 4. Derive angles for the mirror hand and send, rate limited
// 5. Persist frame and angles when a recording session is active
//
// No ingestion or data-quality error may terminate this loop.
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.TickFPS))
	defer ticker.Stop()

	actuationInterval := time.Second / time.Duration(a.config.ActuationHz)

	var (
		prevFrame *protocol.MultiHandFrame
		lastApply time.Time
		lastSend  time.Time
	)

	for {
		select {
		case <-stopCh:
			// Retire everything so renderer objects are released before the
			// pipeline reports stopped.
			a.engine.Reset()
			a.publishState(nil)
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame := a.handoff.Consume()
			if frame == nil || frame == prevFrame {
				continue
			}
			prevFrame = frame

			now := time.Now()
			dt := now.Sub(lastApply)
			if lastApply.IsZero() {
				dt = 0
			}
			lastApply = now

			a.engine.Apply(frame, dt)
			a.publishState(frame)

			session, seq := a.nextRecordSeq()

			if a.config.Link != nil && a.config.Link.Connected() && now.Sub(lastSend) >= actuationInterval {
				if a.sendAngles(frame, session, seq) {
					lastSend = now
				}
			}

			a.recordFrame(frame, session, seq)
		}
	}
}

// sendAngles derives the mirror hand's angles and transmits them. Returns
// false when nothing was sent: the hand is absent, its landmarks are
// incomplete, or the write failed. All cases leave the loop running.
func (a *App) sendAngles(frame *protocol.MultiHandFrame, session string, seq int64) bool {
	hand := frame.Hand(a.config.MirrorHand)
	if hand == nil {
		return false
	}

	angles, err := kinematics.Derive(hand)
	if err != nil {
		// Data-quality problem in this frame only.
		log.Printf("Skipping actuation: %v", err)
		return false
	}

	if err := a.config.Link.Send(angles); err != nil {
		log.Printf("Actuation send failed: %v", err)
		return false
	}

	if session != "" {
		if err := a.config.Store.Recordings().AppendAngles(session, seq, frame.Timestamp, hand.HandType, angles); err != nil {
			log.Printf("Record angles: %v", err)
		}
	}
	return true
}

// publishState updates the consumer-facing snapshot under the app lock.
func (a *App) publishState(frame *protocol.MultiHandFrame) {
	tracked := a.engine.Tracked()

	a.mu.Lock()
	a.lastFrame = frame
	a.tracked = tracked
	a.mu.Unlock()
}

// nextRecordSeq advances the per-session sequence counter. It returns an
// empty session id when no recording is active.
func (a *App) nextRecordSeq() (string, int64) {
	if a.config.Store == nil {
		return "", 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.recSession == "" {
		return "", 0
	}
	a.recSeq++
	return a.recSession, a.recSeq
}

// recordFrame persists a processed frame when a recording session is active.
func (a *App) recordFrame(frame *protocol.MultiHandFrame, session string, seq int64) {
	if session == "" {
		return
	}

	if err := a.config.Store.Recordings().AppendFrame(session, seq, frame); err != nil {
		log.Printf("Record frame: %v", err)
	}
}
