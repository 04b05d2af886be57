// Command handmirror-sender emits synthetic animated hand frames over UDP,
// for exercising the daemon without a real tracking source.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/ayusman/handmirror/internal/ingest"
	"github.com/ayusman/handmirror/internal/protocol"
)

func main() {
	addr := flag.String("addr", "127.0.0.1", "daemon address")
	port := flag.Int("port", ingest.DefaultPort, "daemon UDP port")
	rate := flag.Int("rate", 20, "frames per second")
	hand := flag.String("hand", "Left", "hand label to send (Left or Right)")
	both := flag.Bool("both", false, "send both hands in each frame")
	flag.Parse()

	label := protocol.HandType(*hand)
	if !label.Valid() {
		log.Fatalf("Invalid hand label %q", *hand)
	}

	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d", *addr, *port))
	if err != nil {
		log.Fatalf("Failed to dial %s:%d: %v", *addr, *port, err)
	}
	defer conn.Close()

	fmt.Printf("Sending test hand data to %s:%d\n", *addr, *port)
	fmt.Println("Press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()

	var sent int
	for {
		select {
		case <-sigCh:
			fmt.Printf("\nStopped after %d frames\n", sent)
			return
		case <-ticker.C:
			now := float64(time.Now().UnixNano()) / 1e9
			frame := &protocol.MultiHandFrame{
				Timestamp: now,
				Hands:     []protocol.HandFrame{syntheticHand(label, now, 0)},
			}
			if *both {
				other := protocol.RightHand
				if label == protocol.RightHand {
					other = protocol.LeftHand
				}
				frame.Hands = append(frame.Hands, syntheticHand(other, now, 8.0))
			}

			payload, err := protocol.Encode(frame)
			if err != nil {
				log.Fatalf("Encode failed: %v", err)
			}
			if _, err := conn.Write(payload); err != nil {
				log.Fatalf("Send failed: %v", err)
			}
			sent++
		}
	}
}

// syntheticHand builds an animated hand shape. The pose sweeps gently over
// time so joints, smoothing and angle derivation all get non-trivial input.
func syntheticHand(label protocol.HandType, t, offsetX float64) protocol.HandFrame {
	h := protocol.HandFrame{
		HandType:  label,
		Timestamp: t,
	}
	for i := 0; i < protocol.NumHandLandmarks; i++ {
		x := math.Sin(float64(i)*0.3)*5.0 + offsetX
		y := -float64(i) * 1.0
		z := 0.5

		x += math.Sin(t+float64(i)*0.1) * 0.5
		y += math.Cos(t*0.5) * 2.0

		h.Landmarks = append(h.Landmarks, protocol.Landmark{
			ID:       i,
			Name:     protocol.LandmarkName(i),
			Position: [3]float64{x, y, z},
		})
	}
	return h
}
