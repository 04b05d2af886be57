// Package ingest receives landmark datagrams from the perception source and
// publishes the most recent successfully decoded frame.
package ingest

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/handmirror/internal/protocol"
)

// DefaultPort is the well-known landmark ingestion port.
const DefaultPort = 5065

const (
	// readTimeout bounds each blocking receive so a stop request is honored
	// within one timeout tick even if no packet ever arrives.
	readTimeout = 250 * time.Millisecond
	// errorBackoff is the pause after a transport-level receive error, so a
	// persistently failing socket does not busy-spin the loop.
	errorBackoff = 100 * time.Millisecond
)

// Stats holds the receiver's diagnostic counters.
type Stats struct {
	Datagrams    uint64 // datagrams received
	Frames       uint64 // frames decoded and published
	DecodeErrors uint64 // datagrams dropped as malformed
	ReadErrors   uint64 // transport-level receive errors
}

// Receiver owns the UDP socket and the background receive loop. Each
// successfully decoded frame is published to the Handoff; malformed
// datagrams are dropped and counted without disturbing published state.
type Receiver struct {
	handoff *Handoff

	mu      sync.Mutex
	conn    *net.UDPConn
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool

	datagrams    atomic.Uint64
	frames       atomic.Uint64
	decodeErrors atomic.Uint64
	readErrors   atomic.Uint64
}

// NewReceiver creates a receiver that publishes into the given handoff.
func NewReceiver(handoff *Handoff) *Receiver {
	return &Receiver{handoff: handoff}
}

// Start binds the UDP port and launches the receive loop. Starting an
// already running receiver is a no-op.
func (r *Receiver) Start(port int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: port})
	if err != nil {
		return fmt.Errorf("ingest: bind udp port %d: %w", port, err)
	}

	r.conn = conn
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.running = true

	go r.receiveLoop(conn, r.stopCh, r.doneCh)

	log.Printf("Listening for landmark datagrams on %s", conn.LocalAddr())
	return nil
}

// Stop terminates the receive loop and releases the socket. It is
// idempotent and safe to call on a receiver that was never started. Stop
// returns once the loop has exited, bounded by one read timeout.
func (r *Receiver) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	doneCh := r.doneCh
	r.conn = nil
	r.mu.Unlock()

	<-doneCh
}

// Addr returns the bound socket address, or nil when not running. Useful
// when starting on port 0 to find the kernel-assigned port.
func (r *Receiver) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// Stats returns a snapshot of the diagnostic counters.
func (r *Receiver) Stats() Stats {
	return Stats{
		Datagrams:    r.datagrams.Load(),
		Frames:       r.frames.Load(),
		DecodeErrors: r.decodeErrors.Load(),
		ReadErrors:   r.readErrors.Load(),
	}
}

// receiveLoop runs on its own goroutine until stopCh closes. The loop owns
// conn and the decode buffer exclusively and closes the socket on exit.
func (r *Receiver) receiveLoop(conn *net.UDPConn, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	defer conn.Close()

	buf := make([]byte, 65536)

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			r.readErrors.Add(1)
			log.Printf("Set read deadline: %v", err)
			time.Sleep(errorBackoff)
			continue
		}

		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			select {
			case <-stopCh:
				return
			default:
			}
			r.readErrors.Add(1)
			log.Printf("Receive error: %v", err)
			time.Sleep(errorBackoff)
			continue
		}

		r.datagrams.Add(1)
		r.handleDatagram(buf[:n])
	}
}

// handleDatagram decodes one payload and publishes it. A decode failure
// drops only that datagram; the previously published frame stays visible.
func (r *Receiver) handleDatagram(payload []byte) {
	frame, err := protocol.Decode(payload)
	if err != nil {
		n := r.decodeErrors.Add(1)
		// Keep the log readable under a flood of garbage.
		if n == 1 || n%100 == 0 {
			log.Printf("Dropped malformed datagram (%d total): %v", n, err)
		}
		return
	}

	r.handoff.Publish(frame)
	r.frames.Add(1)
}
