package actuator

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ayusman/handmirror/internal/kinematics"
)

// Loopback is an in-memory Port that behaves like connected firmware: it
// parses command frames, clamps them, records the applied angles and queues
// an acknowledgment line for the next read. Used by tests and by dry runs
// without hardware attached.
type Loopback struct {
	mu      sync.Mutex
	inbound []byte // bytes the link may read (acks, diagnostics)
	partial []byte // incomplete command line
	applied []kinematics.Angles
	timeout time.Duration
	closed  bool

	// Silent suppresses acknowledgments, simulating a dropped ack line.
	Silent bool
}

// NewLoopback returns a ready loopback port.
func NewLoopback() *Loopback {
	return &Loopback{}
}

// Applied returns the commands the endpoint has accepted, in order.
func (p *Loopback) Applied() []kinematics.Angles {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]kinematics.Angles, len(p.applied))
	copy(out, p.applied)
	return out
}

// Inject queues raw bytes for the link to read, as if the firmware had
// printed them.
func (p *Loopback) Inject(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inbound = append(p.inbound, data...)
}

// Write consumes command bytes, applying each complete line.
func (p *Loopback) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, fmt.Errorf("loopback: port closed")
	}

	p.partial = append(p.partial, data...)
	for {
		idx := strings.IndexByte(string(p.partial), '\n')
		if idx < 0 {
			break
		}
		line := string(p.partial[:idx])
		p.partial = p.partial[idx+1:]

		angles, err := ParseCommand(line)
		if err != nil {
			// Real firmware prints a diagnostic and carries on.
			if !p.Silent {
				p.inbound = append(p.inbound, []byte("ERR: unparseable command\n")...)
			}
			continue
		}
		p.applied = append(p.applied, angles)
		if !p.Silent {
			p.inbound = append(p.inbound, []byte(AckLine(angles))...)
		}
	}
	return len(data), nil
}

// Read returns queued inbound bytes, waiting up to the configured timeout.
// A timeout returns (0, nil), matching serial port semantics.
func (p *Loopback) Read(buf []byte) (int, error) {
	deadline := time.Now().Add(p.readTimeout())
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return 0, fmt.Errorf("loopback: port closed")
		}
		if len(p.inbound) > 0 {
			n := copy(buf, p.inbound)
			p.inbound = p.inbound[n:]
			p.mu.Unlock()
			return n, nil
		}
		p.mu.Unlock()

		if !time.Now().Before(deadline) {
			return 0, nil
		}
		time.Sleep(time.Millisecond)
	}
}

// Close marks the port closed. Idempotent.
func (p *Loopback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// SetReadTimeout sets how long Read waits for inbound bytes.
func (p *Loopback) SetReadTimeout(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = d
	return nil
}

func (p *Loopback) readTimeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timeout
}
