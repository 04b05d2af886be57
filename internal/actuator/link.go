// Package actuator sends derived joint angles to motor-driving hardware
// over a byte-oriented serial channel.
package actuator

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/ayusman/handmirror/internal/kinematics"
)

// DefaultBaud matches the firmware's serial configuration.
const DefaultBaud = 9600

// ackTimeout bounds the advisory acknowledgment read. It is intentionally
// far below the frame period so a silent or slow endpoint never stalls the
// next command.
const ackTimeout = 50 * time.Millisecond

// Port is the byte channel the link writes to. Satisfied by
// go.bug.st/serial's Port; tests substitute an in-memory loopback.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(d time.Duration) error
}

// ConnectionError reports a failure to open the serial device. It is
// surfaced to the caller and never retried automatically; the operator
// re-invokes Connect once the device is available.
type ConnectionError struct {
	Device string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("actuator: connect %s: %v", e.Device, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Link frames angle commands for the hardware endpoint and consumes its
// best-effort acknowledgments.
type Link struct {
	mu      sync.Mutex
	port    Port
	pending []byte // partial inbound line carried across ack reads
	sends   uint64
	acks    uint64
}

// NewLink returns a disconnected link.
func NewLink() *Link {
	return &Link{}
}

// Connect opens the serial device. A missing or busy device yields a
// ConnectionError.
func (l *Link) Connect(device string, baud int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port != nil {
		return fmt.Errorf("actuator: already connected")
	}
	if baud <= 0 {
		baud = DefaultBaud
	}

	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return &ConnectionError{Device: device, Err: err}
	}
	if err := port.SetReadTimeout(ackTimeout); err != nil {
		port.Close()
		return &ConnectionError{Device: device, Err: err}
	}

	l.port = port
	l.pending = nil
	log.Printf("Actuator connected on %s at %d baud", device, baud)
	return nil
}

// ConnectPort attaches an already open port. Used by tests and the
// loopback mode.
func (l *Link) ConnectPort(port Port) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port != nil {
		return fmt.Errorf("actuator: already connected")
	}
	if err := port.SetReadTimeout(ackTimeout); err != nil {
		return err
	}
	l.port = port
	l.pending = nil
	return nil
}

// Connected reports whether a port is attached.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port != nil
}

// FormatCommand renders the wire frame for one angle vector. Field order
// and labels are part of the wire contract and must not change.
func FormatCommand(a kinematics.Angles) string {
	return fmt.Sprintf("T:%d,I:%d,M:%d,R:%d,P:%d,H:%d\n",
		a.Thumb, a.Index, a.Middle, a.Ring, a.Pinky, a.Hand)
}

// Send writes one command frame atomically and opportunistically consumes
// whatever the endpoint answers. A missing or garbled acknowledgment is not
// an error; only transport-level write failures are.
func (l *Link) Send(angles kinematics.Angles) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return fmt.Errorf("actuator: not connected")
	}

	frame := FormatCommand(clampAngles(angles))
	if _, err := l.port.Write([]byte(frame)); err != nil {
		return fmt.Errorf("actuator: write command: %w", err)
	}
	l.sends++

	l.drainAck()
	return nil
}

// Disconnect closes the port. Idempotent.
func (l *Link) Disconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return
	}
	if err := l.port.Close(); err != nil {
		log.Printf("Close serial port: %v", err)
	}
	l.port = nil
	l.pending = nil
}

// Sends and Acks report how many commands went out and how many
// acknowledgment lines came back. Advisory only.
func (l *Link) Sends() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sends
}

func (l *Link) Acks() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acks
}

// drainAck performs one bounded read and logs any complete inbound lines.
// The read timeout is the only wait; a silent endpoint just times out.
// Called with the mutex held.
func (l *Link) drainAck() {
	buf := make([]byte, 256)
	n, err := l.port.Read(buf)
	if err != nil {
		// Inbound traffic is advisory; read failures are logged, not
		// propagated.
		log.Printf("Ack read: %v", err)
		return
	}
	if n == 0 {
		return
	}

	l.pending = append(l.pending, buf[:n]...)
	for {
		idx := strings.IndexByte(string(l.pending), '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimSpace(string(l.pending[:idx]))
		l.pending = l.pending[idx+1:]
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "ACK:") {
			l.acks++
		} else {
			// Free-form diagnostic text from the firmware.
			log.Printf("Firmware: %s", line)
		}
	}
}

// clampAngles limits every field to the servo range before framing.
func clampAngles(a kinematics.Angles) kinematics.Angles {
	clamp := func(v int) int {
		if v < kinematics.MinAngle {
			return kinematics.MinAngle
		}
		if v > kinematics.MaxAngle {
			return kinematics.MaxAngle
		}
		return v
	}
	return kinematics.Angles{
		Thumb:  clamp(a.Thumb),
		Index:  clamp(a.Index),
		Middle: clamp(a.Middle),
		Ring:   clamp(a.Ring),
		Pinky:  clamp(a.Pinky),
		Hand:   clamp(a.Hand),
	}
}
