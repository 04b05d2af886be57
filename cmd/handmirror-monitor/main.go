// Command handmirror-monitor is a terminal viewer for the landmark stream.
// It binds the ingestion port itself, so it runs in place of the daemon as
// a diagnostic listener: point the tracking source at it and watch frames,
// derived angles and decode counters live.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ayusman/handmirror/internal/ingest"
	"github.com/ayusman/handmirror/internal/kinematics"
	"github.com/ayusman/handmirror/internal/protocol"
)

const (
	refreshInterval = 33 * time.Millisecond
	maxLogs         = 5 // number of log messages to show
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	handStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

type handAngles struct {
	label  protocol.HandType
	angles kinematics.Angles
	err    error
}

type model struct {
	port     int
	receiver *ingest.Receiver
	handoff  *ingest.Handoff
	logCh    chan string

	frame    *protocol.MultiHandFrame
	derived  []handAngles
	logs     []string
	quitting bool
}

func (m *model) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// tickMsg drives the redraw loop.
type tickMsg time.Time

type logMsg string

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForLog(ch chan string) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ch)
	}
}

// logWriter feeds stdlib log output into the TUI, dropping lines when the
// channel is full so logging can never stall the receiver.
type logWriter struct {
	ch chan string
}

func (w logWriter) Write(p []byte) (int, error) {
	select {
	case w.ch <- strings.TrimRight(string(p), "\n"):
	default:
	}
	return len(p), nil
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), waitForLog(m.logCh))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		if frame := m.handoff.Consume(); frame != nil {
			m.frame = frame
			m.derived = m.derived[:0]
			for i := range frame.Hands {
				hand := &frame.Hands[i]
				angles, err := kinematics.Derive(hand)
				m.derived = append(m.derived, handAngles{
					label:  hand.HandType,
					angles: angles,
					err:    err,
				})
			}
		}
		return m, tick()

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.logCh)
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return "Monitor stopped.\n"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("HandMirror Monitor"))
	sb.WriteString(fmt.Sprintf(" - udp :%d\n\n", m.port))

	if m.frame == nil {
		sb.WriteString(statusStyle.Render("Waiting for frames..."))
		sb.WriteString("\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("Frame %.3f  hands: %d\n\n", m.frame.Timestamp, len(m.frame.Hands)))
		for _, h := range m.derived {
			sb.WriteString(boxStyle.Render(renderHand(h)))
			sb.WriteString("\n")
		}
	}

	stats := m.receiver.Stats()
	sb.WriteString(statusStyle.Render(fmt.Sprintf(
		"datagrams: %d  frames: %d  decode errors: %d  read errors: %d",
		stats.Datagrams, stats.Frames, stats.DecodeErrors, stats.ReadErrors)))
	sb.WriteString("\n")
	if len(m.logs) > 0 {
		sb.WriteString(errStyle.Render(strings.Join(m.logs, "\n")))
		sb.WriteString("\n")
	}
	sb.WriteString(statusStyle.Render("Press 'q' to quit"))
	sb.WriteString("\n")

	return sb.String()
}

// renderHand formats one hand's derived angles as labelled bars.
func renderHand(h handAngles) string {
	var sb strings.Builder
	sb.WriteString(handStyle.Render(string(h.label)))
	sb.WriteString("\n")

	if h.err != nil {
		sb.WriteString(errStyle.Render(fmt.Sprintf("derivation failed: %v", h.err)))
		return sb.String()
	}

	rows := []struct {
		name  string
		value int
	}{
		{"thumb ", h.angles.Thumb},
		{"index ", h.angles.Index},
		{"middle", h.angles.Middle},
		{"ring  ", h.angles.Ring},
		{"pinky ", h.angles.Pinky},
		{"hand  ", h.angles.Hand},
	}
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%s %3d ", row.name, row.value))
		sb.WriteString(barStyle.Render(bar(row.value)))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// bar renders a fixed-width gauge for an angle in the servo range.
func bar(angle int) string {
	const width = 30
	filled := angle * width / kinematics.MaxAngle
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func main() {
	port := flag.Int("port", ingest.DefaultPort, "UDP port to listen on")
	flag.Parse()

	handoff := ingest.NewHandoff()
	receiver := ingest.NewReceiver(handoff)
	if err := receiver.Start(*port); err != nil {
		log.Fatalf("Failed to bind udp :%d: %v", *port, err)
	}
	defer receiver.Stop()

	// Redirect receiver diagnostics into the log pane so they don't
	// corrupt the alt screen.
	logCh := make(chan string, 8)
	log.SetOutput(logWriter{ch: logCh})
	defer log.SetOutput(os.Stderr)

	m := model{port: *port, receiver: receiver, handoff: handoff, logCh: logCh}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}
