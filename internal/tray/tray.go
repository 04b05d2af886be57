// Package tray provides a system tray interface for the hand mirroring
// daemon.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray menu for the daemon.
type Tray struct {
	onToggle  func(enabled bool)
	onMonitor func()
	onQuit    func()
	enabled   bool
	mu        sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuHands  *systray.MenuItem
	menuSerial *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when mirroring is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnMonitor sets the callback function to be called when the monitor menu
// item is clicked.
func (t *Tray) OnMonitor(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMonitor = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("HandMirror")
	systray.SetTooltip("HandMirror pose mirroring")

	t.menuToggle = systray.AddMenuItem("● Mirroring", "Toggle hand mirroring")
	systray.AddSeparator()

	t.menuHands = systray.AddMenuItem("Hands: none", "Currently tracked hands")
	t.menuHands.Disable()

	t.menuSerial = systray.AddMenuItem("Serial: disconnected", "Actuation link state")
	t.menuSerial.Disable()
	systray.AddSeparator()

	menuMonitor := systray.AddMenuItem("Open Monitor...", "Open the status page in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit HandMirror")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuMonitor.ClickedCh:
				t.handleMonitor()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if enabled {
		t.menuToggle.SetTitle("● Mirroring")
	} else {
		t.menuToggle.SetTitle("○ Paused")
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleMonitor handles the monitor menu item click.
func (t *Tray) handleMonitor() {
	t.mu.RLock()
	callback := t.onMonitor
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetHands updates the tracked hands display in the menu.
func (t *Tray) SetHands(labels []string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuHands == nil {
		return
	}
	if len(labels) == 0 {
		t.menuHands.SetTitle("Hands: none")
		return
	}
	title := "Hands: " + labels[0]
	for _, l := range labels[1:] {
		title += ", " + l
	}
	t.menuHands.SetTitle(title)
}

// SetSerialConnected updates the actuation link display in the menu.
func (t *Tray) SetSerialConnected(connected bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuSerial == nil {
		return
	}
	if connected {
		t.menuSerial.SetTitle("Serial: connected")
	} else {
		t.menuSerial.SetTitle("Serial: disconnected")
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
