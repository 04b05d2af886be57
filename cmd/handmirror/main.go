package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/ayusman/handmirror/internal/actuator"
	"github.com/ayusman/handmirror/internal/app"
	"github.com/ayusman/handmirror/internal/ingest"
	"github.com/ayusman/handmirror/internal/protocol"
	"github.com/ayusman/handmirror/internal/server"
	"github.com/ayusman/handmirror/internal/store"
	"github.com/ayusman/handmirror/internal/tray"
)

func main() {
	fmt.Println("HandMirror - Hand Pose Mirroring")

	loadConfig()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}

	dbDir := filepath.Join(homeDir, ".handmirror")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(filepath.Join(dbDir, "handmirror.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	// The serial link is optional: without it the daemon still mirrors and
	// records, it just does not actuate.
	var link *actuator.Link
	if device := viper.GetString("serial.device"); device != "" {
		link = actuator.NewLink()
		if err := link.Connect(device, viper.GetInt("serial.baud")); err != nil {
			log.Printf("Serial link unavailable: %v", err)
			link = nil
		} else {
			defer link.Disconnect()
			log.Printf("Serial link connected on %s", device)
		}
	}

	a := app.New(app.Config{
		UDPPort:       viper.GetInt("udp.port"),
		TickFPS:       viper.GetInt("pipeline.fps"),
		ActuationHz:   viper.GetInt("serial.rate"),
		MirrorHand:    protocol.HandType(viper.GetString("pipeline.mirror_hand")),
		Link:          link,
		Store:         st,
		LateralScale:  viper.GetFloat64("pipeline.lateral_scale"),
		DepthScale:    viper.GetFloat64("pipeline.depth_scale"),
		SmoothingRate: viper.GetFloat64("pipeline.smoothing_rate"),
		Forearm:       viper.GetBool("pipeline.forearm"),
		Bones:         viper.GetBool("pipeline.bones"),
	})
	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}
	defer a.Stop()

	srv := server.New(server.Config{App: a, Store: st})
	httpAddr := viper.GetString("http.addr")
	go func() {
		log.Printf("HTTP server listening on %s", httpAddr)
		if err := srv.ListenAndServe(httpAddr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if viper.GetBool("tray.enabled") {
		runTray(a, httpAddr)
		return
	}

	// Headless: block until interrupted.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down")
}

// loadConfig reads config.yaml when present and fills in defaults so the
// daemon runs with no config file at all.
func loadConfig() {
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.handmirror")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("udp.port", ingest.DefaultPort)
	viper.SetDefault("http.addr", ":8080")
	viper.SetDefault("serial.device", "")
	viper.SetDefault("serial.baud", actuator.DefaultBaud)
	viper.SetDefault("serial.rate", app.DefaultActuationHz)
	viper.SetDefault("pipeline.fps", app.DefaultTickFPS)
	viper.SetDefault("pipeline.mirror_hand", string(protocol.RightHand))
	viper.SetDefault("pipeline.lateral_scale", 0.0)
	viper.SetDefault("pipeline.depth_scale", 0.0)
	viper.SetDefault("pipeline.smoothing_rate", 0.0)
	viper.SetDefault("pipeline.forearm", false)
	viper.SetDefault("pipeline.bones", true)
	viper.SetDefault("tray.enabled", false)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatalf("Could not read config file: %v", err)
		}
	}
}

// runTray blocks running the system tray loop wired to the pipeline.
func runTray(a *app.App, httpAddr string) {
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnMonitor(func() { openBrowser("http://localhost" + httpAddr + "/api/state") })
	t.OnQuit(func() { log.Println("Quit requested from tray") })

	// Refresh the status lines from the pipeline.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for range ticker.C {
			tracked := a.Tracked()
			labels := make([]string, 0, len(tracked))
			for _, h := range tracked {
				labels = append(labels, string(h.Label))
			}
			t.SetHands(labels)
			t.SetSerialConnected(a.Link() != nil && a.Link().Connected())
		}
	}()

	t.Run()
}

// openBrowser opens the given URL with the platform opener.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
