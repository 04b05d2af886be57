// Package server provides the HTTP control surface for the hand mirroring
// daemon.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ayusman/handmirror/internal/app"
	"github.com/ayusman/handmirror/internal/server/api"
	"github.com/ayusman/handmirror/internal/store"
)

// Config holds the server configuration.
type Config struct {
	App   *app.App
	Store *store.Store
}

// Server exposes pipeline state, diagnostics and session recordings over
// HTTP, plus a WebSocket frame stream.
type Server struct {
	config Config
	engine *gin.Engine
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config: config,
		engine: gin.New(),
		start:  time.Now(),
	}
	s.engine.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	apiRoutes := s.engine.Group("/api")

	apiRoutes.GET("/health", s.handleHealth)
	apiRoutes.GET("/state", s.handleState)
	apiRoutes.GET("/stats", s.handleStats)
	apiRoutes.PUT("/mirror", s.handleMirror)

	if s.config.Store != nil {
		api.RegisterSessionRoutes(apiRoutes, s.config.Store)
		apiRoutes.POST("/recordings/start", s.handleRecordingStart)
		apiRoutes.POST("/recordings/stop", s.handleRecordingStop)
	}

	if s.config.App != nil {
		apiRoutes.GET("/stream", NewStreamHandler(s.config.App).Handle)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// trackedHandResponse is one tracked hand in the state response.
type trackedHandResponse struct {
	Label      string  `json:"label"`
	InstanceID string  `json:"instance_id"`
	Joints     int     `json:"joints"`
	LastUpdate float64 `json:"last_update"`
}

// handleState handles GET /api/state and reports the reconciled registry.
func (s *Server) handleState(ctx *gin.Context) {
	if s.config.App == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline not running"})
		return
	}

	tracked := s.config.App.Tracked()
	hands := make([]trackedHandResponse, 0, len(tracked))
	for _, h := range tracked {
		hands = append(hands, trackedHandResponse{
			Label:      string(h.Label),
			InstanceID: h.ID.String(),
			Joints:     h.Joints,
			LastUpdate: h.LastUpdate,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{
		"enabled":   s.config.App.IsEnabled(),
		"hands":     hands,
		"recording": s.config.App.RecordingSession(),
	})
}

// handleStats handles GET /api/stats with ingestion and actuation counters.
func (s *Server) handleStats(ctx *gin.Context) {
	if s.config.App == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline not running"})
		return
	}

	stats := s.config.App.IngestStats()
	resp := gin.H{
		"datagrams":     stats.Datagrams,
		"frames":        stats.Frames,
		"decode_errors": stats.DecodeErrors,
		"read_errors":   stats.ReadErrors,
	}

	if link := s.config.App.Link(); link != nil {
		resp["serial_connected"] = link.Connected()
		resp["commands_sent"] = link.Sends()
		resp["acks_received"] = link.Acks()
	}

	ctx.JSON(http.StatusOK, resp)
}

type mirrorRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleMirror handles PUT /api/mirror to pause or resume processing.
func (s *Server) handleMirror(ctx *gin.Context) {
	if s.config.App == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline not running"})
		return
	}

	var req mirrorRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "enabled field is required"})
		return
	}

	s.config.App.SetEnabled(*req.Enabled)
	ctx.JSON(http.StatusOK, gin.H{"enabled": *req.Enabled})
}

type recordingStartRequest struct {
	Note string `json:"note"`
}

// handleRecordingStart handles POST /api/recordings/start.
func (s *Server) handleRecordingStart(ctx *gin.Context) {
	if s.config.App == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline not running"})
		return
	}

	var req recordingStartRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
			return
		}
	}

	id, err := s.config.App.StartRecording(req.Note)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start recording"})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"session_id": id})
}

// handleRecordingStop handles POST /api/recordings/stop.
func (s *Server) handleRecordingStop(ctx *gin.Context) {
	if s.config.App == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline not running"})
		return
	}

	if err := s.config.App.StopRecording(); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stop recording"})
		return
	}
	ctx.Status(http.StatusNoContent)
}
