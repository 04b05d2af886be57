// Package api provides HTTP handlers for session recording resources.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ayusman/handmirror/internal/protocol"
	"github.com/ayusman/handmirror/internal/store"
)

// SessionHandler handles HTTP requests for recorded sessions.
type SessionHandler struct {
	store *store.Store
}

// RegisterSessionRoutes mounts the session endpoints on the given group.
func RegisterSessionRoutes(rg *gin.RouterGroup, s *store.Store) {
	h := &SessionHandler{store: s}

	rg.GET("/sessions", h.list)
	rg.GET("/sessions/:id", h.get)
	rg.GET("/sessions/:id/frames", h.frames)
	rg.GET("/sessions/:id/angles", h.angles)
	rg.DELETE("/sessions/:id", h.delete)
}

// Response types

type sessionResponse struct {
	ID        string `json:"id"`
	Note      string `json:"note"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type frameResponse struct {
	Seq       int64               `json:"seq"`
	Timestamp float64             `json:"timestamp"`
	HandType  string              `json:"hand_type"`
	Landmarks []protocol.Landmark `json:"landmarks"`
}

type angleResponse struct {
	Seq       int64   `json:"seq"`
	Timestamp float64 `json:"timestamp"`
	HandType  string  `json:"hand_type"`
	Thumb     int     `json:"thumb"`
	Index     int     `json:"index"`
	Middle    int     `json:"middle"`
	Ring      int     `json:"ring"`
	Pinky     int     `json:"pinky"`
	Hand      int     `json:"hand"`
}

// toResponse converts a store.Session to a sessionResponse.
func toResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		Note:      s.Note,
		StartedAt: s.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if s.EndedAt != nil {
		resp.EndedAt = s.EndedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

// list handles GET /api/sessions and returns all sessions, newest first.
func (h *SessionHandler) list(ctx *gin.Context) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for i := range sessions {
		response.Sessions = append(response.Sessions, toResponse(&sessions[i]))
	}

	ctx.JSON(http.StatusOK, response)
}

// get handles GET /api/sessions/{id} and returns a single session.
func (h *SessionHandler) get(ctx *gin.Context) {
	sess, err := h.store.Sessions().Get(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get session"})
		return
	}

	ctx.JSON(http.StatusOK, toResponse(sess))
}

// frames handles GET /api/sessions/{id}/frames and returns the recorded
// landmark frames in sequence order.
func (h *SessionHandler) frames(ctx *gin.Context) {
	id := ctx.Param("id")
	if _, err := h.store.Sessions().Get(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get session"})
		return
	}

	records, err := h.store.Recordings().FramesBySession(id)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list frames"})
		return
	}

	frames := make([]frameResponse, 0, len(records))
	for _, rec := range records {
		frames = append(frames, frameResponse{
			Seq:       rec.Seq,
			Timestamp: rec.Timestamp,
			HandType:  string(rec.HandType),
			Landmarks: rec.Landmarks,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"frames": frames})
}

// angles handles GET /api/sessions/{id}/angles and returns the derived
// servo angles in sequence order.
func (h *SessionHandler) angles(ctx *gin.Context) {
	id := ctx.Param("id")
	if _, err := h.store.Sessions().Get(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get session"})
		return
	}

	records, err := h.store.Recordings().AnglesBySession(id)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list angles"})
		return
	}

	angles := make([]angleResponse, 0, len(records))
	for _, rec := range records {
		angles = append(angles, angleResponse{
			Seq:       rec.Seq,
			Timestamp: rec.Timestamp,
			HandType:  string(rec.HandType),
			Thumb:     rec.Angles.Thumb,
			Index:     rec.Angles.Index,
			Middle:    rec.Angles.Middle,
			Ring:      rec.Angles.Ring,
			Pinky:     rec.Angles.Pinky,
			Hand:      rec.Angles.Hand,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"angles": angles})
}

// delete handles DELETE /api/sessions/{id} and removes a session together
// with its recordings.
func (h *SessionHandler) delete(ctx *gin.Context) {
	if err := h.store.Sessions().Delete(ctx.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
		return
	}

	ctx.Status(http.StatusNoContent)
}
