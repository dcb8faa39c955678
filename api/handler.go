// Package api serves the camera session over HTTP: the event callback cameras push
// notifications to, plus a small JSON control and status API.
package api

import (
	"io"
	"net/http"
	"strconv"

	onvif "github.com/SridarDhandapani/go-onvif"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// EventPath is where cameras deliver pushed notifications. Use it in the callback URL.
const EventPath = "/onvif/events"

// Camera is the part of *onvif.Session the handler drives
type Camera interface {
	Connect(useEvents bool)
	Disconnect()
	Status() onvif.Status
	GetStatus()
	SetAbsolutePan(percent float64)
	SetAbsoluteTilt(percent float64)
	SetAbsoluteZoom(percent float64)
	AbsoluteMove()
	GotoPreset(index int)
	SetSelectedMediaProfile(index int)
	SendPTZRequest(op onvif.Operation)
	Notify(body string)
}

// Handler provides the HTTP handlers for one camera
type Handler struct {
	log    zerolog.Logger
	camera Camera
	state  *CameraState
	events bool
}

// NewHandler builds a handler. useEvents is passed to Connect.
func NewHandler(log zerolog.Logger, camera Camera, state *CameraState, useEvents bool) *Handler {
	return &Handler{
		log:    log.With().Str("component", "api").Logger(),
		camera: camera,
		state:  state,
		events: useEvents,
	}
}

// Router registers every route on a new gin engine
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.logRequests)

	r.POST(EventPath, h.Event)
	r.GET("/status", h.Status)
	r.POST("/connect", h.Connect)
	r.POST("/disconnect", h.Disconnect)

	ptz := r.Group("/ptz")
	ptz.POST("/absolute", h.AbsoluteMove)
	ptz.POST("/preset/:index", h.GotoPreset)
	ptz.POST("/op/:name", h.Operation)
	ptz.POST("/refresh", h.Refresh)

	r.POST("/profile/:index", h.SelectProfile)
	return r
}

func (h *Handler) logRequests(c *gin.Context) {
	c.Next()
	h.log.Debug().
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Int("status", c.Writer.Status()).
		Msg("request")
}

// Event handles POST /onvif/events
func (h *Handler) Event(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to read event notification")
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	h.camera.Notify(string(body))
	c.Status(http.StatusOK)
}

// Status handles GET /status
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"session": h.camera.Status(),
		"camera":  h.state.Snapshot(),
	})
}

// Connect handles POST /connect
func (h *Handler) Connect(c *gin.Context) {
	h.camera.Connect(h.events)
	c.Status(http.StatusAccepted)
}

// Disconnect handles POST /disconnect
func (h *Handler) Disconnect(c *gin.Context) {
	h.camera.Disconnect()
	c.Status(http.StatusAccepted)
}

type absoluteRequest struct {
	Pan  *float64 `json:"pan"`
	Tilt *float64 `json:"tilt"`
	Zoom *float64 `json:"zoom"`
}

// AbsoluteMove handles POST /ptz/absolute. Omitted axes keep their last value.
func (h *Handler) AbsoluteMove(c *gin.Context) {
	var req absoluteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !h.camera.Status().SupportsPTZ {
		c.JSON(http.StatusConflict, gin.H{"error": "camera does not support PTZ"})
		return
	}

	if req.Pan != nil {
		h.camera.SetAbsolutePan(*req.Pan)
	}
	if req.Tilt != nil {
		h.camera.SetAbsoluteTilt(*req.Tilt)
	}
	if req.Zoom != nil {
		h.camera.SetAbsoluteZoom(*req.Zoom)
	}
	h.camera.AbsoluteMove()
	c.Status(http.StatusAccepted)
}

// GotoPreset handles POST /ptz/preset/:index
func (h *Handler) GotoPreset(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "preset index must be a non-negative integer"})
		return
	}
	h.camera.GotoPreset(index)
	c.Status(http.StatusAccepted)
}

// Operation handles POST /ptz/op/:name
func (h *Handler) Operation(c *gin.Context) {
	op, err := onvif.ParseOperation(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.camera.SendPTZRequest(op)
	c.Status(http.StatusAccepted)
}

// Refresh handles POST /ptz/refresh
func (h *Handler) Refresh(c *gin.Context) {
	h.camera.GetStatus()
	c.Status(http.StatusAccepted)
}

// SelectProfile handles POST /profile/:index
func (h *Handler) SelectProfile(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "profile index must be a non-negative integer"})
		return
	}
	h.camera.SetSelectedMediaProfile(index)
	c.Status(http.StatusNoContent)
}
