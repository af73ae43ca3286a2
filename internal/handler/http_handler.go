package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dunkelstern/obs-touchosc/internal/bridge"
	"github.com/dunkelstern/obs-touchosc/internal/domain"
	"github.com/dunkelstern/obs-touchosc/internal/osc"
	"github.com/dunkelstern/obs-touchosc/pkg/log"
	"github.com/dunkelstern/obs-touchosc/pkg/response"
)

// Bridge is the engine surface exposed over HTTP.
type Bridge interface {
	Snapshot() domain.Snapshot
	RequestResync() error
	Control(ctx context.Context, msg osc.Message) error
}

// ControlRequest is the body of POST /api/v1/control.
type ControlRequest struct {
	Address string   `json:"address" binding:"required"`
	Value   *float64 `json:"value" binding:"required"`
}

// Handler handles admin HTTP requests.
type Handler struct {
	bridge Bridge
}

// NewHandler creates a new HTTP handler.
func NewHandler(b Bridge) *Handler {
	return &Handler{bridge: b}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		api.GET("/state", h.GetState)
		api.POST("/resync", h.Resync)
		api.POST("/control", h.Control)
	}
}

// Health reports whether the switcher connection is up.
func (h *Handler) Health(c *gin.Context) {
	if !h.bridge.Snapshot().Connected {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "disconnected"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetState returns the current bridge snapshot.
func (h *Handler) GetState(c *gin.Context) {
	response.Success(c, h.bridge.Snapshot())
}

// Resync queues a full rediscovery.
func (h *Handler) Resync(c *gin.Context) {
	l := log.Ctx(c.Request.Context())

	if err := h.bridge.RequestResync(); err != nil {
		l.Warn().Err(err).Msg("resync rejected")
		response.ServiceUnavailable(c, err.Error())
		return
	}
	response.Accepted(c, gin.H{"queued": true})
}

// Control injects one control message as if the panel had sent it.
func (h *Handler) Control(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req ControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind control request")
		response.BadRequest(c, err.Error())
		return
	}

	err := h.bridge.Control(ctx, osc.Message{Address: req.Address, Value: *req.Value})
	if err != nil {
		if errors.Is(err, bridge.ErrStopped) {
			response.ServiceUnavailable(c, err.Error())
			return
		}
		l.Error().Err(err).Str(log.FieldAddress, req.Address).Msg("control failed")
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"address": req.Address, "value": *req.Value})
}
