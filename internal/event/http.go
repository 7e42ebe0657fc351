package event

import (
	"errors"
	"net/http"

	"github.com/cloudface-ai/CloudFace-Ai/internal/auth"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts owner-facing event operations under the provided group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/events", handler.createEvent)
	group.GET("/events", handler.listEvents)
	group.POST("/events/:sessionID/photo-paths", handler.appendPhotoPaths)
	group.DELETE("/events/:sessionID", handler.deactivateEvent)
}

// RegisterPublicRoutes mounts the shared-access lookup, which needs no owner token.
func RegisterPublicRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.GET("/events/:sessionID", handler.getEvent)
}

type httpHandler struct {
	service *Service
}

type createEventRequest struct {
	FolderID   string            `json:"folder_id"`
	Metadata   map[string]string `json:"metadata"`
	PhotoPaths []string          `json:"photo_paths"`
}

func (h *httpHandler) createEvent(c *gin.Context) {
	ownerID, ok := auth.RequireOwner(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sessionID, err := h.service.Create(c.Request.Context(), ownerID, req.FolderID, req.Metadata, req.PhotoPaths)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create event"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"session_id": sessionID})
}

func (h *httpHandler) getEvent(c *gin.Context) {
	evt, err := h.service.Get(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load event"})
		return
	}

	c.JSON(http.StatusOK, evt)
}

func (h *httpHandler) listEvents(c *gin.Context) {
	ownerID, ok := auth.RequireOwner(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	events, err := h.service.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

type appendPathsRequest struct {
	Paths []string `json:"paths"`
}

func (h *httpHandler) appendPhotoPaths(c *gin.Context) {
	if _, ok := auth.RequireOwner(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req appendPathsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.service.AppendPhotoPaths(c.Request.Context(), c.Param("sessionID"), req.Paths); err != nil {
		if errors.Is(err, ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to append photo paths"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *httpHandler) deactivateEvent(c *gin.Context) {
	ownerID, ok := auth.RequireOwner(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	err := h.service.Deactivate(c.Request.Context(), c.Param("sessionID"), ownerID)
	if err != nil {
		switch {
		case errors.Is(err, ErrEventNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		case errors.Is(err, ErrEventForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "not the event owner"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate event"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
