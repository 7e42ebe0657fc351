package resolver

import (
	"context"
	"errors"
	"net/http"

	"github.com/cloudface-ai/CloudFace-Ai/internal/auth"
	"github.com/cloudface-ai/CloudFace-Ai/internal/event"
	"github.com/gin-gonic/gin"
)

type eventDirectory interface {
	Get(ctx context.Context, sessionID string) (event.Event, error)
}

// RegisterRoutes mounts photo serving and storage maintenance endpoints.
func RegisterRoutes(group *gin.RouterGroup, layout Layout, mirror *Mirror, events eventDirectory) {
	handler := &httpHandler{layout: layout, mirror: mirror, events: events}
	group.GET("/photos/*filename", handler.servePhoto)
	group.POST("/events/:sessionID/mirror", handler.mirrorEvent)
	group.POST("/events/:sessionID/reingest", handler.forceReingest)
}

type httpHandler struct {
	layout Layout
	mirror *Mirror
	events eventDirectory
}

func (h *httpHandler) servePhoto(c *gin.Context) {
	ownerID, ok := auth.RequireOwner(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	rctx := ResolutionContext{OwnerID: ownerID}
	if sessionID := c.Query("event"); sessionID != "" {
		evt, err := h.events.Get(c.Request.Context(), sessionID)
		if err != nil {
			if errors.Is(err, event.ErrEventNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load event"})
			return
		}
		rctx.EventID = evt.SessionID
		rctx.FolderID = evt.FolderID
	}

	path, err := h.layout.ResolveForServing(c.Param("filename"), rctx)
	if err != nil {
		if errors.Is(err, ErrInvalidPath) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo path"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "photo not found"})
		return
	}

	c.File(path)
}

func (h *httpHandler) mirrorEvent(c *gin.Context) {
	ownerID, evt, ok := h.ownedEvent(c)
	if !ok {
		return
	}

	copied, err := h.mirror.Mirror(ownerID, evt.FolderID, evt.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "copied": copied})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": evt.SessionID, "copied": copied})
}

func (h *httpHandler) forceReingest(c *gin.Context) {
	ownerID, evt, ok := h.ownedEvent(c)
	if !ok {
		return
	}

	processed, err := h.mirror.ForceReingest(c.Request.Context(), ownerID, evt.FolderID, evt.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "faces_indexed": processed})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": evt.SessionID, "faces_indexed": processed})
}

func (h *httpHandler) ownedEvent(c *gin.Context) (string, event.Event, bool) {
	ownerID, ok := auth.RequireOwner(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", event.Event{}, false
	}

	evt, err := h.events.Get(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load event"})
		}
		return "", event.Event{}, false
	}
	if evt.AdminUserID != ownerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the event owner"})
		return "", event.Event{}, false
	}

	return ownerID, evt, true
}
