package sharelink

import (
	"errors"
	"net/http"

	"github.com/cloudface-ai/CloudFace-Ai/internal/auth"
	"github.com/cloudface-ai/CloudFace-Ai/internal/event"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts owner-facing link creation.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/share-links", handler.createLink)
}

// RegisterPublicRoutes mounts the public share-token resolution endpoint.
func RegisterPublicRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.GET("/s/:token", handler.resolveLink)
}

type httpHandler struct {
	service *Service
}

type createLinkRequest struct {
	SessionID string `json:"session_id"`
}

func (h *httpHandler) createLink(c *gin.Context) {
	ownerID, ok := auth.RequireOwner(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	token, expiresAt, err := h.service.Create(c.Request.Context(), ownerID, req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, event.ErrEventNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		case errors.Is(err, ErrNotEventOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "not the event owner"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create share link"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":      token,
		"url":        "/v1/s/" + token,
		"expires_at": expiresAt,
	})
}

func (h *httpHandler) resolveLink(c *gin.Context) {
	evt, err := h.service.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired share link"})
		case errors.Is(err, event.ErrEventNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve share link"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":    evt.SessionID,
		"admin_user_id": evt.AdminUserID,
		"folder_id":     evt.FolderID,
		"metadata":      evt.Metadata,
	})
}
