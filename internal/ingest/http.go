package ingest

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/cloudface-ai/CloudFace-Ai/internal/auth"
	"github.com/cloudface-ai/CloudFace-Ai/internal/event"
	"github.com/gin-gonic/gin"
)

type eventDirectory interface {
	Get(ctx context.Context, sessionID string) (event.Event, error)
}

// RegisterRoutes mounts batch ingestion and progress polling.
func RegisterRoutes(group *gin.RouterGroup, coordinator *Coordinator, events eventDirectory, progress ProgressSink) {
	handler := &httpHandler{coordinator: coordinator, events: events, progress: progress}
	group.POST("/events/:sessionID/ingest", handler.ingestUploads)
	group.GET("/progress", handler.getProgress)
}

type httpHandler struct {
	coordinator *Coordinator
	events      eventDirectory
	progress    ProgressSink
}

func (h *httpHandler) ingestUploads(c *gin.Context) {
	ownerID, ok := auth.RequireOwner(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	evt, err := h.events.Get(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load event"})
		return
	}
	if evt.AdminUserID != ownerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the event owner"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "files field is required"})
		return
	}

	files := make([]UploadFile, 0, len(headers))
	for _, header := range headers {
		opened, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
			return
		}
		data, err := io.ReadAll(opened)
		opened.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
			return
		}
		files = append(files, UploadFile{Name: header.Filename, Data: data})
	}

	result := h.coordinator.IngestUploads(c.Request.Context(), ownerID, evt.SessionID, evt.FolderID, files)
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) getProgress(c *gin.Context) {
	ownerID, ok := auth.RequireOwner(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	percent, err := h.progress.Get(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read progress"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"percent": percent})
}
