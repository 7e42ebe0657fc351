package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event statuses. Events are deactivated, never deleted.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// LocalUploadScope is the sentinel requested scope for owner-local uploads.
// Creating an event with it mints a fresh id and makes the storage scope equal
// to that id.
const LocalUploadScope = "uploaded"

// Event binds an owner to a storage partition for one sharing occasion.
type Event struct {
	SessionID   string            `json:"session_id"`
	AdminUserID string            `json:"admin_user_id"`
	FolderID    string            `json:"folder_id"`
	Metadata    map[string]string `json:"metadata"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
	AccessCount int               `json:"access_count"`
	Status      string            `json:"status"`
	PhotoPaths  []string          `json:"photo_paths,omitempty"`
}

// Expired reports whether the event's fixed lifetime has elapsed.
func (e Event) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// NewSessionID mints a short opaque event identifier, e.g. "a1b2c3d4e5f6".
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
