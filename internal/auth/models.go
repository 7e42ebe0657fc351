package auth

import (
	"time"

	"github.com/google/uuid"
)

// Owner represents an account that creates events and uploads photo batches.
type Owner struct {
	ID           uuid.UUID
	Email        string
	DisplayName  *string
	IsAdmin      bool
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SafeOwner removes sensitive fields for response payloads.
func (o Owner) SafeOwner() Owner {
	o.PasswordHash = ""
	return o
}

// TokenPair bundles access and refresh tokens.
type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}
