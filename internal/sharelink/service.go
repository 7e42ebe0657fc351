package sharelink

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudface-ai/CloudFace-Ai/internal/event"
)

var (
	// ErrInvalidToken covers malformed, tampered or expired share tokens.
	ErrInvalidToken = errors.New("invalid share token")
	// ErrNotEventOwner is returned when a caller shares someone else's event.
	ErrNotEventOwner = errors.New("not the event owner")
)

const signatureLength = 16

type eventDirectory interface {
	Get(ctx context.Context, sessionID string) (event.Event, error)
}

// Service mints and validates self-contained share tokens. A token binds an
// event id to an expiry and is signed, so no link state needs storing.
type Service struct {
	events  eventDirectory
	secret  []byte
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewService builds a share link service.
func NewService(events eventDirectory, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{
		events:  events,
		secret:  []byte(secret),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// Create validates ownership and returns a signed token for the event.
func (s *Service) Create(ctx context.Context, ownerID, sessionID string) (string, time.Time, error) {
	evt, err := s.events.Get(ctx, sessionID)
	if err != nil {
		return "", time.Time{}, err
	}
	if evt.AdminUserID != ownerID {
		return "", time.Time{}, ErrNotEventOwner
	}

	expiresAt := s.nowFunc().Add(s.ttl)
	return s.sign(sessionID, expiresAt), expiresAt, nil
}

// Resolve validates the token and loads the shared event. The event's access
// count advances through the directory lookup.
func (s *Service) Resolve(ctx context.Context, token string) (event.Event, error) {
	sessionID, err := s.verify(token)
	if err != nil {
		return event.Event{}, err
	}
	return s.events.Get(ctx, sessionID)
}

func (s *Service) sign(sessionID string, expiresAt time.Time) string {
	payload := fmt.Sprintf("%s:%d", sessionID, expiresAt.Unix())
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + s.mac(payload)
}

func (s *Service) verify(token string) (string, error) {
	encoded, sig, found := strings.Cut(token, ".")
	if !found {
		return "", ErrInvalidToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidToken
	}
	payload := string(raw)

	if !hmac.Equal([]byte(sig), []byte(s.mac(payload))) {
		return "", ErrInvalidToken
	}

	sessionID, expiresStr, found := strings.Cut(payload, ":")
	if !found || sessionID == "" {
		return "", ErrInvalidToken
	}
	expiresUnix, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil || s.nowFunc().After(time.Unix(expiresUnix, 0)) {
		return "", ErrInvalidToken
	}

	return sessionID, nil
}

func (s *Service) mac(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil)[:signatureLength])
}
