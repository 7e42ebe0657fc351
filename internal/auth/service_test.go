package auth

import (
	"context"
	"testing"
	"time"

	"github.com/cloudface-ai/CloudFace-Ai/internal/config"
	"github.com/google/uuid"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     time.Minute,
		RefreshTokenTTL:    time.Hour,
		BcryptCost:         4,
	}
}

func TestRegisterSuccess(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	result, err := service.Register(context.Background(), RegisterInput{
		Email:    "owner@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	if result.Owner.PasswordHash != "" {
		t.Fatalf("expected password hash to be stripped from response")
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatalf("expected tokens to be issued")
	}
	if len(store.owners) != 1 {
		t.Fatalf("expected owner stored; got %d", len(store.owners))
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "owner@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("initial registration returned error: %v", err)
	}

	_, err = service.Register(context.Background(), RegisterInput{
		Email:    "owner@example.com",
		Password: "AnotherPass2!",
	})
	if err == nil || err != ErrEmailAlreadyExists {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	if _, err := service.Register(context.Background(), RegisterInput{
		Email:    "owner@example.com",
		Password: "StrongPass1!",
	}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	result, err := service.Login(context.Background(), LoginInput{
		Email:    "owner@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("login returned error: %v", err)
	}

	if result.Tokens.AccessToken == "" {
		t.Fatalf("expected access token")
	}
	if result.Tokens.RefreshToken == "" {
		t.Fatalf("expected refresh token")
	}
}

func TestLoginInvalidPassword(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	if _, err := service.Register(context.Background(), RegisterInput{
		Email:    "owner@example.com",
		Password: "StrongPass1!",
	}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	_, err := service.Login(context.Background(), LoginInput{
		Email:    "owner@example.com",
		Password: "WrongPass99",
	})
	if err == nil || err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestValidateAccessToken(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	result, err := service.Register(context.Background(), RegisterInput{
		Email:    "owner@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	claims, err := service.ValidateAccessToken(result.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken returned error: %v", err)
	}
	if claims.Email != "owner@example.com" {
		t.Fatalf("unexpected email claim: %q", claims.Email)
	}
	if claims.OwnerID != result.Owner.ID {
		t.Fatalf("unexpected owner id claim: %s", claims.OwnerID)
	}
}

func TestValidateAccessTokenRejectsGarbage(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := service.ValidateAccessToken(token); err == nil {
			t.Fatalf("expected error for token %q", token)
		}
	}
}

// memoryStore implements ownerStore for tests.
type memoryStore struct {
	owners        map[string]Owner
	refreshTokens map[string]time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		owners:        make(map[string]Owner),
		refreshTokens: make(map[string]time.Time),
	}
}

func (m *memoryStore) CreateOwner(ctx context.Context, email, passwordHash string, displayName *string) (Owner, error) {
	if _, ok := m.owners[email]; ok {
		return Owner{}, ErrEmailAlreadyExists
	}
	owner := Owner{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.owners[email] = owner
	return owner, nil
}

func (m *memoryStore) FindOwnerByEmail(ctx context.Context, email string) (Owner, error) {
	owner, ok := m.owners[email]
	if !ok {
		return Owner{}, ErrOwnerNotFound
	}
	return owner, nil
}

func (m *memoryStore) StoreRefreshToken(ctx context.Context, ownerID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	m.refreshTokens[tokenHash] = expiresAt
	return nil
}
