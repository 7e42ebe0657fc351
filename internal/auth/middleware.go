package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

type contextKey string

const ownerContextKey contextKey = "cloudfaceOwner"

// ContextOwner represents the authenticated principal stored in the request context.
type ContextOwner struct {
	ID      string
	Email   string
	IsAdmin bool
}

// Middleware validates bearer tokens and injects the authenticated owner.
func Middleware(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "missing authorization header"})
			return
		}

		token := extractBearerToken(authHeader)
		if token == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := service.ValidateAccessToken(token)
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(string(ownerContextKey), ContextOwner{
			ID:      claims.OwnerID.String(),
			Email:   claims.Email,
			IsAdmin: claims.IsAdmin,
		})

		c.Next()
	}
}

// CurrentOwner extracts the authenticated owner from the context.
func CurrentOwner(c *gin.Context) (ContextOwner, bool) {
	value, exists := c.Get(string(ownerContextKey))
	if !exists {
		return ContextOwner{}, false
	}
	owner, ok := value.(ContextOwner)
	return owner, ok
}

// RequireOwner fetches the authenticated owner id.
func RequireOwner(c *gin.Context) (string, bool) {
	owner, ok := CurrentOwner(c)
	if !ok || owner.ID == "" {
		return "", false
	}
	return owner.ID, true
}

func extractBearerToken(header string) string {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
