package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts authentication endpoints under the provided group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/auth/register", handler.register)
	group.POST("/auth/login", handler.login)
}

type httpHandler struct {
	service *Service
}

type credentialsRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName *string `json:"display_name,omitempty"`
}

func (h *httpHandler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.service.Register(c.Request.Context(), RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		case errors.Is(err, ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email or password"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		}
		return
	}

	c.JSON(http.StatusCreated, authResponse(result))
}

func (h *httpHandler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.service.Login(c.Request.Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to login"})
		return
	}

	c.JSON(http.StatusOK, authResponse(result))
}

func authResponse(result AuthResult) gin.H {
	return gin.H{
		"owner": gin.H{
			"id":           result.Owner.ID,
			"email":        result.Owner.Email,
			"display_name": result.Owner.DisplayName,
		},
		"access_token":         result.Tokens.AccessToken,
		"access_token_expiry":  result.Tokens.AccessTokenExpiry,
		"refresh_token":        result.Tokens.RefreshToken,
		"refresh_token_expiry": result.Tokens.RefreshTokenExpiry,
	}
}
