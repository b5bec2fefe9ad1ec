package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/asharma-dev/docverify-be/internal/api/dto"
	"github.com/asharma-dev/docverify-be/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// Login handles POST /api/v1/auth/login
// Exchanges configured credentials for a bearer token
func (h *DocumentHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "username and password are required"})
		return
	}

	password, ok := h.authCfg.Users[req.Username]
	if !ok || subtle.ConstantTimeCompare([]byte(password), []byte(req.Password)) != 1 {
		h.logger.Warn("Login failed",
			slog.String("username", req.Username),
		)
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid credentials"})
		return
	}

	token, expiresAt, err := middleware.GenerateToken(req.Username, h.authCfg)
	if err != nil {
		h.logger.Error("Failed to generate token", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}
