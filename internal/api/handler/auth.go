package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"livechat/backend/internal/auth"
	"livechat/backend/internal/config"

	"github.com/gin-gonic/gin"
)

const claimsKey = "admin_claims"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionToken reads the session cookie, falling back to a Bearer header.
func sessionToken(c *gin.Context) string {
	if token, err := c.Cookie(config.SessionCookieName); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}

func (h *Handler) adminClaims(c *gin.Context) (*auth.Claims, bool) {
	token := sessionToken(c)
	if token == "" {
		return nil, false
	}
	claims, err := h.Auth.Verify(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// RequireAdmin rejects requests without a valid admin session.
func (h *Handler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := h.adminClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Admin access required"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	secure := strings.HasPrefix(h.Config.PublicURL, "https://")
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(config.SessionCookieName, token, maxAge, "/", "", secure, true)
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password required"})
		return
	}

	token, user, err := h.Auth.Login(req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		log.Printf("ERROR: Login failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	h.setSessionCookie(c, token, int(h.Auth.TTL().Seconds()))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}

func (h *Handler) Status(c *gin.Context) {
	claims, ok := h.adminClaims(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user": gin.H{
			"id":       claims.Subject,
			"name":     claims.Name,
			"email":    claims.Email,
			"is_admin": true,
		},
	})
}

func (h *Handler) Logout(c *gin.Context) {
	if token := sessionToken(c); token != "" {
		if err := h.Auth.Logout(token); err != nil && !errors.Is(err, auth.ErrInvalidToken) {
			log.Printf("ERROR: Logout failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
			return
		}
	}
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
