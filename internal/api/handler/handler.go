package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"livechat/backend/internal/auth"
	"livechat/backend/internal/chathub"
	"livechat/backend/internal/config"
	"livechat/backend/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handler містить посилання на Relay, сховище та сервіс авторизації
type Handler struct {
	Relay   *chathub.Relay
	Storage storage.Storage
	Auth    *auth.Service
	Config  *config.Config
}

func NewHandler(relay *chathub.Relay, s storage.Storage, a *auth.Service, cfg *config.Config) *Handler {
	return &Handler{Relay: relay, Storage: s, Auth: a, Config: cfg}
}

// NewRouter wires every route on a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(corsConfig(h.Config.CORSOrigins)))

	r.GET("/health", h.Health)
	r.GET("/ws", h.ServeWebSocket)

	authGroup := r.Group("/api/auth")
	authGroup.POST("/login", h.Login)
	authGroup.POST("/logout", h.Logout)
	authGroup.GET("/status", h.Status)

	chat := r.Group("/api/chat")
	chat.POST("/visitor", h.CreateVisitor)

	admin := chat.Group("")
	admin.Use(h.RequireAdmin())
	{
		admin.GET("/conversations", h.ListConversations)
		admin.GET("/conversations/export", h.ExportConversations)
		admin.GET("/conversations/:id", h.GetConversation)
		admin.GET("/conversations/:id/messages", h.ListMessages)
		admin.PUT("/conversations/:id/status", h.UpdateStatus)
		admin.PUT("/conversations/:id/mode", h.UpdateMode)
		admin.GET("/online-users", h.OnlineUsers)
		admin.GET("/knowledge", h.ListKnowledge)
		admin.GET("/widget-qr", h.WidgetQR)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError maps domain errors onto status codes.
func respondError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, chathub.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
	}
}

func originAllowed(origins []string, origin string) bool {
	if origin == "" || len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
