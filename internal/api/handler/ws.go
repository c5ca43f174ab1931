package handler

import (
	"log"
	"net/http"

	"livechat/backend/internal/chathub"
	"livechat/backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(h.Config.CORSOrigins, r.Header.Get("Origin"))
		},
	}
}

// ServeWebSocket оновлює HTTP-з'єднання до WebSocket. Відвідувачі підключаються
// анонімно; дійсна адмінська сесія позначає з'єднання як staff.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	adminID := ""
	if claims, ok := h.adminClaims(c); ok {
		adminID = claims.Subject
	}

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		log.Printf("WARNING: WebSocket upgrade failed: %v", err)
		return
	}

	client := chathub.NewWebSocketClient(uuid.NewString(), adminID, conn, h.Relay, config.ClientSendBuffer)
	h.Relay.Register(client)
	client.Run()
}
