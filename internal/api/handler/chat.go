package handler

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"livechat/backend/internal/config"
	"livechat/backend/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListConversations(c *gin.Context) {
	list, err := h.Storage.ListConversations()
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetConversation(c *gin.Context) {
	conv, err := h.Storage.GetConversation(c.Param("id"))
	if err != nil {
		respondError(c, err, "Conversation not found")
		return
	}
	c.JSON(http.StatusOK, conv)
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (h *Handler) ListMessages(c *gin.Context) {
	limit, ok := queryInt(c, "limit", config.DefaultPageLimit)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
		return
	}
	switch {
	case limit == 0:
		limit = config.DefaultPageLimit
	case limit > config.MaxPageLimit:
		limit = config.MaxPageLimit
	}

	msgs, err := h.Storage.ListMessages(c.Param("id"), limit, offset)
	if err != nil {
		respondError(c, err, "Conversation not found")
		return
	}
	c.JSON(http.StatusOK, msgs)
}

type statusRequest struct {
	Status models.ConversationStatus `json:"status"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}
	if err := h.Relay.UpdateStatus(c.Param("id"), req.Status); err != nil {
		respondError(c, err, "Conversation not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type modeRequest struct {
	Mode   models.ResponseMode `json:"mode"`
	Reason string              `json:"reason"`
}

func (h *Handler) UpdateMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Mode.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mode"})
		return
	}
	if err := h.Relay.SetMode(c.Param("id"), req.Mode, req.Reason); err != nil {
		respondError(c, err, "Conversation not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type visitorRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreateVisitor registers a widget visitor and opens a conversation for them.
func (h *Handler) CreateVisitor(c *gin.Context) {
	var req visitorRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return
	}

	user := &models.User{
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Role:      models.RoleVisitor,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if err := h.Storage.CreateUser(user); err != nil {
		respondError(c, err, "")
		return
	}
	conv, err := h.Storage.CreateConversationForVisitor(user.ID)
	if err != nil {
		respondError(c, err, "")
		return
	}

	log.Printf("INFO: Visitor %s registered with conversation %s", user.ID, conv.ID)
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"user_id":         user.ID,
		"conversation_id": conv.ID,
	})
}

func (h *Handler) OnlineUsers(c *gin.Context) {
	users, err := h.Storage.ListOnlineUsers()
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) ListKnowledge(c *gin.Context) {
	docs, err := h.Storage.ListKnowledgeDocuments()
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, docs)
}
