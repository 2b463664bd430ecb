package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alanis-relay/internal/domain"
	"alanis-relay/internal/service"
)

// ConversationReader es el camino de lectura del historial.
type ConversationReader interface {
	ListConversation(ctx context.Context, userID, peerID string, before domain.HistoryCursor, limit int) ([]domain.Message, error)
}

// PresenceReader resuelve si un usuario tiene conexion viva.
type PresenceReader interface {
	Lookup(ctx context.Context, userID string) string
}

// ChatHandler expone historial y presencia para el cliente web.
type ChatHandler struct {
	logger   *zap.Logger
	messages ConversationReader
	presence PresenceReader
}

func NewChatHandler(logger *zap.Logger, messages ConversationReader, presence PresenceReader) *ChatHandler {
	return &ChatHandler{
		logger:   logger,
		messages: messages,
		presence: presence,
	}
}

// ListMessages maneja GET /messages/:peerId?before=&before_id=&limit=.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	// before y before_id vienen del ultimo mensaje de la pagina anterior.
	var before domain.HistoryCursor
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before"})
			return
		}
		before = domain.HistoryCursor{CreatedAt: parsed, ID: c.Query("before_id")}
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	msgs, err := h.messages.ListConversation(c.Request.Context(), claims.UserID, c.Param("peerId"), before, limit)
	if err != nil {
		h.logger.Error("list messages failed", zap.Error(err), zap.String("user_id", claims.UserID))
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrMessageServiceNotConfigured) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": "could not list messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// GetPresence maneja GET /presence/:userId.
func (h *ChatHandler) GetPresence(c *gin.Context) {
	userID := c.Param("userId")
	online := h.presence.Lookup(c.Request.Context(), userID) != ""
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "online": online})
}
