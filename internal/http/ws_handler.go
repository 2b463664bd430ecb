package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"alanis-relay/internal/realtime"
	"alanis-relay/internal/service"
)

// WSHandler acepta conexiones realtime y las entrega al hub.
type WSHandler struct {
	logger         *zap.Logger
	hub            *realtime.Hub
	relay          realtime.EventHandler
	tokens         AccessTokenParser
	upgrader       websocket.Upgrader
	opts           realtime.Options
	allowAnonymous bool
}

// WSConfig agrupa los ajustes del endpoint /ws.
type WSConfig struct {
	AllowedOrigins []string
	AllowAnonymous bool
	Options        realtime.Options
}

func NewWSHandler(
	logger *zap.Logger,
	hub *realtime.Hub,
	relay realtime.EventHandler,
	tokens AccessTokenParser,
	cfg WSConfig,
) *WSHandler {
	return &WSHandler{
		logger: logger,
		hub:    hub,
		relay:  relay,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		opts:           cfg.Options,
		allowAnonymous: cfg.AllowAnonymous,
	}
}

// Connect maneja GET /ws.
func (h *WSHandler) Connect(c *gin.Context) {
	userID, err := h.authenticate(c)
	if err != nil {
		h.logger.Warn("websocket auth rejected", zap.Error(err), zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade ya respondio al cliente.
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.hub.Serve(c.Request.Context(), conn, userID, h.relay, h.opts)
}

var errMissingToken = errors.New("missing token")

func (h *WSHandler) authenticate(c *gin.Context) (string, error) {
	token := bearerToken(c)
	if token == "" {
		if h.allowAnonymous {
			return "", nil
		}
		return "", errMissingToken
	}
	if h.tokens == nil {
		return "", service.ErrJWTInvalid
	}
	claims, err := h.tokens.ParseAccessToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
