package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter configura el router de Gin con middlewares y rutas del relay.
func NewRouter(
	logger *zap.Logger,
	tokens AccessTokenParser,
	wsH *WSHandler,
	chatH *ChatHandler,
	healthH *HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging y recovery. El Content-Type lo fija cada
	// respuesta JSON; /ws no debe llevarlo antes del upgrade.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/healthz", healthH.Health)
	r.GET("/ws", wsH.Connect)

	authed := r.Group("", JWTAuthMiddleware(tokens))
	authed.GET("/messages/:peerId", chatH.ListMessages)
	authed.GET("/presence/:userId", chatH.GetPresence)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap. Los
// upgrades a websocket se loguean al entrar; la sesion la loguea el hub.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.IsWebsocket() {
			logger.Info("websocket upgrade",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
