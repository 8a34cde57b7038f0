package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rag-agent/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
// jwtSvc en nil deja los endpoints abiertos (entornos de desarrollo).
func NewRouter(
	logger *zap.Logger,
	chatH *ChatHandler,
	jwtSvc *service.JWTService,
	ping func(ctx context.Context) error,
) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", healthHandler(ping))

	protected := api.Group("")
	if jwtSvc != nil {
		protected.Use(JWTAuthMiddleware(jwtSvc))
	}
	protected.POST("/chat", chatH.Chat)
	protected.POST("/news", chatH.News)
	protected.POST("/chat/stream", chatH.ChatStream)
	protected.GET("/sessions/:id/history", chatH.History)

	return r
}

func healthHandler(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
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
