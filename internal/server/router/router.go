package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/pumpschedule/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares. A nil
// metrics handler leaves /metrics unrouted.
func New(handler *handlers.EntryHandler, metrics http.Handler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	api := r.Group("/api/v1")
	{
		api.POST("/entries", handler.Create)
		api.GET("/entries", handler.List)
		api.GET("/entries/export.xlsx", handler.ExportXLSX)
		api.GET("/entries/:id", handler.Get)
		api.PUT("/entries/:id", handler.Update)
		api.DELETE("/entries/:id", handler.Delete)
		api.GET("/suggest-start", handler.SuggestStart)
		api.GET("/timeline", handler.Timeline)
		api.GET("/flow-rates", handler.FlowRates)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request failed", fields...)
			return
		}
		logger.Info("request completed", fields...)
	}
}
