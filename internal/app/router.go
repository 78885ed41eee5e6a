package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), a.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "OK",
		})
	})

	v1 := r.Group("/api/v1")
	v1.GET("/skills", a.listSkills)
	v1.GET("/skills/:name", a.getSkill)
	v1.GET("/models", a.listModels)

	conversations := v1.Group("/conversations")
	conversations.GET("", a.listThreads)
	conversations.POST("", a.createThread)
	conversations.GET("/:convId", a.getConversation)
	conversations.DELETE("/:convId", a.deleteThread)
	conversations.PUT("/:convId/title", a.updateThreadTitle)
	conversations.PUT("/:convId/skill", a.selectSkill)
	conversations.PUT("/:convId/model", a.updateThreadModel)
	conversations.POST("/:convId/invoke", a.invokeSkill)

	return r
}

func (a *App) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		a.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
