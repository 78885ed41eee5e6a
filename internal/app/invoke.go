package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zjregee/copilot/internal/service"
)

func (a *App) invokeSkill(c *gin.Context) {
	threadID := c.Param("convId")

	var req service.InvokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx, cancel := a.requestContext(c.Request.Context())
	defer cancel()

	result, err := a.threads.InvokeSkill(ctx, threadID, req)
	if err != nil {
		a.respondError(c, err)
		return
	}

	a.logger.Debug("Skill invocation finished",
		zap.String("thread_id", threadID),
		zap.String("skill", result.Message.SkillName))

	respondOK(c, http.StatusOK, &service.InvokeResult{
		Conversation: formatConversation(result.Conversation),
		Message:      formatMessage(result.Message),
	})
}
