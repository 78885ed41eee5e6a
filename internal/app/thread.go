package app

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zjregee/copilot/internal/models"
)

func (a *App) createThread(c *gin.Context) {
	ctx, cancel := a.requestContext(c.Request.Context())
	defer cancel()

	info, err := a.threads.CreateThread(ctx)
	if err != nil {
		a.respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, formatThreadInfo(info))
}

func (a *App) listThreads(c *gin.Context) {
	page, pageSize := 1, 0
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "page must be an integer")
			return
		}
		page = n
	}
	if v := c.Query("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "pageSize must be an integer")
			return
		}
		pageSize = n
	}

	result := a.threads.ListThreads(c.Request.Context(), page, pageSize)
	for i, info := range result.Data {
		result.Data[i] = formatThreadInfo(info)
	}

	respondOK(c, http.StatusOK, result)
}

func (a *App) getConversation(c *gin.Context) {
	conv, err := a.threads.GetConversation(c.Request.Context(), c.Param("convId"))
	if err != nil {
		a.respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, formatConversation(conv))
}

func (a *App) deleteThread(c *gin.Context) {
	ctx, cancel := a.requestContext(c.Request.Context())
	defer cancel()

	if err := a.threads.DeleteThread(ctx, c.Param("convId")); err != nil {
		a.respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, nil)
}

type updateTitleRequest struct {
	Title string `json:"title" binding:"required"`
}

func (a *App) updateThreadTitle(c *gin.Context) {
	var req updateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	a.updateAndRespond(c, func() error {
		ctx, cancel := a.requestContext(c.Request.Context())
		defer cancel()
		return a.threads.UpdateThreadTitle(ctx, c.Param("convId"), req.Title)
	})
}

type selectSkillRequest struct {
	SkillName string `json:"skillName"`
}

func (a *App) selectSkill(c *gin.Context) {
	var req selectSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	a.updateAndRespond(c, func() error {
		ctx, cancel := a.requestContext(c.Request.Context())
		defer cancel()
		return a.threads.SelectSkill(ctx, c.Param("convId"), req.SkillName)
	})
}

type updateModelRequest struct {
	ModelID string `json:"modelId" binding:"required"`
}

func (a *App) updateThreadModel(c *gin.Context) {
	var req updateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	a.updateAndRespond(c, func() error {
		ctx, cancel := a.requestContext(c.Request.Context())
		defer cancel()
		return a.threads.UpdateThreadModel(ctx, c.Param("convId"), req.ModelID)
	})
}

// updateAndRespond runs update and answers with the refreshed thread info.
func (a *App) updateAndRespond(c *gin.Context, update func() error) {
	if err := update(); err != nil {
		a.respondError(c, err)
		return
	}

	conv, err := a.threads.GetConversation(c.Request.Context(), c.Param("convId"))
	if err != nil {
		a.respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, formatThreadInfo(conv.ThreadInfo))
}

func formatThreadInfo(info *models.ThreadInfo) *models.ThreadInfo {
	if info == nil {
		return nil
	}
	out := *info
	out.Title = formatThreadTitle(out.Title)
	out.LastMessage = formatThreadMessage(out.LastMessage)
	return &out
}
