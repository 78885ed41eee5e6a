package app

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zjregee/copilot/internal/service"
)

type response struct {
	Success bool   `json:"success"`
	ErrMsg  string `json:"errMsg,omitempty"`
	Data    any    `json:"data"`
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, response{Success: true, Data: data})
}

func (a *App) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, response{Success: false, ErrMsg: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrThreadNotFound), errors.Is(err, service.ErrSkillNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response{Success: false, ErrMsg: msg})
}
