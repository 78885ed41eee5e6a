package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *App) listSkills(c *gin.Context) {
	descriptors, err := a.catalog.List(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, descriptors)
}

func (a *App) getSkill(c *gin.Context) {
	descriptor, err := a.catalog.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		a.respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, descriptor)
}

func (a *App) listModels(c *gin.Context) {
	respondOK(c, http.StatusOK, a.threads.ListModels())
}
