package api

import (
	"github.com/gin-gonic/gin"

	"github.com/servimatch/servimatch/internal/handlers"
)

func registerProfessionalRoutes(api *gin.RouterGroup, handler *handlers.ProfessionalHandler) {
	if api == nil || handler == nil {
		return
	}

	group := api.Group("/professionals")
	group.POST("/rescore", handler.RescoreAll)
	group.POST("/:id/rescore", handler.Rescore)
	group.GET("/:id/score", handler.Breakdown)
}
