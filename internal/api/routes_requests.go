package api

import (
	"github.com/gin-gonic/gin"

	"github.com/servimatch/servimatch/internal/handlers"
)

func registerRequestRoutes(api *gin.RouterGroup, handler *handlers.RequestHandler) {
	if api == nil || handler == nil {
		return
	}

	group := api.Group("/requests")
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
	group.POST("/:id/match", handler.Match)
	group.POST("/:id/accept", handler.Accept)
}
