package api

import (
	"github.com/gin-gonic/gin"

	"github.com/servimatch/servimatch/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	if api == nil || handler == nil {
		return
	}

	group := api.Group("/notifications")
	group.GET("", handler.List)
	group.GET("/unread-count", handler.UnreadCount)
	group.POST("/:id/read", handler.MarkRead)
	group.POST("/read-all", handler.MarkAllRead)
}
