package api

import (
	"github.com/gin-gonic/gin"

	"github.com/servimatch/servimatch/internal/handlers"
	"github.com/servimatch/servimatch/internal/realtime"
)

func registerRealtimeRoutes(r *gin.Engine, hub *realtime.Hub) {
	if r == nil || hub == nil {
		return
	}

	handler := handlers.NewRealtimeHandler(hub,
		realtime.StreamMatches,
		realtime.StreamNotifications,
	)

	r.GET("/ws", handler.Stream)
	r.GET("/ws/:stream", handler.Stream)
}
