package router

import (
	"github.com/gin-gonic/gin"

	"roundtable.app/roundtable/internal/http/handler"
	"roundtable.app/roundtable/internal/queue"
	"roundtable.app/roundtable/internal/service"
)

func SetupRoutes(router *gin.Engine, svc *service.Service, producer queue.Producer) {
	discussions := handler.NewDiscussionHandler(svc, producer)

	router.GET("/health", discussions.Health)

	v1 := router.Group("/api/v1")
	{
		group := v1.Group("/discussions")
		group.POST("", discussions.Create)
		group.GET("", discussions.List)
		group.GET("/:id", discussions.GetDetails)
		group.GET("/:id/status", discussions.GetStatus)
		group.GET("/:id/report", discussions.GetReport)
	}
}
