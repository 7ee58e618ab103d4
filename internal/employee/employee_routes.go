package employee

import (
	"employee-forwarder/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RegisterRoutes mounts the store endpoints. Updates live under the singular
// /employee/:id path. rdb may be nil, which disables idempotent creates.
func RegisterRoutes(r gin.IRouter, handler *Handler, rdb *redis.Client) {
	employees := r.Group("/employees")
	{
		employees.GET("", handler.List)
		employees.GET("/:id", handler.GetByID)

		if rdb != nil {
			employees.POST("", middleware.Idempotency(rdb), handler.Create)
		} else {
			employees.POST("", handler.Create)
		}

		employees.DELETE("/:id", handler.Delete)
	}

	r.PUT("/employee/:id", handler.Update)
}
