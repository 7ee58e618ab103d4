package forwarder

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the versioned forwarding endpoints. The version in the
// path picks how the store's answer is handed back.
func RegisterRoutes(r gin.IRouter, handler *Handler) {
	v1 := r.Group("/v1")
	{
		v1.GET("/allEmployees", handler.List(ModeBody))
		v1.GET("/employees/:id", handler.GetByID(ModeBody))
		v1.POST("/employees", handler.Create(ModeLocation))
		v1.PUT("/employees/:id", handler.Update(ModeBody))
		v1.DELETE("/employees/:id", handler.Delete(ModeBody))
	}

	v2 := r.Group("/v2")
	{
		v2.GET("/allEmployees", handler.List(ModeEntity))
		v2.GET("/employees/:id", handler.GetByID(ModeEntity))
		v2.POST("/employees", handler.Create(ModeBody))
		v2.PUT("/employees/:id", handler.Update(ModeExchange))
		v2.DELETE("/employees/:id", handler.Delete(ModeExchange))
	}

	v3 := r.Group("/v3")
	{
		v3.GET("/allEmployees", handler.List(ModeExchange))
		v3.GET("/employees/:id", handler.GetByID(ModeExchange))
		v3.POST("/employees", handler.Create(ModeEntity))
	}

	r.Group("/v4").POST("/employees", handler.Create(ModeExchange))
}
