package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all the routes for the ragserver.
func RegisterRoutes(router *gin.Engine, api *API) {
	router.GET("/healthz", api.HealthHandler)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/documents", api.UploadHandler)
		v1.DELETE("/documents/:id", api.DeleteDocumentHandler)
		v1.POST("/query", api.QueryHandler)
	}
}
