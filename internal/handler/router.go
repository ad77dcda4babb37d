package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/formpilot/internal/middleware"
)

type RouterDeps struct {
	Forms      *FormHandler
	Export     *ExportHandler
	Properties *PropertiesHandler
	JWTSecret  []byte
	RateLimit  time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/properties", deps.Properties.Get)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/forms/retrieve", deps.Forms.Retrieve)
	authGroup.POST("/forms/suggest", deps.Forms.Suggest)
	authGroup.GET("/forms/export", deps.Export.Export)

	writeGroup := authGroup.Group("")
	writeGroup.Use(middleware.RateLimit(deps.RateLimit))
	writeGroup.POST("/forms", deps.Forms.Ingest)
	writeGroup.POST("/forms/delete", deps.Forms.Delete)
	writeGroup.POST("/pilot", deps.Forms.Pilot)
}
