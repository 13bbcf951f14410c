package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRouter wires middleware and routes. Everything except / and /health
// requires the API key.
func SetupRouter(h *Handler, apiKey string, log logrus.FieldLogger) *gin.Engine {
	r := gin.New()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(log))
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware())

	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	authed := r.Group("/", APIKeyMiddleware(apiKey))
	{
		items := authed.Group("/items")
		{
			items.POST("/", h.CreateRecord)
			items.GET("/", h.ListRecords)
			items.GET("/:id", h.GetRecord)
		}

		dashboard := authed.Group("/api/v1/dashboard")
		{
			dashboard.GET("/kpis", h.KPIs)
			dashboard.GET("/daily-counts", h.DailyCounts)
			dashboard.GET("/distribution", h.Distribution)
			dashboard.GET("/records", h.Records)
			dashboard.GET("/records/export", h.ExportRecords)
		}
	}

	return r
}
