package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/bioagents/services/diagnostics"
)

func SetupDiagnostics(router *gin.Engine, service *diagnostics.Service) {
	router.GET("/api/diagnostics", handleDiagnostics(service))
}

func handleDiagnostics(service *diagnostics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := service.Run(c.Request.Context())
		if !report.OK {
			writeResponse(c, http.StatusServiceUnavailable, report)
			return
		}
		writeResponse(c, http.StatusOK, report)
	}
}
