package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-drug-registry/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig, metrics http.Handler) {
	// Ids and owners are opaque and may contain "/"; match on the escaped path
	// and unescape the captured values.
	router.UseRawPath = true
	router.UnescapePathValues = true

	// Health and metrics (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := router.Group("/api/v1")
	{
		// Registration requires an authenticated owner
		v1.POST("/drugs", middleware.Auth(authCfg), handler.RegisterDrug)

		// Drug queries (public read access)
		v1.GET("/drugs/:id", handler.GetDrug)
		v1.GET("/drugs/:id/exists", handler.DrugExists)
		v1.GET("/drugs/:id/expired", handler.DrugExpired)

		// Owner index
		v1.GET("/owners/:owner/drugs", handler.ListOwnerDrugs)
		v1.GET("/owners/:owner/drugs/count", handler.CountOwnerDrugs)

		v1.GET("/stats", handler.GetStats)

		// Registration journal
		v1.GET("/events", handler.GetEvents)
		v1.GET("/events/stream", handler.StreamEvents)
		v1.GET("/ledger/verify", handler.VerifyLedger)
	}
}
