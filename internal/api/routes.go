package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/api/handlers"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/database"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  Services  `json:"services"`
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// SetupRoutes wires the tracker endpoints and the health check. The
// database and Redis handles may be nil when running without persistence.
func SetupRoutes(router *gin.Engine, tracker *handlers.TrackerHandler, db *database.PostgresDB, redis *database.RedisClient) {
	router.GET("/health", healthCheck(db, redis))

	v1 := router.Group("/api/v1")
	{
		notes := v1.Group("/notes")
		{
			notes.POST("/evaluate", tracker.EvaluateNotes)
		}

		runs := v1.Group("/runs")
		{
			runs.GET("/:id", tracker.GetRun)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.POST("/dispatch", tracker.DispatchNotifications)
		}
	}
}

func healthCheck(db *database.PostgresDB, redis *database.RedisClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Services: Services{
				Database: "ok",
				Redis:    "ok",
			},
		}

		if db == nil {
			response.Services.Database = "disabled"
		} else if err := db.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Database = "error"
			response.Status = "degraded"
		}

		if redis == nil {
			response.Services.Redis = "disabled"
		} else if err := redis.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Redis = "error"
			response.Status = "degraded"
		}

		statusCode := http.StatusOK
		if response.Status == "degraded" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}
