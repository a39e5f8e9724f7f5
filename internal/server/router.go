package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mail-courier/internal/scheduler"
)

// New configures the loop-mode HTTP surface: a health check and the
// Prometheus scrape endpoint.
func New(db *gorm.DB, sched *scheduler.Scheduler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", healthHandler(db, sched))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func healthHandler(db *gorm.DB, sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		database := "ok"

		if err := db.Raw("SELECT 1").Error; err != nil {
			status = "error"
			database = "error"
			logrus.Errorf("Database health check failed: %v", err)
		}

		schedulerState := "stopped"
		nextRun := ""
		if sched.IsRunning() {
			schedulerState = "running"
			nextRun = sched.GetNextRun().Format(time.RFC3339)
		}

		statusCode := http.StatusOK
		if status == "error" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, gin.H{
			"status":    status,
			"timestamp": time.Now(),
			"database":  database,
			"scheduler": schedulerState,
			"next_run":  nextRun,
		})
	}
}
