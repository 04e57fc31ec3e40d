package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthController reports database reachability and whether the poller runs.
type HealthController struct {
	DB        *gorm.DB
	Scheduler interface{ Running() bool }
}

func (hc *HealthController) Health(c *gin.Context) {
	status := http.StatusOK
	dbState := "ok"

	sqlDB, err := hc.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		status = http.StatusServiceUnavailable
		dbState = "unavailable"
	}

	c.JSON(status, gin.H{
		"database":  dbState,
		"scheduler": hc.Scheduler != nil && hc.Scheduler.Running(),
	})
}
