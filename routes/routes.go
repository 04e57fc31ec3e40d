package routes

import (
	"time"

	"barberpro-backend/config"
	"barberpro-backend/controllers"
	"barberpro-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Controllers bundles every HTTP handler group.
type Controllers struct {
	Appointments *controllers.AppointmentController
	Templates    *controllers.TemplateController
	Reminders    *controllers.ReminderController
	Services     *controllers.ServiceController
	Barbers      *controllers.BarberController
	Health       *controllers.HealthController
}

func SetupRouter(cfg *config.Config, log *zap.Logger, h Controllers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", utils.OperatorKeyHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(config.PerformanceLogger(log))

	r.GET("/healthz", h.Health.Health)

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware(cfg.JWTSecret))
	{
		appointments := api.Group("/appointments")
		{
			appointments.POST("", h.Appointments.CreateAppointment)
			appointments.GET("", h.Appointments.GetAppointments)
			appointments.GET("/:id", h.Appointments.GetAppointment)
			appointments.PUT("/:id", h.Appointments.UpdateAppointment)
			appointments.DELETE("/:id", h.Appointments.DeleteAppointment)
		}

		templates := api.Group("/message-templates")
		{
			templates.GET("", h.Templates.GetTemplates)
			templates.POST("", h.Templates.CreateTemplate)
			templates.POST("/resync", h.Templates.Resync)
			templates.PUT("/:id", h.Templates.UpdateTemplate)
			templates.DELETE("/:id", h.Templates.DeleteTemplate)
		}

		services := api.Group("/services")
		{
			services.POST("", h.Services.CreateService)
			services.GET("", h.Services.GetServices)
			services.GET("/:id", h.Services.GetService)
			services.PUT("/:id", h.Services.UpdateService)
			services.DELETE("/:id", h.Services.DeleteService)
		}

		barbers := api.Group("/barbers")
		{
			barbers.GET("", h.Barbers.GetBarbers)
			barbers.POST("", h.Barbers.CreateBarber)
			barbers.PUT("/:id", h.Barbers.UpdateBarber)
			barbers.DELETE("/:id", h.Barbers.DeleteBarber)
		}

		reminders := api.Group("/reminders")
		{
			reminders.GET("/queue", h.Reminders.GetQueue)
			reminders.DELETE("/queue/:id", h.Reminders.CancelEntry)
			reminders.POST("/queue/:id/retry", h.Reminders.RetryEntry)
			reminders.POST("/run", h.Reminders.Run)
			reminders.GET("/logs", h.Reminders.GetLogs)
		}
	}

	ops := r.Group("/ops")
	ops.Use(utils.OperatorKeyMiddleware(cfg.OperatorKeyHash))
	{
		ops.POST("/reminders/run-all", h.Reminders.RunAll)
		ops.GET("/reminders/logs", h.Reminders.GetAllLogs)
	}

	return r
}
