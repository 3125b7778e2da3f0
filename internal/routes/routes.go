package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"carebook-server/internal/appointments"
	"carebook-server/internal/clinic"
	"carebook-server/internal/config"
	"carebook-server/internal/enrich"
	"carebook-server/internal/handlers"
	"carebook-server/internal/metrics"
	"carebook-server/internal/middleware"
	"carebook-server/internal/models"
	"carebook-server/internal/provisioning"
	"carebook-server/internal/roles"
	"carebook-server/internal/store"
	"carebook-server/internal/utils"
)

// NewRouter builds the engine with the global middleware chain and all routes.
func NewRouter(st *store.Store, cfg *config.Config, logger zerolog.Logger) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RequestLogger(logger),
		middleware.Recovery(),
		middleware.Metrics(),
		middleware.CORS(cfg.Origin),
	)
	SetupRoutes(router, st, cfg, logger)
	return router
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, st *store.Store, cfg *config.Config, logger zerolog.Logger) {
	verifier := utils.TokenVerifier{Secret: cfg.JWTSecret}
	resolver := roles.NewResolver(st)
	assembler := enrich.NewAssembler(st, st, st, logger)

	appointmentSvc := appointments.NewService(st, logger)
	clinicSvc := clinic.NewService(st, assembler, logger)
	provisioningSvc := provisioning.NewService(verifier, st, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(st, cfg)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentSvc, assembler)
	clinicHandler := handlers.NewClinicHandler(clinicSvc)
	provisioningHandler := handlers.NewProvisioningHandler(provisioningSvc)
	dashboardHandler := handlers.NewDashboardHandler(appointmentHandler, clinicSvc, st)

	// Privileged function endpoint; authenticates the caller itself.
	functions := router.Group("/functions/v1")
	{
		functions.POST("/create-doctor", provisioningHandler.CreateDoctor)
	}

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
			authRoutes.POST("/logout", authHandler.Logout)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(verifier, resolver))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
			authRoutesPrivate.GET("/session", authHandler.Session)
		}

		private.GET("/dashboard", dashboardHandler.GetDashboard)

		departmentRoutes := private.Group("/departments")
		{
			departmentRoutes.GET("", clinicHandler.GetDepartments)
			departmentRoutes.GET("/:id/doctors", clinicHandler.GetDepartmentDoctors)

			adminRoutes := departmentRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.POST("", clinicHandler.CreateDepartment)
				adminRoutes.PUT("/:id", clinicHandler.UpdateDepartment)
				adminRoutes.DELETE("/:id", clinicHandler.DeleteDepartment)
			}
		}

		doctorRoutes := private.Group("/doctors")
		doctorRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			doctorRoutes.GET("", clinicHandler.GetDoctors)
			doctorRoutes.DELETE("/:id", clinicHandler.DeleteDoctor)
		}

		adminRoutes := private.Group("/admin")
		adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			adminRoutes.POST("/doctors", provisioningHandler.CreateDoctor)
		}

		appointmentRoutes := private.Group("/appointments")
		{
			// Listing is scoped by the caller's effective role inside the handler
			appointmentRoutes.GET("", appointmentHandler.GetAppointments)
			appointmentRoutes.GET("/slots", appointmentHandler.GetSlots)
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.CreateAppointment)

			// Ownership of the appointment is checked in the service
			appointmentRoutes.PATCH("/:id/status", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RolePatient), appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.POST("/:id/accept", middleware.RoleAuthMiddleware(models.RoleDoctor), appointmentHandler.AcceptAppointment)
			appointmentRoutes.POST("/:id/reject", middleware.RoleAuthMiddleware(models.RoleDoctor), appointmentHandler.RejectAppointment)
			appointmentRoutes.POST("/:id/cancel", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.CancelAppointment)
		}
	}

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if err := st.Ping(c.Request.Context()); err != nil {
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
