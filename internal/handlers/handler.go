package handlers

import (
	"chamberctl/internal/logger"
	"chamberctl/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires the HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Live status stream over WebSocket, same port.
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerChamberRoutes(api)
		h.registerSettingsRoutes(api)
		h.registerPrinterRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerChamberRoutes(api *gin.RouterGroup) {
	chamber := api.Group("/chamber")
	{
		chamber.POST("/start", h.startChamber)
		chamber.POST("/stop", h.stopChamber)
		chamber.POST("/pause", h.pauseChamber)
		chamber.POST("/emergency-stop", h.emergencyStop)
		chamber.POST("/reset-alarm", h.resetAlarm)
		chamber.POST("/confirm-preheat", h.confirmPreheat)
		chamber.POST("/resume", h.resumeSession)
		chamber.POST("/abort-resume", h.abortResume)
		// Body example: {"delta_sec":1800}
		chamber.POST("/adjust-time", h.adjustTime)
		chamber.POST("/heater", h.toggleHeater)
		chamber.POST("/fans", h.toggleFans)
		chamber.POST("/lights", h.toggleLights)
	}
	api.GET("/status", h.getStatus)
	api.GET("/history", h.getHistory)
}

func (h *Handler) registerSettingsRoutes(api *gin.RouterGroup) {
	settings := api.Group("/settings")
	{
		settings.GET("", h.getSettings)
		settings.PUT("", h.updateSettings)
	}
	presets := api.Group("/presets")
	{
		presets.POST("", h.savePreset)
		presets.DELETE("/:name", h.deletePreset)
		presets.POST("/:name/apply", h.applyPreset)
	}
}

func (h *Handler) registerPrinterRoutes(api *gin.RouterGroup) {
	printer := api.Group("/printer")
	{
		printer.GET("/status", h.printerStatus)
		// Body example: {"command":"pause"}
		printer.POST("/command", h.printerCommand)
		printer.POST("/test", h.printerTest)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("", h.getEvents)
		logs.GET("/files", h.listSessionLogs)
		logs.GET("/files/:name", h.downloadSessionLog)
	}
}
