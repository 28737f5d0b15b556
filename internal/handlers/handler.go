package handlers

import (
	"time"

	_ "user_accounts/docs" // swagger spec registration
	"user_accounts/internal/logger"
	"user_accounts/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const defaultAuditPoll = time.Second

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services  *service.Service
	log       *logger.Logger
	auditPoll time.Duration
}

// NewHandler constructs a new HTTP handler with dependencies. log may be nil.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log, auditPoll: defaultAuditPoll}
}

// SetAuditPollInterval sets how often the audit WebSocket feed polls for new events.
func (h *Handler) SetAuditPollInterval(d time.Duration) {
	if d > 0 {
		h.auditPoll = d
	}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestIDMiddleware, h.accessLogMiddleware)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// live audit feed; accepts the token as ?token=
	router.GET("/ws/audit", h.wsTokenMiddleware, h.wsAuditConnect)

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
		h.registerUserRoutes(api)
		h.registerAuditRoutes(api)
	}
}

func (h *Handler) registerUserRoutes(api *gin.RouterGroup) {
	users := api.Group("/users")
	{
		users.GET("/me", h.getMe)
		users.GET("/:id", h.getUser)
		users.PATCH("/:id", h.updateUser)
	}
}

func (h *Handler) registerAuditRoutes(api *gin.RouterGroup) {
	audit := api.Group("/audit")
	{
		audit.GET("", h.getAudit)
	}
}
