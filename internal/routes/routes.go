package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ai-todo/internal/auth"
	"ai-todo/internal/handlers"
	"ai-todo/internal/middleware"
)

// Handlers bundles everything the router serves.
type Handlers struct {
	Auth       *handlers.AuthHandler
	Tasks      *handlers.TaskHandler
	Categories *handlers.CategoryHandler
	Stream     *handlers.StreamHandler
}

// NewRouter builds the gin engine with the shared middleware chain.
func NewRouter(h Handlers, issuer *auth.Issuer, log *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(log))
	r.Use(middleware.Metrics())
	SetupRoutes(r, h, issuer)
	return r
}

func SetupRoutes(r *gin.Engine, h Handlers, issuer *auth.Issuer) *gin.Engine {
	// ---- public
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", middleware.MetricsHandler())
	r.POST("/login", h.Auth.Login)

	// ---- protected
	api := r.Group("/api", middleware.Auth(issuer))
	{
		api.GET("/tasks", h.Tasks.ListActive)
		api.GET("/tasks/all", h.Tasks.ListAll)
		api.POST("/tasks", h.Tasks.Command)
		api.PUT("/tasks/:id/progress", h.Tasks.UpdateProgress)
		api.DELETE("/tasks/:id", h.Tasks.Delete)

		api.GET("/categories", h.Categories.List)
		api.POST("/categories", h.Categories.Create)

		if h.Stream != nil {
			api.GET("/ws", h.Stream.Stream)
		}
	}
	return r
}
