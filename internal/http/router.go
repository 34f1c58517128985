package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ChetanXpro/yesbroker/internal/config"
	"github.com/ChetanXpro/yesbroker/internal/http/handler"
	httpmiddleware "github.com/ChetanXpro/yesbroker/internal/http/middleware"
	"github.com/ChetanXpro/yesbroker/internal/middleware"
)

// Handlers groups every route handler the router mounts.
type Handlers struct {
	Session  *handler.SessionHandler
	Property *handler.PropertyHandler
	Interest *handler.InterestHandler
	Webhook  *handler.WebhookHandler
	Document *handler.DocumentHandler
	Health   *handler.HealthHandler
}

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, h Handlers, authMiddleware *httpmiddleware.Auth, rateLimiter *middleware.RateLimiter) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	// Preflights are answered before they count against a client's budget.
	r.Use(middleware.CORS(cfg))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/healthz", h.Health.Healthz)

	// Routes are served at the root and under /api, where the web client
	// has always called them.
	registerRoutes(r.Group(""), h, authMiddleware)
	registerRoutes(r.Group("/api"), h, authMiddleware)

	return r
}

func registerRoutes(g *gin.RouterGroup, h Handlers, authMiddleware *httpmiddleware.Auth) {
	requireAuth := authMiddleware.ValidateJWT

	authGroup := g.Group("/auth")
	{
		authGroup.POST("/session", h.Session.CreateSession)
		authGroup.GET("/me", requireAuth, h.Session.Me)
		authGroup.POST("/logout", h.Session.Logout)
	}
	g.POST("/update-user-type", h.Session.UpdateUserType)
	g.POST("/verify", h.Session.Verify)

	properties := g.Group("/properties")
	{
		properties.GET("", h.Property.List)
		properties.POST("", requireAuth, h.Property.Create)
		properties.GET("/:id", h.Property.Get)
		properties.PUT("/:id", requireAuth, h.Property.Update)
		properties.DELETE("/:id", requireAuth, h.Property.Delete)
		properties.POST("/:id/images", requireAuth, h.Property.UploadImages)
		properties.DELETE("/:id/images", requireAuth, h.Property.DeleteImage)
		properties.POST("/:id/document-proof", requireAuth, h.Document.Prove)
		properties.GET("/:id/document-proof", h.Document.Latest)
	}
	g.POST("/document-proof/verify", h.Document.Verify)

	interests := g.Group("/property-interests", requireAuth)
	{
		interests.GET("", h.Interest.List)
		interests.POST("", h.Interest.Create)
		interests.DELETE("/:id", h.Interest.Delete)
	}

	g.POST("/webhook/property-verification", h.Webhook.PropertyVerification)
}
