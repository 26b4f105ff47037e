package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/edgard/roastme/internal/logger"
	"github.com/edgard/roastme/internal/ratelimit"
)

// NewRouter builds the gin engine with every API route registered.
func NewRouter(deps HandlerDeps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.StartedAt.IsZero() {
		deps.StartedAt = time.Now()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(deps.Logger))
	r.Use(cors.New(corsConfig(deps.Config.Server.CORSOrigins)))

	requireAuth := RequireAuth(deps)
	api := r.Group("/api")

	roastRoutes := api.Group("/roast")
	roastRoutes.GET("/categories", NewCategoriesHandler(deps))
	if deps.Limiter != nil {
		roastRoutes.POST("", ratelimit.Middleware(deps.Limiter), NewRoastHandler(deps))
	} else {
		roastRoutes.POST("", NewRoastHandler(deps))
	}

	authRoutes := api.Group("/auth")
	authRoutes.POST("/register", NewRegisterHandler(deps))
	authRoutes.POST("/login", NewLoginHandler(deps))
	authRoutes.GET("/user", requireAuth, NewCurrentUserHandler(deps))

	api.GET("/traits", NewListTraitsHandler(deps))
	api.POST("/traits", requireAuth, NewCreateTraitHandler(deps))

	persons := api.Group("/persons", requireAuth)
	persons.GET("", NewListPersonsHandler(deps))
	persons.POST("", NewCreatePersonHandler(deps))
	persons.GET("/:id", NewGetPersonHandler(deps))
	persons.PUT("/:id", NewUpdatePersonHandler(deps))
	persons.DELETE("/:id", NewDeletePersonHandler(deps))

	api.POST("/feedback", NewFeedbackHandler(deps))

	form := api.Group("/form", requireAuth)
	form.POST("/submit", NewSubmitFormHandler(deps))
	form.GET("/submissions", NewListSubmissionsHandler(deps))

	health := NewHealthHandler(deps)
	api.GET("/health", health)

	test := api.Group("/test")
	test.GET("/health", health)
	test.GET("/env", NewEnvHandler(deps))
	test.GET("/generation", NewProbeHandler(deps))

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "Route not found")
	})

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	cfg.ExposeHeaders = []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
