package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"notes-console/internal/metrics"
	"notes-console/internal/service"
)

// RouterDeps agrupa lo que necesita NewRouter.
type RouterDeps struct {
	Logger      *zap.Logger
	Metrics     metrics.Recorder
	MetricsHTTP http.Handler
	RateLimiter *ClientRateLimiter
	JWT         *service.JWTService
	Sessions    *service.SessionContext
	Ready       func() error

	Auth      *AuthHandler
	Admin     *AdminHandler
	Analytics *AnalyticsHandler
	Settings  *SettingsHandler
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	r := gin.New()
	r.Use(zapLoggerMiddleware(logger), metricsMiddleware(recorder), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/healthz", healthHandler(deps.Ready))
	if deps.MetricsHTTP != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsHTTP))
	}

	api := r.Group("")
	if deps.RateLimiter != nil {
		api.Use(deps.RateLimiter.Middleware())
	}
	requireSession := SessionMiddleware(logger, deps.JWT, deps.Sessions)

	auth := api.Group("/auth")
	auth.POST("/signup", deps.Auth.SignUp)
	auth.POST("/signin", deps.Auth.SignIn)
	auth.POST("/refresh", deps.Auth.Refresh)
	auth.POST("/signout", requireSession, deps.Auth.SignOut)

	authed := api.Group("", requireSession)
	authed.GET("/session", deps.Auth.Session)

	authed.GET("/admin", deps.Admin.Dashboard)
	authed.PATCH("/admin/users/:id", deps.Admin.UpdateUser)
	authed.DELETE("/admin/users/:id", deps.Admin.DeleteUser)

	authed.GET("/analytics", deps.Analytics.Report)

	authed.GET("/settings", deps.Settings.Get)
	authed.PUT("/settings/name", deps.Settings.SaveName)
	authed.POST("/settings/subscription/cancel", deps.Settings.CancelSubscription)
	authed.DELETE("/settings/account", deps.Settings.DeleteAccount)

	return r
}

func healthHandler(ready func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			if err := ready(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// metricsMiddleware etiqueta por ruta registrada, no por path, para acotar la cardinalidad.
func metricsMiddleware(recorder metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		recorder.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
