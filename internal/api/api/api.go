package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"

	"campusconnect/cmd/middleware"
	"campusconnect/internal/service"
	"campusconnect/internal/session"
)

type Routers struct {
	Service  service.Service
	Sessions *session.Manager
	// AllowOrigins lists browser origins allowed to send credentials.
	AllowOrigins []string
	UploadsDir   string
	Mode         string
}

func NewRouters(r *Routers) *ginext.Engine {
	mode := r.Mode
	if mode == "" {
		mode = "release"
	}
	app := ginext.New(mode)

	app.Use(gin.Recovery())
	app.Use(middleware.LoggingMiddleware())
	if len(r.AllowOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = r.AllowOrigins
		corsCfg.AllowCredentials = true
		app.Use(cors.New(corsCfg))
	}
	app.Use(middleware.Sessions(r.Sessions))

	apiGroup := app.Group("/api")

	auth := apiGroup.Group("/auth")
	auth.POST("/login", r.Service.Login)
	auth.POST("/admin-login", r.Service.AdminLogin)
	auth.GET("/me", r.Service.Me)
	auth.POST("/logout", r.Service.Logout)

	events := apiGroup.Group("/events")
	events.GET("", r.Service.GetAllEvents)
	events.GET("/mine", middleware.RequireAuth(), r.Service.Mine)
	events.GET("/:id", r.Service.GetEvent)
	events.POST("/:id/register", middleware.RequireAuth(), r.Service.Register)

	admin := events.Group("", middleware.RequireAdmin())
	admin.POST("", r.Service.CreateEvent)
	admin.POST("/upload", r.Service.UploadImage)
	admin.PUT("/:id", r.Service.UpdateEvent)
	admin.DELETE("/:id", r.Service.DeleteEvent)

	if r.UploadsDir != "" {
		app.Static("/uploads", r.UploadsDir)
	}
	app.GET("/", func(c *ginext.Context) {
		c.String(200, "Campus Connect backend running")
	})

	return app
}
