package http

import (
	"net/http"

	"thsnd/pkg/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewRouter registers every profile service route on a fresh gin engine.
// An empty allowedOrigins list opens CORS to any origin without credentials.
func NewRouter(handler *ProfileHandler, tokens middleware.TokenValidator, allowedOrigins []string) *gin.Engine {
	r := gin.Default()
	r.SetHTMLTemplate(PageTemplates())

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
	}
	if len(allowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/register", handler.Register)
	r.POST("/login", handler.Login)
	r.GET("/user/:customUrl", handler.GetPublicProfile)

	protected := r.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))
	{
		protected.GET("/profile", handler.GetProfile)
		protected.PUT("/profile", handler.UpdateProfile)
		protected.PUT("/user/:id", handler.UpdateUser)
		protected.POST("/upload-profile-image", handler.UploadProfileImage)
		protected.POST("/upload-profile-image/:id", handler.UploadProfileImageForUser)
		protected.POST("/upload-bg-video", handler.UploadBackgroundVideo)
		protected.POST("/upload-music", handler.UploadMusic)
	}

	// Public pages. gin matches the static paths above before this param.
	r.GET("/:customUrl", handler.RenderProfilePage)

	return r
}
