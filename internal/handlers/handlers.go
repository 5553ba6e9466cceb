package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"familyphotos/api/internal/config"
	"familyphotos/api/internal/database"
	"familyphotos/api/internal/middleware"
	"familyphotos/api/internal/repository"
	"familyphotos/api/internal/security"
	"familyphotos/api/internal/service"
	"familyphotos/api/internal/storage"
)

type HandlerSet struct {
	log            zerolog.Logger
	cfg            *config.AppConfig
	db             *database.DB
	cache          *redis.Client
	authService    *service.AuthService
	friendService  *service.FriendService
	galleryService *service.GalleryService
	exportService  *service.ExportService
}

// NewHandlerSet wires repositories and services. cache may be nil, which
// disables the login limiter.
func NewHandlerSet(log zerolog.Logger, db *database.DB, cache *redis.Client, store storage.BlobStore, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	imageRepo := repository.NewImageRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)

	limiter := service.NewLoginLimiter(cache, cfg.Security.LoginMaxAttempts, cfg.Security.LoginWindow)
	auth := service.NewAuthService(userRepo, security.NewPasswordHasher(security.DefaultParams), limiter, cfg, log)
	friends := service.NewFriendService(userRepo, friendRepo, cfg, log)
	gallery := service.NewGalleryService(db, imageRepo, permissionRepo, friends, store, cfg, log)
	exports := service.NewExportService(permissionRepo, store, cfg, log)

	return HandlerSet{
		log:            log,
		cfg:            cfg,
		db:             db,
		cache:          cache,
		authService:    auth,
		friendService:  friends,
		galleryService: gallery,
		exportService:  exports,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)
	router.POST("/register", h.RegisterUser)
	router.POST("/login", h.Login)

	protected := router.Group("")
	protected.Use(middleware.Auth(h.authService, h.log))
	{
		protected.POST("/logout", h.Logout)

		protected.GET("/images", h.ListImages)
		protected.POST("/images", h.UploadImage)
		protected.POST("/images/:id/share", h.ShareImage)
		protected.GET("/sharedImages", h.ListSharedImages)
		protected.GET("/notDownloadedImages", h.ListNotDownloadedImages)

		protected.GET("/friends", h.ListFriends)
		protected.POST("/friends", h.AddFriend)

		protected.GET("/download", h.Download)
		protected.POST("/download", h.Download)
	}
}
