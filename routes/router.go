package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/phishguard/config"
	"github.com/cppla/phishguard/controllers"
	"github.com/cppla/phishguard/middleware"
	"github.com/cppla/phishguard/services"
	"github.com/cppla/phishguard/storage"
	"github.com/cppla/phishguard/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, store storage.Store) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.App.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	utils.RegisterBindingRules()

	r := gin.New()
	// /reports/url/:url carries an escaped URL; the handler unescapes it.
	r.UseRawPath = true
	r.UnescapePathValues = false
	// Replace default console logger with file-based zap logger
	gl := utils.Logger
	if cfg.App.GinLogPath != "" {
		if l, err := utils.NewRollingFileLogger(cfg.App.GinLogPath, cfg.Log); err == nil {
			gl = l
		}
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, false))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.InternalKeyHeader},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.App.AllowedOrigins) == 0 || (len(cfg.App.AllowedOrigins) == 1 && cfg.App.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.App.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if cfg.Storage.Driver != "minio" {
		r.Static(cfg.Storage.PublicPrefix, cfg.Storage.LocalDir)
	}

	r.GET("/health", func(ctx *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx.Request.Context())
		}
		if err != nil {
			utils.Error(ctx, http.StatusServiceUnavailable, 50300, "database unavailable")
			return
		}
		if err := utils.PingRedis(ctx.Request.Context()); err != nil {
			utils.Error(ctx, http.StatusServiceUnavailable, 50301, "redis unavailable")
			return
		}
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	notificationService := services.NewNotificationService(db)
	commentService := services.NewCommentService(db, notificationService)
	reportService := services.NewReportService(db, commentService, notificationService)
	userService := services.NewUserService(db)
	categoryService := services.NewCategoryService(db)
	tagService := services.NewTagService(db)

	authController := controllers.NewAuthController(userService)
	userController := controllers.NewUserController(userService)
	adminController := controllers.NewAdminController(userService, reportService)
	adminNotificationController := controllers.NewAdminNotificationController(notificationService, userService)
	categoryController := controllers.NewCategoryController(categoryService)
	commentController := controllers.NewCommentController(commentService)
	reportController := controllers.NewReportController(reportService)
	tagController := controllers.NewTagController(tagService)
	notificationController := controllers.NewNotificationController(notificationService)
	userNotificationController := controllers.NewUserNotificationController(notificationService)
	fileController := controllers.NewFileController(db, store)
	statsController := controllers.NewStatsController(db)
	configController := controllers.NewConfigController()
	docsController := controllers.NewDocsController(r.Routes, "PhishGuard API")

	r.GET("/docs", docsController.UI)
	r.GET("/docs/openapi.json", docsController.OpenAPI)

	authRequired := middleware.AuthRequired()
	adminRequired := middleware.AdminRequired()

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware())

	api.GET("/stats", statsController.GetStats)
	api.GET("/config/public", configController.GetPublic)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/refresh", authController.Refresh)
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.POST("/password/forgot", authController.ForgotPassword)
	authGroup.POST("/password/reset", authController.ResetPassword)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.GET("/profile", authRequired, authController.Profile)
	authGroup.POST("/logout", authRequired, authController.Logout)

	usersGroup := api.Group("/users")
	usersGroup.POST("", userController.Register)
	usersGroup.GET("/me", authRequired, userController.Me)
	usersGroup.PUT("/me", authRequired, userController.UpdateMe)

	inbox := usersGroup.Group("/notifications", authRequired)
	inbox.GET("", userNotificationController.List)
	inbox.GET("/unread", userNotificationController.Unread)
	inbox.GET("/unread/count", userNotificationController.UnreadCount)
	inbox.GET("/summary", userNotificationController.Summary)
	inbox.GET("/has-unread", userNotificationController.HasUnread)
	inbox.PATCH("/read-all", userNotificationController.MarkAllRead)
	inbox.GET("/preferences", userNotificationController.Preferences)
	inbox.PUT("/preferences", userNotificationController.SetPreference)
	inbox.PUT("/preferences/bulk", userNotificationController.SetPreferences)
	inbox.POST("/preferences/defaults", userNotificationController.CreateDefaults)
	inbox.GET("/preferences/check/:typeId", userNotificationController.Check)
	inbox.DELETE("/all", userNotificationController.DeleteAll)
	inbox.GET("/:id", userNotificationController.Get)
	inbox.PATCH("/:id/read", userNotificationController.MarkRead)
	inbox.PATCH("/:id/unread", userNotificationController.MarkUnread)

	// The first super admin can be created without credentials.
	api.POST("/admin/register-super", middleware.OptionalAuth(), adminController.RegisterSuper)

	adminGroup := api.Group("/admin", authRequired, adminRequired)
	adminGroup.POST("/register", adminController.Register)
	adminGroup.GET("/user/stats", adminController.UserStats)
	adminGroup.GET("/user/top-active", adminController.TopActive)
	adminGroup.GET("/user/list", adminController.ListUsers)
	adminGroup.GET("/user/:id", adminController.GetUser)
	adminGroup.PUT("/user/:id", adminController.UpdateUser)
	adminGroup.GET("/reports/:id/history", adminController.ReportHistory)

	adminNotes := adminGroup.Group("/notifications")
	adminNotes.POST("", adminNotificationController.Create)
	adminNotes.POST("/bulk", adminNotificationController.CreateBulk)
	adminNotes.POST("/system-announcement", adminNotificationController.SystemAnnouncement)
	adminNotes.POST("/admin-message", adminNotificationController.AdminMessage)
	adminNotes.GET("/user/:userId", adminNotificationController.UserNotifications)
	adminNotes.GET("/user/:userId/unread", adminNotificationController.UserUnread)
	adminNotes.GET("/user/:userId/summary", adminNotificationController.UserSummary)
	adminNotes.GET("/user/:userId/preferences", adminNotificationController.UserPreferences)
	adminNotes.DELETE("/user/:userId/all", adminNotificationController.DeleteUserAll)
	adminNotes.DELETE("/cleanup/:days", adminNotificationController.Cleanup)
	adminNotes.POST("/test-notification/:adminId", adminNotificationController.TestNotification)

	categories := api.Group("/categories")
	categories.GET("", categoryController.List)
	categories.GET("/name/:name", categoryController.GetByName)
	categories.GET("/:id", categoryController.Get)
	categories.POST("", authRequired, adminRequired, categoryController.Create)
	categories.PUT("/:id", authRequired, adminRequired, categoryController.Update)
	categories.DELETE("/:id", authRequired, adminRequired, categoryController.Delete)

	comments := api.Group("/comments")
	comments.POST("", authRequired, commentController.Create)
	comments.GET("/report/:reportId", commentController.ByReport)
	comments.GET("/:id", commentController.Get)
	comments.PUT("/:id", authRequired, commentController.Update)
	comments.DELETE("/:id", authRequired, commentController.Delete)

	reports := api.Group("/reports")
	reports.POST("", authRequired, reportController.Create)
	reports.GET("", reportController.Search)
	reports.GET("/active", reportController.Active)
	reports.GET("/primary", reportController.Primary)
	reports.GET("/siblings", reportController.Siblings)
	reports.GET("/with-status", reportController.WithStatus)
	reports.GET("/popular", reportController.Popular)
	reports.GET("/statuses", reportController.Statuses)
	reports.GET("/user/:userId/active", reportController.UserActive)
	reports.GET("/user/:userId/completed", reportController.UserCompleted)
	reports.GET("/category/:categoryId", reportController.ByCategory)
	reports.GET("/status/:statusId", reportController.ByStatus)
	reports.GET("/url/:url", reportController.ByURL)
	reports.GET("/:id", reportController.Get)
	reports.GET("/:id/with-status", reportController.Get)
	reports.GET("/:id/tags", reportController.Tags)
	reports.GET("/:id/category", reportController.Category)
	reports.PUT("/:id", authRequired, reportController.Update)
	reports.PUT("/:id/vote", authRequired, reportController.Vote)
	reports.PUT("/:id/tags/from-text", authRequired, reportController.AddTagsFromText)
	reports.PUT("/:id/status", authRequired, adminRequired, reportController.Moderate)
	reports.DELETE("/:id", authRequired, reportController.Delete)

	api.GET("/tags", tagController.List)

	notifications := api.Group("/notifications")
	notifications.GET("/types", notificationController.Types)
	notifications.GET("/types/:id", notificationController.Type)
	notifications.GET("/constants/types", notificationController.TypeConstants)
	internal := notifications.Group("/internal", middleware.InternalKeyRequired())
	internal.POST("/report-status-change", notificationController.InternalStatusChange)
	internal.POST("/new-comment", notificationController.InternalNewComment)
	internal.POST("/report-trending", notificationController.InternalTrending)

	files := api.Group("/files", authRequired)
	files.POST("/upload", fileController.Upload)
	files.GET("/mine", fileController.ListMine)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
