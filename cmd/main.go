package main

import (
	"authenticity-product/internal/apierror"
	"authenticity-product/internal/handler"
	"authenticity-product/internal/middleware"
	"authenticity-product/internal/model"
	"authenticity-product/pkg/config"
	"authenticity-product/pkg/database"
	"authenticity-product/pkg/jwtutil"
	"authenticity-product/pkg/logger"
	"authenticity-product/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: "authenticity-product",
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting authenticity product service...", zap.String("environment", cfg.Server.Env))

	// Open the database with an explicit lifecycle
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}()
	log.Info("Database connection established")

	if err := database.Migrate(db, &model.Role{}, &model.User{}, &model.Product{}, &model.Article{}); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := seedRoles(db); err != nil {
		log.Fatal("Failed to seed roles", zap.Error(err))
	}

	// Load signing keys once at startup
	jwt, err := jwtutil.New(&cfg.JWT)
	if err != nil {
		log.Fatal("Failed to load JWT keys", zap.Error(err))
	}
	log.Info("JWT utility initialized")

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = apierror.HTTPErrorHandler

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	authHandler := handler.NewAuthHandler(db, jwt)
	userHandler := handler.NewUserHandler(db)
	productHandler := handler.NewProductHandler(db)
	articleHandler := handler.NewArticleHandler(db, cfg.Label.Price)
	adminHandler := handler.NewAdminHandler(db, jwt, cfg.Admin.CookieName, cfg.Admin.SessionTTL)

	// Public routes
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/jwt/login", authHandler.Login)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)
	auth.POST("/request-verify-token", authHandler.RequestVerifyToken)
	auth.POST("/verify", authHandler.Verify)

	requireAuth := middleware.JWTAuth(jwt, db)

	// User management
	users := e.Group("/users", requireAuth)
	users.GET("/me", userHandler.Me)
	users.PATCH("/me", userHandler.UpdateMe)
	adminOnly := middleware.RequireRole(model.RoleAdmin)
	users.GET("/:id", userHandler.GetUser, adminOnly)
	users.PATCH("/:id", userHandler.UpdateUser, adminOnly)
	users.DELETE("/:id", userHandler.DeleteUser, adminOnly)

	// Product catalogue, public like the label download
	products := e.Group("/products")
	products.POST("/create-product", productHandler.CreateProduct)
	products.GET("", productHandler.ListProducts)
	products.GET("/:id", productHandler.GetProduct)
	products.PUT("/:id", productHandler.UpdateProduct)
	products.DELETE("/:id", productHandler.DeleteProduct)

	// Article lifecycle
	unites := e.Group("/unites")
	unites.POST("/", articleHandler.CreateArticle)
	unites.GET("/", articleHandler.ListArticles)
	unites.POST("/generate_articles", articleHandler.GenerateArticles)
	unites.GET("/:id", articleHandler.GetArticle)
	unites.PUT("/:id", articleHandler.UpdateArticle)
	unites.DELETE("/:id", articleHandler.DeleteArticle)

	// Thermal label download
	e.GET("/get-etiquettes-thermiques/:id", articleHandler.GetLabel)

	// Admin console
	e.GET("/admin/login", adminHandler.LoginForm)
	e.POST("/admin/login", adminHandler.Login)
	e.GET("/admin/logout", adminHandler.Logout)
	admin := e.Group("/admin", middleware.AdminSession(jwt, db, cfg.Admin.CookieName))
	admin.GET("", adminHandler.Dashboard)
	admin.GET("/:entity", adminHandler.ListEntity)
	admin.POST("/:entity/:id/delete", adminHandler.DeleteEntity)

	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}

// seedRoles creates the fixed role tiers when absent
func seedRoles(db *gorm.DB) error {
	for _, name := range []string{model.RoleAdmin, model.RoleUser} {
		var role model.Role
		if err := db.Where("name = ?", name).First(&role).Error; err == nil {
			continue
		}
		if err := db.Create(&model.Role{Name: name}).Error; err != nil {
			return err
		}
	}
	return nil
}
