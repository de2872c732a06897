package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"chronos-exchange/internal/auth"
	"chronos-exchange/internal/config"
	"chronos-exchange/internal/database"
	"chronos-exchange/internal/handlers"
	"chronos-exchange/internal/jobs"
	"chronos-exchange/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	// Initialize services
	ledgerService := services.NewLedgerService(db)
	marketService := services.NewMarketService(db)
	portfolioService := services.NewPortfolioService(db, ledgerService)
	lifecycleService := services.NewLifecycleService(db, marketService, portfolioService)
	betService := services.NewBetService(db, ledgerService, marketService, cfg.App.MaxBetAmount)
	userService := services.NewUserService(db)
	authService := services.NewAuthService(db, ledgerService, userService, cfg.App.InitialTruthBalance, cfg.App.InitialTimeBalance)
	feedService := services.NewFeedService(db, cfg.Feed.BaseURL)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, userService)
	marketHandler := handlers.NewMarketHandler(marketService, lifecycleService)
	betHandler := handlers.NewBetHandler(betService)
	walletHandler := handlers.NewWalletHandler(ledgerService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)

	// Start market feed job
	feedJob := jobs.NewMarketFeedJob(feedService, lifecycleService)
	feedJob.Start(cfg.Feed.SyncInterval)
	log.Println("Market feed job started")

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	router.POST("/auth/wallet", authHandler.WalletLogin)

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public market routes
	router.GET("/api/markets", marketHandler.GetMarkets)
	router.GET("/api/markets/:event_id", marketHandler.GetMarket)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Wallet endpoints
		api.GET("/wallet/balance", walletHandler.GetBalance)
		api.GET("/wallet/transactions", walletHandler.GetTransactions)

		// Betting endpoints
		api.POST("/bets", betHandler.PlaceBet)
		api.GET("/bets", betHandler.GetUserBets)

		// Portfolio endpoint
		api.GET("/portfolio", portfolioHandler.GetPortfolio)
	}

	// Admin routes (protected) - oracle input for market lifecycle
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	{
		admin.POST("/markets/:event_id/close", marketHandler.CloseMarket)
		admin.POST("/markets/:event_id/resolve", marketHandler.ResolveMarket)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	feedJob.Stop()

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
