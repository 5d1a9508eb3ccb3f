package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/HilmiKilavuz/EcoScan/internal/auth"
	"github.com/HilmiKilavuz/EcoScan/internal/config"
	"github.com/HilmiKilavuz/EcoScan/internal/ledger"
	"github.com/HilmiKilavuz/EcoScan/internal/reward"
	"github.com/HilmiKilavuz/EcoScan/internal/scan"
	"github.com/HilmiKilavuz/EcoScan/internal/user"
)

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	db         *sqlx.DB
	config     *config.Config
}

func New(db *sqlx.DB, cfg *config.Config, projection *user.Projection, pipeline *scan.Service, rewards *reward.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(corsMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(20, 40))

	userHandler := user.NewHandler(db, projection, cfg.JWTSecret)
	ledgerHandler := ledger.NewHandler(db)
	scanHandler := scan.NewHandler(pipeline, cfg.WalrusAggregator)
	rewardHandler := reward.NewHandler(db, rewards)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.Refresh)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)
		protected.GET("/me/watch", userHandler.Watch)

		protected.POST("/scans", scanHandler.Submit)
		protected.GET("/scans", scanHandler.History)

		protected.GET("/points/balance", ledgerHandler.GetBalance)
		protected.GET("/points/transactions", ledgerHandler.ListTransactions)

		protected.GET("/rewards", rewardHandler.ListRewards)
		protected.GET("/rewards/available", rewardHandler.ListAvailable)
		protected.POST("/rewards/:rewardID/redeem", rewardHandler.Redeem)
		protected.GET("/redemptions", rewardHandler.ListMyRedemptions)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.httpServer = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
