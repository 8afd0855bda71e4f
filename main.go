package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/rullmann/portfolio-now-sub006/config"
	"github.com/rullmann/portfolio-now-sub006/internal/database"
	"github.com/rullmann/portfolio-now-sub006/internal/handlers"
	"github.com/rullmann/portfolio-now-sub006/internal/logger"
	"github.com/rullmann/portfolio-now-sub006/internal/middleware"
	"github.com/rullmann/portfolio-now-sub006/internal/repository"
	"github.com/rullmann/portfolio-now-sub006/internal/repository/memory"
	"github.com/rullmann/portfolio-now-sub006/internal/repository/postgres"
	"github.com/rullmann/portfolio-now-sub006/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	// Create context for initialization
	ctx := context.Background()

	// Select the backing store. An empty PG_URL runs everything in memory,
	// which is enough for local experiments and tests.
	var store repository.Store
	if cfg.UseInMemoryStore {
		log.Warn("PG_URL not set, using in-memory store; data will not survive a restart")
		store = memory.New()
	} else {
		db, err := database.New(ctx, cfg.PGURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		pg := postgres.New(db.Pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		store = pg
	}

	// Initialize services
	ledgerSvc := services.NewLedgerService(store)
	actionSvc := services.NewActionService(store, ledgerSvc)

	// Initialize handlers
	actionHandler := handlers.NewActionHandler(actionSvc)
	ledgerHandler := handlers.NewLedgerHandler(ledgerSvc)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Corporate action routes
	router.POST("/corporate-actions/split/preview", actionHandler.PreviewSplit)
	router.POST("/corporate-actions/split/apply", actionHandler.ApplySplit)
	router.POST("/corporate-actions/split/undo", actionHandler.UndoSplit)
	router.POST("/corporate-actions/merger/preview", actionHandler.PreviewMerger)
	router.POST("/corporate-actions/merger/apply", actionHandler.ApplyMerger)
	router.POST("/corporate-actions/spinoff/apply", actionHandler.ApplySpinOff)

	// Ledger routes
	router.GET("/portfolios/:id/holdings", ledgerHandler.Holdings)
	router.GET("/securities/:id/lots", ledgerHandler.Lots)
	router.POST("/maintenance/rebuild-lots", ledgerHandler.RebuildLots)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Give outstanding requests 5 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
