package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"healthcare-portal-server/internal/config"
	"healthcare-portal-server/internal/insight"
	"healthcare-portal-server/internal/middleware"
	"healthcare-portal-server/internal/models"
	"healthcare-portal-server/internal/prediction"
	"healthcare-portal-server/internal/routes"
)

const maxBodyBytes = 1 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve loads configuration, connects to the database, migrates the schema and
serves the API until SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := models.InitDB(models.DatabaseConfig{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	provider, err := newInsightProvider(cfg.Insight)
	if err != nil {
		return fmt.Errorf("configure insight provider: %w", err)
	}
	if provider == nil {
		log.Println("AI analysis disabled (INSIGHT_PROVIDER not set)")
	} else {
		log.Printf("AI analysis enabled via %s", provider.Name())
	}

	store := models.NewGormStore(db)
	kb := prediction.Default()
	router := newRouter(cfg, routes.Services{
		Accounts:     store,
		Directory:    store,
		Predictions:  store,
		Appointments: store,
		Records:      store,
		Engine:       prediction.NewEngine(prediction.WithKnowledgeBase(kb), prediction.WithDelay(cfg.Prediction.Delay)),
		Knowledge:    kb,
		Insight:      provider,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Analyses wait for the simulated delay and possibly a remote model.
		WriteTimeout: cfg.Prediction.Delay + cfg.Insight.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("server listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// newRouter builds the gin engine with logging, recovery, body limits, CORS
// and all API routes.
func newRouter(cfg *config.Config, svc routes.Services) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.LimitBodySize(maxBodyBytes))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, cfg, svc)
	return router
}

// newInsightProvider returns nil when AI analysis is disabled. Enabled
// providers are wrapped in a cache unless the TTL is zero.
func newInsightProvider(cfg config.InsightConfig) (insight.Provider, error) {
	provider, err := insight.NewProvider(insight.Config{
		Provider:  cfg.Provider,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		Timeout:   cfg.Timeout,
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil || provider == nil {
		return nil, err
	}
	if cfg.CacheTTL <= 0 {
		return provider, nil
	}
	return insight.NewCachedProvider(provider, cfg.CacheTTL), nil
}
