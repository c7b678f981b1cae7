package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipepredictor/internal/api"
	"recipepredictor/internal/config"
	"recipepredictor/internal/logging"
	"recipepredictor/internal/platform/predictor"
	"recipepredictor/internal/workflow"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("error creating logger: %w", err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	predictorClient := predictor.NewClient(cfg.PredictURL,
		predictor.WithTimeout(cfg.RequestTimeout),
		predictor.WithLogger(logger),
	)
	registry := workflow.NewRegistry(ctx, predictorClient, logger, workflow.WithTTL(cfg.WorkflowTTL))
	handler := api.NewHandler(registry, logger)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: setupRouter(handler, cfg),
	}

	go func() {
		<-ctx.Done()
		registry.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("recipe predictor starting",
		zap.String("addr", cfg.ListenAddr),
		zap.String("predict_url", cfg.PredictURL),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
	logger.Info("recipe predictor stopped")
}

func setupRouter(handler *api.Handler, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetHTMLTemplate(api.Templates())

	// Configure CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handler.RegisterRoutes(r)
	return r
}
