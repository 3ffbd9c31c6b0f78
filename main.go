package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"voxgate/config"
	"voxgate/internal/api"
	"voxgate/internal/credential"
	"voxgate/internal/quota"
	"voxgate/internal/store"
	"voxgate/internal/synth"
	"voxgate/internal/tts"
	"voxgate/internal/voice"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	// Determine config path
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		execPath, _ := os.Executable()
		configPath = filepath.Join(filepath.Dir(execPath), "config.yaml")
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Warning: Could not load config: %v, using defaults", err)
		cfg = config.DefaultConfig()
	}

	logger, err := newLogger(cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize storage
	dbPath := cfg.Storage.DBPath
	if !filepath.IsAbs(dbPath) {
		execPath, _ := os.Executable()
		dbPath = filepath.Join(filepath.Dir(execPath), dbPath)
	}

	storage, err := store.NewStorage(dbPath)
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	// Initialize components. An empty credential pool or a bad timezone is
	// fatal here, never a per-request error.
	pool, err := credential.NewPool(cfg.Provider.APIKeys, logger)
	if err != nil {
		logger.Fatal("credential pool configuration error", zap.Error(err))
	}

	ledger, err := quota.NewLedger(storage, cfg.Quota.Timezone, cfg.Quota.PreviewPrincipal, logger)
	if err != nil {
		logger.Fatal("quota ledger configuration error", zap.Error(err))
	}

	factory := tts.Factory(func(apiKey string) tts.Synthesizer {
		return tts.NewClient(apiKey, cfg.Provider.Model, time.Duration(cfg.Provider.Timeout)*time.Second)
	})

	orch, err := synth.NewOrchestrator(ledger, pool, factory, storage, cfg.Quota.PreviewPrincipal, logger)
	if err != nil {
		logger.Fatal("orchestrator configuration error", zap.Error(err))
	}

	voiceRouter := voice.NewRouter(cfg)
	apiHandler := api.NewHandler(orch, ledger, storage, voiceRouter, logger)

	// Setup Gin
	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Synthesis API
	r.POST("/v1/synthesize", apiHandler.Synthesize)
	r.GET("/v1/artifacts", apiHandler.ListArtifacts)
	r.DELETE("/v1/artifacts/:id", apiHandler.DeleteArtifact)
	r.GET("/v1/usage/:principal_id", apiHandler.GetUsage)

	// Health check
	r.GET("/health", apiHandler.Health)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("voxgate starting",
		zap.String("addr", addr),
		zap.Int("credential_pool", pool.Size()),
		zap.String("quota_timezone", cfg.Quota.Timezone))

	if err := r.Run(addr); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
