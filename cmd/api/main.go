// Heartland Payments Gateway
//
// This is the main entry point for the payment gateway service.
// It wires up all dependencies and starts the HTTP server.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/commercegate/heartland-payments/config"
	"github.com/commercegate/heartland-payments/internal/api"
	"github.com/commercegate/heartland-payments/internal/credentials"
	"github.com/commercegate/heartland-payments/internal/domain"
	"github.com/commercegate/heartland-payments/internal/gateway"
	"github.com/commercegate/heartland-payments/internal/handshake"
	"github.com/commercegate/heartland-payments/internal/platform/portico"
	"github.com/commercegate/heartland-payments/internal/storage"
	"github.com/joho/godotenv"
)

func main() {
	log.Println("Starting Heartland Payments Gateway...")

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()
	log.Printf("Configuration loaded: Port=%s, Mode=%s, ServiceURL=%s",
		cfg.Server.Port, cfg.Gateway.Mode, cfg.Processor.ServiceURL)

	// Validate required configuration
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Wire up dependencies (manual dependency injection)
	//
	// Infrastructure Layer
	processor := portico.NewClient(
		cfg.Gateway.SecretKey,
		cfg.Processor.ServiceURL,
		cfg.Processor.DeveloperID,
		cfg.Processor.VersionNumber,
	)

	var payments domain.PaymentStore
	var methods domain.PaymentMethodStore
	if cfg.Storage.RedisAddr != "" {
		redisStore, err := storage.NewRedisStore(cfg.Storage.RedisAddr)
		if err != nil {
			log.Fatalf("Storage error: %v", err)
		}
		payments, methods = redisStore, redisStore
		log.Printf("Using Redis store at %s", cfg.Storage.RedisAddr)
	} else {
		memStore := storage.NewMemoryStore()
		payments, methods = memStore, memStore
		log.Println("Using in-memory store")
	}

	// Service Layer
	service := gateway.NewService(processor, payments, methods, cfg.Gateway.SubscriptionsEnabled)

	// API Layer
	frameTargets := handshake.FrameTargets{
		CardNumber:     "heartlandCardNumber",
		CardExpiration: "heartlandCardExpiration",
		CardCvv:        "heartlandCardCvv",
	}
	handler := api.NewHandler(service, payments, cfg.Gateway.PublicKey, frameTargets)
	router := api.SetupRouter(handler, cfg.Server.GinMode)

	// Start server in a goroutine
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	go func() {
		log.Printf("Server listening on %s", serverAddr)
		if err := router.Run(serverAddr); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
}

// validateConfig checks that required configuration values are set and that
// the credentials match the operating mode. A key from the wrong
// environment refuses to boot rather than failing at transaction time.
func validateConfig(cfg *config.Config) error {
	if cfg.Gateway.PublicKey == "" {
		return fmt.Errorf("HEARTLAND_PUBLIC_KEY is required")
	}
	if cfg.Gateway.SecretKey == "" {
		return fmt.Errorf("HEARTLAND_SECRET_KEY is required")
	}
	if fieldErrs := credentials.ValidateKeys(cfg.Gateway.Mode, cfg.Gateway.PublicKey, cfg.Gateway.SecretKey); len(fieldErrs) > 0 {
		for _, fe := range fieldErrs {
			log.Printf("Credential error: %v", fe)
		}
		return fmt.Errorf("credentials do not match mode %q", cfg.Gateway.Mode)
	}
	if cfg.Processor.DeveloperID == "" {
		log.Println("Warning: HEARTLAND_DEVELOPER_ID not set")
	}
	return nil
}
