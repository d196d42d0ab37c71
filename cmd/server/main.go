package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"accounts_api/internal/api"
	"accounts_api/internal/app/service"
	"accounts_api/internal/common/security"
	"accounts_api/internal/domain/repository"
	"accounts_api/internal/platform/config"
	"accounts_api/internal/platform/database"
	"accounts_api/internal/platform/tokenstore"
)

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()
	fmt.Println("JWT initialized.")

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	database.EnsureSchema(context.Background())

	// 4. Initialize Redis (refresh token rotation store)
	tokenstore.ConnectRedis()
	defer tokenstore.CloseRedis()

	// 5. Initialize Repositories
	accountRepo := repository.NewPgAccountRepository(database.DB)

	// 6. Initialize Services
	accountService := service.NewAccountService(accountRepo)
	tokenService := service.NewTokenService(tokenstore.NewRedisStore(tokenstore.RDB))

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(accountService, tokenService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped gracefully.")
}
