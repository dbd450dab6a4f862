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

	"foodbridge/internal/config"
	"foodbridge/internal/handler"
	"foodbridge/internal/repository"
	"foodbridge/internal/service"
	"foodbridge/internal/service/donorapi"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Database
	ctx := context.Background()
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	if err := repository.Migrate(ctx, dbPool); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	fmt.Println("Connected to database")

	// 3. Setup Logic
	notifier := repository.NewNotifier()
	donationRepo := repository.NewDonationRepository(dbPool, notifier)
	userRepo := repository.NewUserRepository(dbPool, notifier)
	txRepo := repository.NewTransactionRepository(dbPool, notifier)

	apiClient := donorapi.NewClient(donorapi.Config{
		BaseURL: cfg.DonorAPI.BaseURL,
		Token:   cfg.DonorAPI.Token,
	})

	donationSvc := service.NewDonationService(donationRepo, apiClient)
	authSvc := service.NewAuthService(userRepo, donationRepo, txRepo, apiClient)
	paymentSvc := service.NewPaymentService(txRepo, apiClient)

	h := handler.NewHandler(donationSvc, authSvc, paymentSvc)

	// 4. Background reconciliation
	syncCtx, stopSync := context.WithCancel(ctx)
	defer stopSync()
	go func() {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-syncCtx.Done():
				return
			case <-ticker.C:
				confirmed, err := donationSvc.SyncUnsynced(syncCtx)
				if err != nil {
					log.Printf("Sync pass failed: %v", err)
					continue
				}
				if confirmed > 0 {
					log.Printf("Sync pass confirmed %d donation(s)", confirmed)
				}
			}
		}
	}()

	// 5. Setup Server
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: h,
	}

	// 6. Run Server with Graceful Shutdown
	go func() {
		fmt.Printf("Starting server on port %s\n", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 2)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	fmt.Println("Shutting down server...")
	stopSync()

	// Create a deadline to wait for.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	fmt.Println("Server exiting")
}
