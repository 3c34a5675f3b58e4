package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"chipledger/api"
	"chipledger/config"
	"chipledger/database"
	"chipledger/events"
	"chipledger/repository"
	"chipledger/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting chipledger...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services
	log.Println("Initializing services...")
	sessionService := service.NewSessionService(uowFactory, cfg)
	playerService := service.NewPlayerService(uowFactory, cfg)
	bankService := service.NewBankService(uowFactory)
	expenseService := service.NewExpenseService(uowFactory)
	settlementService := service.NewSettlementService(uowFactory)
	transferFileService := service.NewTransferFileService(uowFactory)
	log.Println("Services initialized successfully")

	// Initialize HTTP API
	server := api.New(cfg, api.Services{
		Session:      sessionService,
		Player:       playerService,
		Bank:         bankService,
		Expense:      expenseService,
		Settlement:   settlementService,
		TransferFile: transferFileService,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	log.Printf("chipledger is running in %s mode...", cfg.Environment)

	select {
	case err := <-serverErr:
		db.Close()
		return fmt.Errorf("API server error: %w", err)
	case <-ctx.Done():
	}

	// Cleanup resources
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down API server: %v", err)
	}

	log.Println("Closing database connection...")
	db.Close()

	log.Println("Shutdown completed")
	return nil
}
