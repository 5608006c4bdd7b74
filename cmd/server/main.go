/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the rent indexation server. Handles
  configuration, dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite ledger store
  3. Connect the Odoo JSON-RPC gateway
  4. Load the VPI index table (embedded or from file)
  5. Wire the confirmation workflow and API handler
  6. Start HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port         HTTP server port (default: 8080)
  -db           SQLite ledger path (default: indexation.db)
                Use ":memory:" for an in-memory ledger
  -index-table  Optional JSON file overriding the embedded VPI table

ENVIRONMENT (loaded from .env when present):
  ODOO_URL       Base URL of the Odoo instance (required)
  ODOO_DB        Odoo database name (required)
  ODOO_LOGIN     Odoo login (required)
  ODOO_PASSWORD  Odoo password or API key (required)
  AUTH_USER      Basic-auth user for the API (optional)
  AUTH_PASSWORD  Basic-auth password; auth is off unless both are set

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the ledger database
  4. Exit

EXAMPLES:
  # Run against a file ledger
  ./server -db="./data/indexation.db"

  # Run with a newer index table than the embedded one
  ./server -index-table="./data/vpi_2025.json"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - confirm/workflow.go: Confirmation step sequence
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/arealis/rent-indexation/api"
	"github.com/arealis/rent-indexation/confirm"
	"github.com/arealis/rent-indexation/erp"
	"github.com/arealis/rent-indexation/indexation"
	"github.com/arealis/rent-indexation/letter"
	"github.com/arealis/rent-indexation/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "indexation.db", "SQLite ledger path")
	tablePath := flag.String("index-table", "", "JSON file overriding the embedded VPI table")
	flag.Parse()

	// .env is a development convenience; absence is not an error.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	odooCfg := erp.Config{
		BaseURL:  os.Getenv("ODOO_URL"),
		Database: os.Getenv("ODOO_DB"),
		Login:    os.Getenv("ODOO_LOGIN"),
		Password: os.Getenv("ODOO_PASSWORD"),
	}
	if odooCfg.BaseURL == "" || odooCfg.Database == "" || odooCfg.Login == "" || odooCfg.Password == "" {
		log.Fatal("Missing Odoo configuration: set ODOO_URL, ODOO_DB, ODOO_LOGIN, ODOO_PASSWORD")
	}

	// Initialize ledger store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize ledger database: %v", err)
	}
	defer store.Close()

	// Index table: embedded dataset unless overridden.
	table := indexation.DefaultTable()
	if *tablePath != "" {
		table, err = indexation.LoadTable(*tablePath)
		if err != nil {
			log.Fatalf("Failed to load index table %s: %v", *tablePath, err)
		}
		log.Printf("Loaded index table from %s", *tablePath)
	}

	// Wire the Odoo gateway and the confirmation workflow.
	loader := erp.NewLoader(erp.NewClient(odooCfg, nil))
	workflow := &confirm.Workflow{
		Gateway:  loader,
		Ledger:   store,
		Renderer: letter.NewRenderer(nil),
		Archive:  store,
	}

	handler := &api.Handler{
		Tenancies: loader,
		Workflow:  workflow,
		Ledger:    store,
		Archive:   store,
		Table:     table,
	}

	router := api.NewRouter(handler, api.AuthConfig{
		User:     os.Getenv("AUTH_USER"),
		Password: os.Getenv("AUTH_PASSWORD"),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Indexation server listening on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
