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

	"github.com/adfharrison1/go-docquery/pkg/server"
	"github.com/adfharrison1/go-docquery/pkg/storage"
)

func main() {
	// Command line flags
	var (
		port            = flag.String("port", "8080", "Server port")
		dataDir         = flag.String("data-dir", ".", "Data directory for collection snapshots")
		identityField   = flag.String("identity-field", "_id", "Default identity field for new collections")
		backgroundSave  = flag.Duration("background-save", 0, "Background save interval (e.g., 5m, 30s). Set to 0 to disable.")
		transactionSave = flag.Bool("transaction-save", true, "Save a collection after every write request")
		cacheSize       = flag.Int("cache-size", 256, "Number of compiled filters to cache (0 disables the cache)")
		maxPageSize     = flag.Int("max-page-size", 1000, "Largest limit accepted by find")
		showHelp        = flag.Bool("help", false, "Show help message")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\ngo-docquery is an in-memory document query engine with snapshot persistence.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                    # Start with defaults\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090 -identity-field id     # Custom port and identity field\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -background-save 5m               # Auto-save every 5 minutes\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -data-dir /tmp/docquery           # Custom data directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nSafety Note:\n")
		fmt.Fprintf(os.Stderr, "  With -transaction-save=false and no -background-save, data is only saved on graceful shutdown.\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	// Build storage options based on flags
	storageOptions := []storage.StorageOption{
		storage.WithDataDir(*dataDir),
		storage.WithIdentityField(*identityField),
		storage.WithFilterCacheSize(*cacheSize),
		storage.WithMaxPageSize(*maxPageSize),
	}
	log.Printf("INFO: Using data directory: %s", *dataDir)

	// Background save replaces per-request saves
	if *backgroundSave > 0 {
		storageOptions = append(storageOptions, storage.WithBackgroundSave(*backgroundSave))
		log.Printf("INFO: Background save enabled: every %v", *backgroundSave)
	} else {
		storageOptions = append(storageOptions, storage.WithTransactionSave(*transactionSave))
		if !*transactionSave {
			log.Printf("WARN: Background and transaction saves disabled - data only saved on graceful shutdown")
		}
	}

	srv := server.NewServer(storageOptions...)
	defer srv.StopBackgroundWorkers()

	srv.InitDB()

	httpServer := &http.Server{
		Addr:    ":" + *port,
		Handler: srv.Router(),
	}

	go func() {
		log.Printf("Starting go-docquery server on :%s", *port)
		log.Printf("API endpoints available at http://localhost:%s", *port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("ERROR: Server forced to shutdown: %v", err)
	}

	// Save after in-flight requests have drained
	srv.StopBackgroundWorkers()
	srv.SaveDB()

	log.Println("Server exited")
}
