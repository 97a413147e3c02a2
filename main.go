package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gobrittle/adapters/postgres"
	"gobrittle/app"
	"gobrittle/internal"
	"gobrittle/internal/api"
	"gobrittle/internal/config"
	"gobrittle/internal/errors"
	"gobrittle/internal/migration"
	"gobrittle/ports"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// initDatabase connects to PostgreSQL and applies the schema
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	if appConfig.Database.URL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	db.SetMaxOpenConns(appConfig.Database.MaxOpenConns)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}
	log.Printf("Database schema %s ready", migrator.Version())

	return db, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.LogLevel))

	// Persistence is optional; without DATABASE_URL the API only analyses.
	var repo ports.ProfileRepository
	if appConfig.Database.URL != "" {
		db, err := initDatabase(appConfig)
		if err != nil {
			log.Fatal("Failed to initialize database:", err)
		}
		defer db.Close()
		repo = postgres.NewProfileRepository(db)
	} else {
		log.Println("DATABASE_URL not set, profile storage disabled")
	}

	gin.SetMode(appConfig.Server.GinMode)
	service := app.NewBrittlenessService(repo, logger)
	router := api.NewRouter(api.NewBrittlenessHandler(service, repo, appConfig.Analysis, logger), logger)

	server := &http.Server{
		Addr:         ":" + appConfig.Server.Port,
		Handler:      router,
		ReadTimeout:  appConfig.Server.ReadTimeout,
		WriteTimeout: appConfig.Server.WriteTimeout,
	}

	go func() {
		log.Printf("🚀 Starting gobrittle server on port %s (default domain %s)", appConfig.Server.Port, appConfig.Analysis.Domain)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
