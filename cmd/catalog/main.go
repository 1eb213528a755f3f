package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	cataloghttp "product-catalog/internal/catalog/http"
	"product-catalog/internal/catalog/messaging"
	"product-catalog/internal/catalog/remote"
	"product-catalog/internal/catalog/repository"
	"product-catalog/internal/catalog/service"
	"product-catalog/internal/catalog/session"
	"product-catalog/internal/config"

	_ "product-catalog/docs"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	metricsNamespace    = "catalog"
	migrateSourcePrefix = "file://"
	postgresDriverName  = "postgres"
)

// @title        Product Catalog API
// @version      1.0
// @description  Browse sessions over a remote product catalog: paginated search, infinite scroll, favorites and product management.
// @host         localhost:8080
// @BasePath     /
func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadCatalog()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	if err := runMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		logger.Error("run migrations", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open(postgresDriverName, cfg.DatabaseURL)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), cfg.DBPingTimeout)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("ping database", "error", err)
		os.Exit(1)
	}

	rabbitConn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("connect rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitConn.Close()

	publisher, err := messaging.NewRabbitPublisher(rabbitConn, cfg.EventsQueue)
	if err != nil {
		logger.Error("init publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	metrics := service.NewMetrics(metricsNamespace)
	prometheus.MustRegister(metrics.Collectors()...)

	client := remote.New(remote.Config{
		BaseURL: cfg.ProductsAPIURL,
		Timeout: cfg.RemoteTimeout,
	})
	sessions := session.NewRegistry(client, cfg.PageSize, cfg.SearchDebounce)
	defer sessions.Each(func(s *session.Session) { s.Close() })

	repo := repository.NewPostgres(db)
	svc := service.New(client, sessions, repo, publisher, logger, metrics)
	handler := cataloghttp.NewHandler(svc)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cataloghttp.RequestIDMiddleware())
	router.Use(cataloghttp.AccessLogMiddleware(logger))
	cataloghttp.RegisterRoutes(router, handler, repo)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("catalog service started",
			"addr", cfg.HTTPAddr,
			"products_api", cfg.ProductsAPIURL,
			"page_size", cfg.PageSize,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("catalog service stopped", "sessions", sessions.Len())
}

func runMigrations(databaseURL, migrationsPath string) error {
	m, err := migrate.New(migrateSourcePrefix+migrationsPath, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
