package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultMigrationsPath  = "migrations/favorites"
	defaultEventsQueue     = "catalog.events"
	defaultShutdownTimeout = 10 * time.Second

	defaultProductsAPIURL = "https://dummyjson.com"
	defaultPageSize       = 10
	defaultSearchDebounce = 500 * time.Millisecond
	defaultRemoteTimeout  = 10 * time.Second

	defaultDBMaxOpenConns    = 25
	defaultDBMaxIdleConns    = 5
	defaultDBConnMaxLifetime = 5 * time.Minute
	defaultDBPingTimeout     = 5 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
)

type Catalog struct {
	DatabaseURL       string
	RabbitMQURL       string
	EventsQueue       string
	HTTPAddr          string
	MigrationsPath    string
	ProductsAPIURL    string
	PageSize          int
	SearchDebounce    time.Duration
	RemoteTimeout     time.Duration
	ShutdownTimeout   time.Duration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBPingTimeout     time.Duration
	ReadHeaderTimeout time.Duration
}

func LoadCatalog() (Catalog, error) {
	cfg := Catalog{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
		EventsQueue:       getEnv("EVENTS_QUEUE", defaultEventsQueue),
		HTTPAddr:          getEnv("HTTP_ADDR", defaultHTTPAddr),
		MigrationsPath:    getEnv("MIGRATIONS_PATH", defaultMigrationsPath),
		ProductsAPIURL:    getEnv("PRODUCTS_API_URL", defaultProductsAPIURL),
		ShutdownTimeout:   defaultShutdownTimeout,
		DBMaxOpenConns:    defaultDBMaxOpenConns,
		DBMaxIdleConns:    defaultDBMaxIdleConns,
		DBConnMaxLifetime: defaultDBConnMaxLifetime,
		DBPingTimeout:     defaultDBPingTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	if cfg.DatabaseURL == "" {
		return Catalog{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RabbitMQURL == "" {
		return Catalog{}, fmt.Errorf("RABBITMQ_URL is required")
	}

	var err error
	if cfg.PageSize, err = getEnvInt("PAGE_SIZE", defaultPageSize); err != nil {
		return Catalog{}, err
	}
	if cfg.PageSize < 1 {
		return Catalog{}, fmt.Errorf("PAGE_SIZE must be positive")
	}
	if cfg.SearchDebounce, err = getEnvDuration("SEARCH_DEBOUNCE", defaultSearchDebounce); err != nil {
		return Catalog{}, err
	}
	if cfg.RemoteTimeout, err = getEnvDuration("REMOTE_TIMEOUT", defaultRemoteTimeout); err != nil {
		return Catalog{}, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return value, nil
}
