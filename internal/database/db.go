package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// DB is the global connection pool, initialized by ConnectDB.
var DB *pgxpool.Pool

// Config collects the postgres connection settings.
type Config struct {
	User     string
	Password string
	Host     string
	Port     string
	Database string
}

// ConfigFromEnv reads the connection settings from the environment.
func ConfigFromEnv() Config {
	return Config{
		User:     getEnv("POSTGRES_USER", "postgres"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Host:     getEnv("PG_HOST", "localhost"),
		Port:     getEnv("PG_PORT", "5432"),
		Database: getEnv("PG_DATABASE", "cardtable"),
	}
}

func (c Config) url() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// Connect opens and pings a pool for the given settings, installing it as
// the package-wide DB on success.
func Connect(ctx context.Context, cfg Config) error {
	pool, err := pgxpool.New(ctx, cfg.url())
	if err != nil {
		return fmt.Errorf("create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("ping postgres at %s:%s: %w", cfg.Host, cfg.Port, err)
	}

	DB = pool
	logrus.WithFields(logrus.Fields{
		"host":     cfg.Host,
		"port":     cfg.Port,
		"database": cfg.Database,
	}).Info("connected to postgres")
	return nil
}

// ConnectDB connects using environment settings and exits on failure, for
// binaries that cannot run without the database.
func ConnectDB() {
	if err := Connect(context.Background(), ConfigFromEnv()); err != nil {
		logrus.Fatalf("database connect failed: %v", err)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
