package helper

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the Postgres connection parameters. Values
// are read from the environment; a .env file is loaded when present.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
}

// NewDatabaseConfiguration reads the configuration from the environment
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	// Missing .env is fine, envs may be set directly
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     os.Getenv("EVIDENCER_DB_HOST"),
		Port:     os.Getenv("EVIDENCER_DB_PORT"),
		Database: os.Getenv("EVIDENCER_DB_DATABASE"),
		Username: os.Getenv("EVIDENCER_DB_USERNAME"),
		Password: os.Getenv("EVIDENCER_DB_PASSWORD"),
		Schema:   os.Getenv("EVIDENCER_DB_SCHEMA"),
	}

	if config.Host == "" || config.Port == "" || config.Database == "" || config.Username == "" {
		return nil, fmt.Errorf("incomplete database configuration, need EVIDENCER_DB_HOST, EVIDENCER_DB_PORT, EVIDENCER_DB_DATABASE and EVIDENCER_DB_USERNAME")
	}
	if config.Schema == "" {
		config.Schema = "public"
	}

	return config, nil
}

// ConnectionString builds the lib/pq DSN
func (c *DatabaseConfiguration) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=disable search_path=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.Schema,
	)
}

// Database wraps the sql.DB instance together with its logger
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens a connection pool and pings it. It panics on
// connection failure, matching the fail-fast startup behavior of the
// database handlers.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		logger.Error("error opening database", slog.String("name", name), slog.Any("error", err))
		panic(err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		logger.Error("error pinging database", slog.String("name", name), slog.Any("error", err))
		panic(err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host))

	return &Database{
		Name:     name,
		Instance: db,
		Logger:   logger,
	}
}
