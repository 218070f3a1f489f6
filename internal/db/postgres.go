package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "db")

// ErrNoDSN is returned when no connection string is configured.
var ErrNoDSN = errors.New("DATABASE_URL not set")

// PoolConfig parses dsn and applies the service's pool limits.
func PoolConfig(dsn string) (*pgxpool.Config, error) {
	if dsn == "" {
		return nil, ErrNoDSN
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	return config, nil
}

// ConnectPostgres opens the pool, pings it and brings the schema up to date.
func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := PoolConfig(dsn)
	if err != nil {
		return nil, err
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	log.WithField("host", config.ConnConfig.Host).Info("✅ Connected to PostgreSQL")

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return db, nil
}

// initSchema creates or updates the database schema
func initSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, step := range schema {
		if _, err := db.Exec(ctx, step.sql); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	log.Info("✅ Schema initialized successfully")
	return nil
}

type schemaStep struct {
	name string
	sql  string
}

var schema = []schemaStep{
	// -------------------------------
	// USERS
	// -------------------------------
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			role VARCHAR(50) NOT NULL DEFAULT 'PATIENT',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`},

	// -------------------------------
	// DOCUMENTS
	// -------------------------------
	{"documents", `
		CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			owner_id TEXT NOT NULL,
			files JSONB NOT NULL DEFAULT '[]',
			hints JSONB NOT NULL DEFAULT '{}',
			status VARCHAR(50) NOT NULL DEFAULT 'UPLOADED',
			error TEXT NULL,
			report JSONB NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`},
	{"documents status index", `
		CREATE INDEX IF NOT EXISTS documents_status_created_idx
		ON documents (status, created_at)
	`},

	// -------------------------------
	// INDICATOR DICTIONARY
	// -------------------------------
	{"lab_indicators", `
		CREATE TABLE IF NOT EXISTS lab_indicators (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			name_en VARCHAR(255) NULL,
			unit VARCHAR(50) NULL,
			reference_low DOUBLE PRECISION NULL,
			reference_high DOUBLE PRECISION NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`},
	{"lab_indicator_aliases", `
		CREATE TABLE IF NOT EXISTS lab_indicator_aliases (
			id SERIAL PRIMARY KEY,
			indicator_id INTEGER NOT NULL REFERENCES lab_indicators(id) ON DELETE CASCADE,
			alias VARCHAR(255) NOT NULL,
			UNIQUE (indicator_id, alias)
		)
	`},

	// -------------------------------
	// MEASUREMENTS
	// -------------------------------
	{"lab_measurements", `
		CREATE TABLE IF NOT EXISTS lab_measurements (
			id BIGSERIAL PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			indicator_name VARCHAR(255) NOT NULL,
			value_num DOUBLE PRECISION NULL,
			value_text TEXT NULL,
			unit VARCHAR(50) NULL,
			reference_low DOUBLE PRECISION NULL,
			reference_high DOUBLE PRECISION NULL,
			reference_range VARCHAR(100) NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'unknown',
			UNIQUE (document_id, position)
		)
	`},
}
