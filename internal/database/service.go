/**
 * Copyright 2025-present Coinbase Global, Inc.
 * Modifications copyright 2025-present The promo-sales-go Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"

	"promo-sales-go/internal/models"
	"promo-sales-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.SalesStore.
var _ store.SalesStore = (*Service)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema(ctx context.Context) error {
	schema := `
	-- Promo codes; total_sales is derived from sales
	CREATE TABLE IF NOT EXISTS promo_codes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'unregistered' CHECK (status IN ('unregistered', 'registered')),
		total_sales INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Create users table
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		promo_code_id INTEGER UNIQUE REFERENCES promo_codes(id) ON DELETE RESTRICT,
		is_admin BOOLEAN NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Create index on email for faster lookups
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	-- Create index on active users
	CREATE INDEX IF NOT EXISTS idx_users_active ON users(active);

	-- Upload ledger, one row per ingestion attempt
	CREATE TABLE IF NOT EXISTS upload_batches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uploader_id TEXT REFERENCES users(id) ON DELETE SET NULL,
		file_name TEXT NOT NULL DEFAULT '',
		period_from TEXT NOT NULL,
		period_to TEXT NOT NULL,
		rows_processed INTEGER NOT NULL DEFAULT 0,
		rows_committed INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed', 'discarded')),
		message TEXT NOT NULL DEFAULT '',
		error_summary TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_upload_batches_status ON upload_batches(status);
	CREATE INDEX IF NOT EXISTS idx_upload_batches_created_at ON upload_batches(created_at);

	-- Sales, at most one row per (promo code, product, date)
	CREATE TABLE IF NOT EXISTS sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		promo_code_id INTEGER NOT NULL REFERENCES promo_codes(id) ON DELETE RESTRICT,
		product_name TEXT NOT NULL,
		sale_date TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		upload_batch_id INTEGER REFERENCES upload_batches(id) ON DELETE SET NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_sales_code_product_date ON sales(promo_code_id, product_name, sale_date);
	-- Period replace scans by date
	CREATE INDEX IF NOT EXISTS idx_sales_sale_date ON sales(sale_date);
	CREATE INDEX IF NOT EXISTS idx_sales_upload_batch_id ON sales(upload_batch_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SeedPromoCodes creates the given codes if they do not exist yet and
// returns how many were added.
func (s *Service) SeedPromoCodes(ctx context.Context, codes []string) (int, error) {
	added := 0
	for _, code := range codes {
		result, err := s.db.ExecContext(ctx, queryInsertPromoCodeIfMissing, code, string(models.PromoCodeUnregistered))
		if err != nil {
			zap.L().Error("Failed to seed promo code", zap.String("code", code), zap.Error(err))
			return added, fmt.Errorf("unable to seed promo code %s: %w", code, err)
		}
		if n, err := result.RowsAffected(); err == nil && n > 0 {
			added++
			zap.L().Info("Promo code seeded", zap.String("code", code))
		}
	}
	return added, nil
}
