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
	"errors"
	"fmt"

	"promo-sales-go/internal/models"
	"promo-sales-go/internal/store"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPromoCode(row rowScanner) (*models.PromoCode, error) {
	var pc models.PromoCode
	var status string
	if err := row.Scan(&pc.Id, &pc.Code, &status, &pc.TotalSales, &pc.CreatedAt, &pc.UpdatedAt); err != nil {
		return nil, err
	}
	pc.Status = models.PromoCodeStatus(status)
	return &pc, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func findPromoCodeByCode(ctx context.Context, q querier, code string) (*models.PromoCode, error) {
	pc, err := scanPromoCode(q.QueryRowContext(ctx, queryGetPromoCodeByCode, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query promo code %s: %w", code, err)
	}
	return pc, nil
}

func listPromoCodes(ctx context.Context, q querier, query string, args ...any) ([]models.PromoCode, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query promo codes: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var codes []models.PromoCode
	for rows.Next() {
		pc, err := scanPromoCode(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan promo code row: %w", err)
		}
		codes = append(codes, *pc)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating promo code rows: %w", err)
	}

	return codes, nil
}

func createPromoCode(ctx context.Context, q querier, code string, status models.PromoCodeStatus) (*models.PromoCode, error) {
	result, err := q.ExecContext(ctx, queryInsertPromoCode, code, string(status))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrPromoCodeExists, code)
		}
		return nil, fmt.Errorf("unable to insert promo code %s: %w", code, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("unable to get promo code id: %w", err)
	}

	pc, err := scanPromoCode(q.QueryRowContext(ctx, queryGetPromoCodeById, id))
	if err != nil {
		return nil, fmt.Errorf("unable to read back promo code %s: %w", code, err)
	}
	return pc, nil
}

func (s *Service) FindPromoCodeByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	return findPromoCodeByCode(ctx, s.db, code)
}

func (s *Service) FindPromoCodesBySuffix(ctx context.Context, suffix string) ([]models.PromoCode, error) {
	return listPromoCodes(ctx, s.db, queryGetPromoCodesBySuffix, "%"+suffix)
}

func (s *Service) CreatePromoCode(ctx context.Context, code string, status models.PromoCodeStatus) (*models.PromoCode, error) {
	pc, err := createPromoCode(ctx, s.db, code, status)
	if err != nil {
		return nil, err
	}
	zap.L().Info("Promo code created", zap.String("code", pc.Code), zap.Int64("id", pc.Id), zap.String("status", string(pc.Status)))
	return pc, nil
}

func (s *Service) GetPromoCodes(ctx context.Context) ([]models.PromoCode, error) {
	zap.L().Debug("Querying promo codes")

	codes, err := listPromoCodes(ctx, s.db, queryGetPromoCodes)
	if err != nil {
		zap.L().Error("Failed to query promo codes", zap.Error(err))
		return nil, err
	}

	zap.L().Debug("Retrieved promo codes", zap.Int("count", len(codes)))
	return codes, nil
}

func (s *Service) GetPromoCodeById(ctx context.Context, id int64) (*models.PromoCode, error) {
	pc, err := scanPromoCode(s.db.QueryRowContext(ctx, queryGetPromoCodeById, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", store.ErrPromoCodeNotFound, id)
		}
		return nil, fmt.Errorf("unable to query promo code by id: %w", err)
	}
	return pc, nil
}
