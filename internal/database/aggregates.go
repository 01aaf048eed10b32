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

	"go.uber.org/zap"
)

// recomputeTotals rebuilds total_sales for every promo code from the sales
// table and returns how many codes changed.
func recomputeTotals(ctx context.Context, q querier) (int64, error) {
	result, err := q.ExecContext(ctx, queryRecomputeTotals)
	if err != nil {
		return 0, fmt.Errorf("failed to recompute totals: %w", err)
	}

	changed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return changed, nil
}

func (s *Service) RecomputeTotals(ctx context.Context) (int64, error) {
	changed, err := recomputeTotals(ctx, s.db)
	if err != nil {
		zap.L().Error("Failed to recompute promo code totals", zap.Error(err))
		return 0, err
	}

	zap.L().Info("Promo code totals recomputed", zap.Int64("changed", changed))
	return changed, nil
}

// VerifyTotals returns every promo code whose stored total differs from the
// sum of its sales. An empty result means the aggregate is consistent.
func (s *Service) VerifyTotals(ctx context.Context) ([]models.TotalMismatch, error) {
	zap.L().Info("Verifying promo code totals")

	rows, err := s.db.QueryContext(ctx, queryVerifyTotals)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate totals from sales: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var mismatches []models.TotalMismatch
	for rows.Next() {
		var m models.TotalMismatch
		if err := rows.Scan(&m.PromoCodeId, &m.Code, &m.Stored, &m.Calculated); err != nil {
			return nil, fmt.Errorf("failed to scan total mismatch: %w", err)
		}

		zap.L().Error("Total reconciliation failed",
			zap.String("code", m.Code),
			zap.Int64("stored", m.Stored),
			zap.Int64("calculated", m.Calculated),
			zap.Int64("difference", m.Stored-m.Calculated))
		mismatches = append(mismatches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating total rows: %w", err)
	}

	if len(mismatches) == 0 {
		zap.L().Info("Total reconciliation successful")
	}
	return mismatches, nil
}
