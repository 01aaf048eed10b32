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
	"time"

	"promo-sales-go/internal/models"

	"go.uber.org/zap"
)

func scanSale(row rowScanner) (*models.Sale, error) {
	var sale models.Sale
	var saleDate string
	var uploadBatchId sql.NullInt64
	err := row.Scan(&sale.Id, &sale.PromoCodeId, &sale.ProductName, &saleDate,
		&sale.Quantity, &uploadBatchId, &sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	sale.SaleDate, err = time.Parse(models.DateLayout, saleDate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sale date '%s': %w", saleDate, err)
	}
	if uploadBatchId.Valid {
		id := uploadBatchId.Int64
		sale.UploadBatchId = &id
	}
	return &sale, nil
}

func (s *Service) listSales(ctx context.Context, query string, args ...any) ([]models.Sale, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var sales []models.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, *sale)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during sale row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating sale rows: %w", err)
	}

	return sales, nil
}

func (s *Service) GetSalesByPromoCode(ctx context.Context, promoCodeId int64) ([]models.Sale, error) {
	zap.L().Debug("Getting sales by promo code", zap.Int64("promo_code_id", promoCodeId))
	return s.listSales(ctx, queryGetSalesByPromoCode, promoCodeId)
}

func (s *Service) GetSalesInPeriod(ctx context.Context, period models.Period) ([]models.Sale, error) {
	zap.L().Debug("Getting sales in period", zap.String("period", period.String()))
	return s.listSales(ctx, queryGetSalesInPeriod, period.FromString(), period.ToString())
}
