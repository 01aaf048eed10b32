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

	"go.uber.org/zap"
)

var _ store.BatchTx = (*batchTx)(nil)

// batchTx is the write phase of one upload.
type batchTx struct {
	tx *sql.Tx
}

func (s *Service) BeginBatch(ctx context.Context) (store.BatchTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &batchTx{tx: tx}, nil
}

func (b *batchTx) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (b *batchTx) Rollback() error {
	if err := b.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

func (b *batchTx) FindPromoCodeByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	return findPromoCodeByCode(ctx, b.tx, code)
}

func (b *batchTx) FindPromoCodesBySuffix(ctx context.Context, suffix string) ([]models.PromoCode, error) {
	return listPromoCodes(ctx, b.tx, queryGetPromoCodesBySuffix, "%"+suffix)
}

func (b *batchTx) CreatePromoCode(ctx context.Context, code string, status models.PromoCodeStatus) (*models.PromoCode, error) {
	return createPromoCode(ctx, b.tx, code, status)
}

func (b *batchTx) ListSaleKeysInPeriod(ctx context.Context, period models.Period) (map[store.SaleKey]struct{}, error) {
	rows, err := b.tx.QueryContext(ctx, queryGetSaleKeysInPeriod, period.FromString(), period.ToString())
	if err != nil {
		return nil, fmt.Errorf("failed to query sale keys: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	keys := make(map[store.SaleKey]struct{})
	for rows.Next() {
		var key store.SaleKey
		if err := rows.Scan(&key.PromoCodeId, &key.ProductName, &key.SaleDate); err != nil {
			return nil, fmt.Errorf("failed to scan sale key: %w", err)
		}
		keys[key] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale keys: %w", err)
	}
	return keys, nil
}

func (b *batchTx) DeleteSalesInPeriod(ctx context.Context, period models.Period) (int64, error) {
	result, err := b.tx.ExecContext(ctx, queryDeleteSalesInPeriod, period.FromString(), period.ToString())
	if err != nil {
		return 0, fmt.Errorf("failed to delete sales in period %s: %w", period, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return deleted, nil
}

func (b *batchTx) FindSale(ctx context.Context, key store.SaleKey) (*models.Sale, error) {
	sale, err := scanSale(b.tx.QueryRowContext(ctx, queryGetSaleByKey, key.PromoCodeId, key.ProductName, key.SaleDate))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	return sale, nil
}

func (b *batchTx) InsertSale(ctx context.Context, params store.InsertSaleParams) (int64, error) {
	result, err := b.tx.ExecContext(ctx, queryInsertSale,
		params.Key.PromoCodeId, params.Key.ProductName, params.Key.SaleDate, params.Quantity, params.UploadBatchId)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sale: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get sale id: %w", err)
	}
	return id, nil
}

func (b *batchTx) UpdateSaleQuantity(ctx context.Context, saleId, quantity, uploadBatchId int64) error {
	result, err := b.tx.ExecContext(ctx, queryUpdateSaleQuantity, quantity, uploadBatchId, saleId)
	if err != nil {
		return fmt.Errorf("failed to update sale %d: %w", saleId, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("sale %d disappeared during update", saleId)
	}
	return nil
}

func (b *batchTx) RecomputeTotals(ctx context.Context) (int64, error) {
	return recomputeTotals(ctx, b.tx)
}

func (b *batchTx) FinalizeUpload(ctx context.Context, uploadId int64, rowsProcessed, rowsCommitted int, message string) error {
	return finalizeUpload(ctx, b.tx, uploadId, rowsProcessed, rowsCommitted, message)
}
