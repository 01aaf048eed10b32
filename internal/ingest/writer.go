/**
 * Copyright 2025-present The promo-sales-go Authors
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

package ingest

import (
	"context"
	"fmt"

	"promo-sales-go/internal/models"
	"promo-sales-go/internal/promocode"
	"promo-sales-go/internal/store"

	"go.uber.org/zap"
)

// WriteResult summarizes the write phase. Counts are informational.
// QuantityByCode is the quantity the batch left per promo code.
type WriteResult struct {
	Added          int
	Updated        int
	Deleted        int64
	Resolutions    map[promocode.Kind]int
	QuantityByCode map[string]int64
}

// WriteBatch replaces the period's sales with the parsed rows inside tx.
// A row whose key existed before the period was cleared counts as updated,
// so re-uploading an identical file reports every row as updated.
func WriteBatch(ctx context.Context, tx store.BatchTx, resolver *promocode.Resolver, rows []models.ParsedRow, period models.Period, uploadId int64) (WriteResult, error) {
	result := WriteResult{
		Resolutions:    make(map[promocode.Kind]int),
		QuantityByCode: make(map[string]int64),
	}

	previous, err := tx.ListSaleKeysInPeriod(ctx, period)
	if err != nil {
		return result, err
	}

	result.Deleted, err = tx.DeleteSalesInPeriod(ctx, period)
	if err != nil {
		return result, err
	}

	written := make(map[store.SaleKey]int64, len(rows))
	codes := make(map[int64]string)

	zap.L().Info("Cleared sales in period",
		zap.Int64("upload_id", uploadId),
		zap.String("period", period.String()),
		zap.Int64("deleted", result.Deleted))

	for _, row := range rows {
		res, err := resolver.Resolve(ctx, row.PromoCode, promocode.ModeIngest)
		if err != nil {
			return result, fmt.Errorf("row %d: %w", row.Row, err)
		}
		result.Resolutions[res.Kind]++

		key := store.SaleKey{
			PromoCodeId: res.PromoCode.Id,
			ProductName: row.ProductName,
			SaleDate:    row.SaleDate.Format(models.DateLayout),
		}

		if !period.Contains(row.SaleDate) {
			zap.L().Warn("Sale date outside declared period",
				zap.Int("row", row.Row),
				zap.String("sale_date", key.SaleDate),
				zap.String("period", period.String()))
		}

		existing, err := tx.FindSale(ctx, key)
		if err != nil {
			return result, fmt.Errorf("row %d: %w", row.Row, err)
		}

		_, existedBefore := previous[key]
		if existing != nil {
			if err := tx.UpdateSaleQuantity(ctx, existing.Id, row.Quantity, uploadId); err != nil {
				return result, fmt.Errorf("row %d: %w", row.Row, err)
			}
		} else {
			if _, err := tx.InsertSale(ctx, store.InsertSaleParams{Key: key, Quantity: row.Quantity, UploadBatchId: uploadId}); err != nil {
				return result, fmt.Errorf("row %d: %w", row.Row, err)
			}
		}

		if existing != nil || existedBefore {
			result.Updated++
		} else {
			result.Added++
		}
		written[key] = row.Quantity
		codes[key.PromoCodeId] = res.PromoCode.Code
	}

	for key, quantity := range written {
		result.QuantityByCode[codes[key.PromoCodeId]] += quantity
	}

	return result, nil
}
