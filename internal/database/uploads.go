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
	"time"

	"promo-sales-go/internal/models"
	"promo-sales-go/internal/store"

	"go.uber.org/zap"
)

func scanUpload(row rowScanner) (*models.UploadBatch, error) {
	var u models.UploadBatch
	var uploaderId sql.NullString
	var periodFrom, periodTo, status string
	err := row.Scan(&u.Id, &uploaderId, &u.FileName, &periodFrom, &periodTo,
		&u.RowsProcessed, &u.RowsCommitted, &status, &u.Message, &u.ErrorSummary,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if uploaderId.Valid {
		u.UploaderId = &uploaderId.String
	}
	u.Status = models.UploadStatusFrom(status)

	if u.PeriodFrom, err = time.Parse(models.DateLayout, periodFrom); err != nil {
		return nil, fmt.Errorf("failed to parse period_from '%s': %w", periodFrom, err)
	}
	if u.PeriodTo, err = time.Parse(models.DateLayout, periodTo); err != nil {
		return nil, fmt.Errorf("failed to parse period_to '%s': %w", periodTo, err)
	}
	return &u, nil
}

// expectOneRow turns a zero-row ledger update into the right sentinel.
func expectOneRow(ctx context.Context, q querier, result sql.Result, uploadId int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	if _, err := scanUpload(q.QueryRowContext(ctx, queryGetUpload, uploadId)); errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", store.ErrUploadNotFound, uploadId)
	}
	return fmt.Errorf("%w: %d", store.ErrUploadNotPending, uploadId)
}

func finalizeUpload(ctx context.Context, q querier, uploadId int64, rowsProcessed, rowsCommitted int, message string) error {
	result, err := q.ExecContext(ctx, queryFinalizeUpload, rowsProcessed, rowsCommitted, message, uploadId)
	if err != nil {
		return fmt.Errorf("failed to finalize upload %d: %w", uploadId, err)
	}
	return expectOneRow(ctx, q, result, uploadId)
}

// BeginUpload opens a pending ledger entry before validation starts.
func (s *Service) BeginUpload(ctx context.Context, params store.BeginUploadParams) (int64, error) {
	result, err := s.db.ExecContext(ctx, queryInsertUpload,
		params.UploaderId, params.FileName, params.Period.FromString(), params.Period.ToString())
	if err != nil {
		zap.L().Error("Failed to insert upload batch", zap.String("file", params.FileName), zap.Error(err))
		return 0, fmt.Errorf("unable to insert upload batch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("unable to get upload batch id: %w", err)
	}

	zap.L().Info("Upload batch opened",
		zap.Int64("upload_id", id),
		zap.String("file", params.FileName),
		zap.String("period", params.Period.String()))
	return id, nil
}

// DiscardUpload removes a pending entry whose file was rejected.
func (s *Service) DiscardUpload(ctx context.Context, uploadId int64) error {
	result, err := s.db.ExecContext(ctx, queryDeleteUpload, uploadId)
	if err != nil {
		return fmt.Errorf("failed to discard upload %d: %w", uploadId, err)
	}
	if err := expectOneRow(ctx, s.db, result, uploadId); err != nil {
		return err
	}

	zap.L().Info("Upload batch discarded", zap.Int64("upload_id", uploadId))
	return nil
}

// MarkUploadFailed keeps the entry pending so an operator can retry it.
func (s *Service) MarkUploadFailed(ctx context.Context, uploadId int64, summary string) error {
	result, err := s.db.ExecContext(ctx, queryFailUpload, summary, uploadId)
	if err != nil {
		return fmt.Errorf("failed to mark upload %d failed: %w", uploadId, err)
	}
	if err := expectOneRow(ctx, s.db, result, uploadId); err != nil {
		return err
	}

	zap.L().Warn("Upload batch left pending after failure", zap.Int64("upload_id", uploadId), zap.String("error_summary", summary))
	return nil
}

func (s *Service) GetUpload(ctx context.Context, uploadId int64) (*models.UploadBatch, error) {
	u, err := scanUpload(s.db.QueryRowContext(ctx, queryGetUpload, uploadId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", store.ErrUploadNotFound, uploadId)
		}
		return nil, fmt.Errorf("unable to query upload batch: %w", err)
	}
	return u, nil
}

func (s *Service) ListUploads(ctx context.Context, limit, offset int) ([]models.UploadBatch, error) {
	zap.L().Debug("Listing upload batches", zap.Int("limit", limit), zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryListUploads, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list upload batches: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var uploads []models.UploadBatch
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload batch: %w", err)
		}
		uploads = append(uploads, *u)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during upload row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating upload rows: %w", err)
	}

	return uploads, nil
}

// RollbackUpload deletes the sales a completed upload last wrote, recomputes
// totals and marks the entry discarded, all in one transaction. Sales the
// upload replaced are not restored.
func (s *Service) RollbackUpload(ctx context.Context, uploadId int64) (int64, error) {
	zap.L().Info("Rolling back upload batch", zap.Int64("upload_id", uploadId))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upload, err := scanUpload(tx.QueryRowContext(ctx, queryGetUpload, uploadId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: %d", store.ErrUploadNotFound, uploadId)
		}
		return 0, fmt.Errorf("unable to query upload batch: %w", err)
	}
	if upload.Status != models.UploadCompleted {
		return 0, fmt.Errorf("%w: upload %d is %s", store.ErrUploadNotCompleted, uploadId, upload.Status)
	}

	result, err := tx.ExecContext(ctx, queryDeleteSalesByUpload, uploadId)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sales of upload %d: %w", uploadId, err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}

	if _, err := recomputeTotals(ctx, tx); err != nil {
		return 0, err
	}

	message := fmt.Sprintf("rolled back, %d sales removed", deleted)
	if _, err := tx.ExecContext(ctx, queryDiscardCompletedUpload, message, uploadId); err != nil {
		return 0, fmt.Errorf("failed to mark upload %d discarded: %w", uploadId, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Upload batch rolled back",
		zap.Int64("upload_id", uploadId),
		zap.Int64("sales_deleted", deleted))
	return deleted, nil
}
