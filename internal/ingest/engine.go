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
	"errors"
	"fmt"
	"sync"
	"time"

	"promo-sales-go/internal/metrics"
	"promo-sales-go/internal/models"
	"promo-sales-go/internal/promocode"
	"promo-sales-go/internal/store"

	"go.uber.org/zap"
)

var (
	ErrUnauthorized  = errors.New("caller is not allowed to upload sales")
	ErrInvalidPeriod = errors.New("invalid sales period")
	ErrNoRows        = errors.New("spreadsheet has no data rows")
	ErrCommitFailed  = errors.New("sales batch could not be committed")
)

// CommitError is returned when the write phase rolled back. UploadId is the
// ledger entry left pending, which a retry can pass as ResumeUploadId.
type CommitError struct {
	UploadId int64
	Err      error
}

func (e *CommitError) Error() string {
	return ErrCommitFailed.Error() + ": " + e.Err.Error()
}

func (e *CommitError) Unwrap() []error {
	return []error{ErrCommitFailed, e.Err}
}

// Request is one uploaded file. Rows includes the header row.
type Request struct {
	Rows       [][]string
	PeriodFrom time.Time
	PeriodTo   time.Time
	UploaderId *string
	FileName   string
	Authorized bool

	// ResumeUploadId reuses a pending ledger entry from a failed commit of
	// the same file instead of opening a new one.
	ResumeUploadId *int64
}

// Engine validates an upload as a whole and replaces the declared period's
// sales in one transaction.
type Engine struct {
	store    store.SalesStore
	products ProductLookup
	metrics  *metrics.Recorder
	location *time.Location
	now      func() time.Time

	// serializes the write phase within this process
	mu sync.Mutex
}

// NewEngine wires an engine. location decides what "today" is for rows
// without a date; recorder may be nil.
func NewEngine(s store.SalesStore, products ProductLookup, location *time.Location, recorder *metrics.Recorder) *Engine {
	if location == nil {
		location = time.UTC
	}
	return &Engine{
		store:    s,
		products: products,
		metrics:  recorder,
		location: location,
		now:      time.Now,
	}
}

// Ingest runs one upload. Caller misuse is reported as an error with a nil
// result. A file with rejected rows returns success=false and a nil error;
// nothing is written and the ledger entry is dropped. A failed write returns
// both a result and a *CommitError.
func (e *Engine) Ingest(ctx context.Context, req Request) (*models.IngestResult, error) {
	started := time.Now()

	if !req.Authorized {
		return nil, ErrUnauthorized
	}
	period, err := periodOf(req)
	if err != nil {
		return nil, err
	}
	if len(req.Rows) == 0 || CountDataRows(req.Rows[1:]) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRows, req.FileName)
	}

	header, data := req.Rows[0], req.Rows[1:]
	mapping := MapColumns(header)
	if missing := mapping.Missing(); len(missing) > 0 {
		zap.L().Warn("Required columns not found in header",
			zap.String("file", req.FileName),
			zap.Strings("missing", missing),
			zap.Strings("header", header))
	}

	uploadId, err := e.openUpload(ctx, req, period)
	if err != nil {
		return nil, fmt.Errorf("unable to open upload ledger: %w", err)
	}

	// Phase 1: read-only validation
	batch := Validate(mapping, data, e.products, e.now().In(e.location))
	if !batch.Valid() {
		return e.reject(ctx, uploadId, req, batch, started), nil
	}

	// Phase 2: period replace, recompute, finalize
	result, err := e.write(ctx, uploadId, period, batch)
	if err != nil {
		zap.L().Error("Sales batch rolled back",
			zap.Int64("upload_id", uploadId),
			zap.String("file", req.FileName),
			zap.Error(err))

		if markErr := e.store.MarkUploadFailed(ctx, uploadId, err.Error()); markErr != nil {
			zap.L().Error("Failed to record upload failure", zap.Int64("upload_id", uploadId), zap.Error(markErr))
		}
		e.metrics.ObserveUpload(metrics.OutcomeFailed, time.Since(started))

		return &models.IngestResult{
			Success:       false,
			RowsProcessed: batch.Processed(),
			Message:       "Ошибка сохранения данных, изменения отменены",
			Error:         err.Error(),
		}, &CommitError{UploadId: uploadId, Err: err}
	}

	e.metrics.ObserveUpload(metrics.OutcomeCommitted, time.Since(started))
	e.metrics.AddRows(metrics.RowsAdded, result.RowsAdded)
	e.metrics.AddRows(metrics.RowsUpdated, result.RowsUpdated)

	zap.L().Info("Sales batch committed",
		zap.Int64("upload_id", uploadId),
		zap.String("file", req.FileName),
		zap.String("period", period.String()),
		zap.Int("rows_added", result.RowsAdded),
		zap.Int("rows_updated", result.RowsUpdated),
		zap.Duration("elapsed", time.Since(started)))

	return result, nil
}

// openUpload resumes req.ResumeUploadId when it is still pending for the same
// file and period, and opens a new ledger entry otherwise.
func (e *Engine) openUpload(ctx context.Context, req Request, period models.Period) (int64, error) {
	if req.ResumeUploadId != nil {
		upload, err := e.store.GetUpload(ctx, *req.ResumeUploadId)
		switch {
		case err != nil:
			zap.L().Warn("Cannot resume upload", zap.Int64("upload_id", *req.ResumeUploadId), zap.Error(err))
		case upload.Status != models.UploadPending,
			upload.FileName != req.FileName,
			!upload.PeriodFrom.Equal(period.From),
			!upload.PeriodTo.Equal(period.To):
			zap.L().Warn("Upload does not match the retried file",
				zap.Int64("upload_id", upload.Id),
				zap.String("status", string(upload.Status)),
				zap.String("file", upload.FileName))
		default:
			zap.L().Info("Resuming pending upload", zap.Int64("upload_id", upload.Id), zap.String("file", req.FileName))
			return upload.Id, nil
		}
	}

	return e.store.BeginUpload(ctx, store.BeginUploadParams{
		UploaderId: req.UploaderId,
		FileName:   req.FileName,
		Period:     period,
	})
}

func (e *Engine) reject(ctx context.Context, uploadId int64, req Request, batch ParsedBatch, started time.Time) *models.IngestResult {
	zap.L().Warn("Sales file rejected",
		zap.Int64("upload_id", uploadId),
		zap.String("file", req.FileName),
		zap.Int("rows_rejected", len(batch.Rejections)))

	if err := e.store.DiscardUpload(ctx, uploadId); err != nil {
		zap.L().Error("Failed to discard upload batch", zap.Int64("upload_id", uploadId), zap.Error(err))
	}

	e.metrics.ObserveUpload(metrics.OutcomeRejected, time.Since(started))
	e.metrics.AddRows(metrics.RowsRejected, len(batch.Rejections))

	return &models.IngestResult{
		Success:       false,
		RowsProcessed: batch.Processed(),
		RowsRejected:  len(batch.Rejections),
		Rejections:    batch.Rejections,
		Message:       fmt.Sprintf("Файл отклонён: ошибок в строках: %d, данные не сохранены", len(batch.Rejections)),
	}
}

func (e *Engine) write(ctx context.Context, uploadId int64, period models.Period, batch ParsedBatch) (*models.IngestResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.store.BeginBatch(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := tx.Rollback(); err != nil {
			zap.L().Warn("Failed to roll back sales batch", zap.Int64("upload_id", uploadId), zap.Error(err))
		}
	}()

	written, err := WriteBatch(ctx, tx, promocode.NewResolver(tx), batch.Rows, period, uploadId)
	if err != nil {
		return nil, err
	}

	changed, err := tx.RecomputeTotals(ctx)
	if err != nil {
		return nil, err
	}

	committed := written.Added + written.Updated
	message := fmt.Sprintf("Загружено строк: %d (добавлено: %d, обновлено: %d)", committed, written.Added, written.Updated)
	if err := tx.FinalizeUpload(ctx, uploadId, batch.Processed(), committed, message); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	for kind, n := range written.Resolutions {
		e.metrics.AddResolutions(kind.String(), n)
	}
	zap.L().Debug("Promo code totals recomputed",
		zap.Int64("upload_id", uploadId),
		zap.Int64("changed", changed),
		zap.Any("quantity_by_code", written.QuantityByCode))

	id := uploadId
	return &models.IngestResult{
		Success:       true,
		RowsProcessed: batch.Processed(),
		RowsAdded:     written.Added,
		RowsUpdated:   written.Updated,
		UploadBatchId: &id,
		Message:       message,
	}, nil
}

func periodOf(req Request) (models.Period, error) {
	if req.PeriodFrom.IsZero() || req.PeriodTo.IsZero() {
		return models.Period{}, fmt.Errorf("%w: both dates are required", ErrInvalidPeriod)
	}
	period := models.Period{From: calendarDate(req.PeriodFrom), To: calendarDate(req.PeriodTo)}
	if period.To.Before(period.From) {
		return models.Period{}, fmt.Errorf("%w: %s is after %s", ErrInvalidPeriod, period.FromString(), period.ToString())
	}
	return period, nil
}
