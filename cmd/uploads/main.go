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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"promo-sales-go/internal/api"
	"promo-sales-go/internal/common"
	"promo-sales-go/internal/config"
	"promo-sales-go/internal/models"
	"promo-sales-go/internal/store"

	"go.uber.org/zap"
)

type reportStats struct {
	shown     int
	completed int
	pending   int
	discarded int
}

func statusSymbol(status models.UploadStatus) string {
	switch status {
	case models.UploadCompleted:
		return "✓"
	case models.UploadDiscarded:
		return "✗"
	}
	return "…"
}

func printUpload(u models.UploadBatch, isLast bool) {
	fmt.Printf("%s %s #%-5d %-28s %s  %s\n",
		common.BoxPrefix(isLast),
		statusSymbol(u.Status),
		u.Id,
		common.Truncate(u.FileName, 28),
		models.Period{From: u.PeriodFrom, To: u.PeriodTo},
		u.CreatedAt.Format("2006-01-02 15:04:05"))

	detail := common.BoxDetailPrefix(isLast)
	fmt.Printf("%s        rows: %d processed, %d committed\n", detail, u.RowsProcessed, u.RowsCommitted)
	if u.Message != "" {
		fmt.Printf("%s        %s\n", detail, u.Message)
	}
	if u.ErrorSummary != "" {
		fmt.Printf("%s        error: %s\n", detail, u.ErrorSummary)
	}
}

func printUploads(uploads []models.UploadBatch) reportStats {
	stats := reportStats{}
	for i, u := range uploads {
		printUpload(u, i == len(uploads)-1)

		stats.shown++
		switch u.Status {
		case models.UploadCompleted:
			stats.completed++
		case models.UploadDiscarded:
			stats.discarded++
		default:
			stats.pending++
		}
	}
	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	limitFlag := flag.Int("limit", 20, "Number of uploads to show (max 100)")
	offsetFlag := flag.Int("offset", 0, "Number of newest uploads to skip")
	rollbackFlag := flag.Int64("rollback", 0, "Remove the sales written by a completed upload")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if *rollbackFlag > 0 {
		deleted, err := dbService.RollbackUpload(ctx, *rollbackFlag)
		switch {
		case errors.Is(err, store.ErrUploadNotFound):
			logger.Fatal("Upload not found", zap.Int64("upload_id", *rollbackFlag))
		case errors.Is(err, store.ErrUploadNotCompleted):
			logger.Fatal("Only completed uploads can be rolled back", zap.Int64("upload_id", *rollbackFlag))
		case err != nil:
			logger.Fatal("Failed to roll back upload", zap.Error(err))
		}
		fmt.Printf("✓ Upload #%d rolled back, %d sales removed\n", *rollbackFlag, deleted)
		return
	}

	uploads, err := api.NewSalesService(dbService).GetUploadHistory(ctx, *limitFlag, *offsetFlag)
	if err != nil {
		logger.Fatal("Failed to list uploads", zap.Error(err))
	}

	common.PrintHeader("UPLOAD HISTORY", common.WideWidth)
	stats := printUploads(uploads)

	summary := fmt.Sprintf("SUMMARY: %d uploads shown (%d completed, %d pending, %d discarded)",
		stats.shown, stats.completed, stats.pending, stats.discarded)
	common.PrintFooter(summary, common.WideWidth)

	logger.Info("Upload query completed",
		zap.Int("shown", stats.shown),
		zap.Int("pending", stats.pending))
}
