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
	"os"
	"path/filepath"
	"time"

	"promo-sales-go/internal/common"
	"promo-sales-go/internal/config"
	"promo-sales-go/internal/ingest"
	"promo-sales-go/internal/models"
	"promo-sales-go/internal/sheet"

	"go.uber.org/zap"
)

type uploadFlags struct {
	file     string
	from     string
	to       string
	uploader string
	admin    bool
}

func parseDate(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("-%s is required", name)
	}
	d, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("-%s must be YYYY-MM-DD: %w", name, err)
	}
	return d, nil
}

// buildRequest decodes the file and works out who is uploading. An uploader
// given by email must be an admin unless -admin is set by the operator.
func buildRequest(ctx context.Context, services *common.Services, f uploadFlags) (ingest.Request, error) {
	from, err := parseDate("from", f.from)
	if err != nil {
		return ingest.Request{}, err
	}
	to, err := parseDate("to", f.to)
	if err != nil {
		return ingest.Request{}, err
	}

	rows, err := sheet.DecodeFile(f.file)
	if err != nil {
		return ingest.Request{}, err
	}

	req := ingest.Request{
		Rows:       rows,
		PeriodFrom: from,
		PeriodTo:   to,
		FileName:   filepath.Base(f.file),
		Authorized: f.admin,
	}

	if f.uploader != "" {
		user, err := services.DbService.GetUserByEmail(ctx, f.uploader)
		if err != nil {
			return ingest.Request{}, fmt.Errorf("uploader %s: %w", f.uploader, err)
		}
		req.UploaderId = &user.Id
		req.Authorized = req.Authorized || user.IsAdmin
	}

	return req, nil
}

func printResult(result *models.IngestResult) {
	title := "SALES UPLOAD COMMITTED"
	if !result.Success {
		title = "SALES UPLOAD REJECTED"
	}
	common.PrintHeader(title, common.DefaultWidth)

	fmt.Printf("Rows processed: %d\n", result.RowsProcessed)
	fmt.Printf("Rows added:     %d\n", result.RowsAdded)
	fmt.Printf("Rows updated:   %d\n", result.RowsUpdated)
	fmt.Printf("Rows rejected:  %d\n", result.RowsRejected)
	if result.UploadBatchId != nil {
		fmt.Printf("Upload batch:   #%d\n", *result.UploadBatchId)
	}

	if len(result.Rejections) > 0 {
		common.PrintBoxTitle("Rejected rows", 78)
		for i, r := range result.Rejections {
			isLast := i == len(result.Rejections)-1
			fmt.Printf("%s row %-5d %s\n", common.BoxPrefix(isLast), r.Row, r.Reason)
			fmt.Printf("%s           promo: %q  product: %q\n",
				common.BoxDetailPrefix(isLast), common.Truncate(r.PromoCode, 24), common.Truncate(r.Product, 32))
		}
	}

	message := result.Message
	if result.Error != "" {
		message += "\n" + result.Error
	}
	common.PrintFooter(message, common.DefaultWidth)
}

func run() int {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	var f uploadFlags
	flag.StringVar(&f.file, "file", "", "Sales spreadsheet (.csv, .xlsx, .xls) (required)")
	flag.StringVar(&f.from, "from", "", "First day of the sales period, YYYY-MM-DD (required)")
	flag.StringVar(&f.to, "to", "", "Last day of the sales period, YYYY-MM-DD (required)")
	flag.StringVar(&f.uploader, "uploader", "", "Email of the admin user uploading the file")
	flag.BoolVar(&f.admin, "admin", false, "Authorize the upload without an admin user")
	flag.Parse()

	if f.file == "" {
		logger.Error("The -file flag is required")
		flag.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load config", zap.Error(err))
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Ingest.Timeout)
	defer cancel()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize services", zap.Error(err))
		return 1
	}
	defer services.Close()

	req, err := buildRequest(ctx, services, f)
	if err != nil {
		logger.Error("Unable to prepare upload", zap.String("file", f.file), zap.Error(err))
		return 1
	}

	logger.Info("Starting sales upload",
		zap.String("file", req.FileName),
		zap.String("from", f.from),
		zap.String("to", f.to),
		zap.Int("rows", len(req.Rows)))

	result, err := services.Engine.Ingest(ctx, req)
	if result != nil {
		printResult(result)
	}

	// push with a fresh context so a timed-out upload still reports
	pushCtx, pushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer pushCancel()
	if pushErr := services.Metrics.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); pushErr != nil {
		logger.Warn("Failed to push metrics", zap.String("url", cfg.Metrics.PushgatewayURL), zap.Error(pushErr))
	}

	switch {
	case errors.Is(err, ingest.ErrUnauthorized):
		logger.Error("Upload refused: uploader is not an admin", zap.String("uploader", f.uploader))
		return 1
	case err != nil:
		logger.Error("Sales upload failed", zap.Error(err))
		return 1
	case !result.Success:
		return 1
	}

	return 0
}

func main() {
	os.Exit(run())
}
