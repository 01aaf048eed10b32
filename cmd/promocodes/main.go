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
	"promo-sales-go/internal/database"
	"promo-sales-go/internal/models"
	"promo-sales-go/internal/promocode"
	"promo-sales-go/internal/store"

	"go.uber.org/zap"
)

type codeStats struct {
	totalCodes int
	registered int
	totalSales int64
}

// owners maps promo code ids to the email of the user holding them
func owners(users []common.UserInfo) map[int64]string {
	out := make(map[int64]string)
	for _, u := range users {
		if u.PromoCodeId != nil {
			out[*u.PromoCodeId] = u.Email
		}
	}
	return out
}

func printCode(pc models.PromoCode, owner string, isLast bool) {
	if owner == "" {
		owner = "-"
	}
	fmt.Printf("%s %-24s %12d  %-12s %s\n",
		common.BoxPrefix(isLast),
		pc.Code,
		pc.TotalSales,
		pc.Status,
		owner)
}

func listCodes(ctx context.Context, dbService *database.Service, logger *zap.Logger) codeStats {
	codes, err := dbService.GetPromoCodes(ctx)
	if err != nil {
		logger.Fatal("Failed to get promo codes", zap.Error(err))
	}

	users, err := common.InitializeUsers(ctx, dbService, "", logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}
	byCode := owners(users)

	common.PrintHeader("PROMO CODE REPORT", common.DefaultWidth)
	fmt.Printf("   %-24s %12s  %-12s %s\n", "CODE", "TOTAL SALES", "STATUS", "OWNER")

	stats := codeStats{}
	for i, pc := range codes {
		printCode(pc, byCode[pc.Id], i == len(codes)-1)
		stats.totalCodes++
		stats.totalSales += pc.TotalSales
		if pc.Status == models.PromoCodeRegistered {
			stats.registered++
		}
	}

	return stats
}

func printSummary(summary *models.PromoCodeSummary) {
	common.PrintBoxTitle(fmt.Sprintf("Promo code: %s (%s)", summary.PromoCode.Code, summary.PromoCode.Status), 78)
	common.PrintBoxLine("Total sales: %d", summary.PromoCode.TotalSales)
	common.PrintBoxLine("Products:    %d", len(summary.Products))
	for i, p := range summary.Products {
		fmt.Printf("%s %-40s %10d\n", common.BoxPrefix(i == len(summary.Products)-1), common.Truncate(p.ProductName, 40), p.Quantity)
	}
}

func addCode(ctx context.Context, dbService *database.Service, raw string, logger *zap.Logger) {
	code := promocode.Normalize(raw)
	if code == "" {
		logger.Fatal("Promo code is empty after normalization", zap.String("input", raw))
	}

	pc, err := dbService.CreatePromoCode(ctx, code, models.PromoCodeUnregistered)
	if errors.Is(err, store.ErrPromoCodeExists) {
		logger.Fatal("Promo code already exists", zap.String("code", code))
	}
	if err != nil {
		logger.Fatal("Failed to create promo code", zap.Error(err))
	}

	fmt.Printf("✓ Created promo code %s (id %d)\n", pc.Code, pc.Id)
}

func verifyTotals(ctx context.Context, dbService *database.Service, logger *zap.Logger) {
	mismatches, err := dbService.VerifyTotals(ctx)
	if err != nil {
		logger.Fatal("Failed to verify totals", zap.Error(err))
	}

	if len(mismatches) == 0 {
		fmt.Println("✓ All promo code totals match their sales")
		return
	}

	common.PrintHeader("TOTAL MISMATCHES", common.DefaultWidth)
	for i, m := range mismatches {
		fmt.Printf("%s %-24s stored: %d, calculated: %d\n",
			common.BoxPrefix(i == len(mismatches)-1), m.Code, m.Stored, m.Calculated)
	}
	common.PrintFooter(fmt.Sprintf("%d mismatches found, run with -recompute to repair", len(mismatches)), common.DefaultWidth)
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	codeFlag := flag.String("code", "", "Show sales by product for one promo code")
	emailFlag := flag.String("email", "", "Show sales for the promo code a user holds")
	addFlag := flag.String("add", "", "Create an unregistered promo code")
	verifyFlag := flag.Bool("verify", false, "Compare stored totals with the sum of sales")
	recomputeFlag := flag.Bool("recompute", false, "Recompute every promo code total from sales")
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

	reports := api.NewSalesService(dbService)

	switch {
	case *addFlag != "":
		addCode(ctx, dbService, *addFlag, logger)

	case *verifyFlag:
		verifyTotals(ctx, dbService, logger)

	case *recomputeFlag:
		changed, err := dbService.RecomputeTotals(ctx)
		if err != nil {
			logger.Fatal("Failed to recompute totals", zap.Error(err))
		}
		fmt.Printf("✓ Recomputed promo code totals, %d changed\n", changed)

	case *codeFlag != "":
		summary, err := reports.GetPromoCodeSummary(ctx, *codeFlag)
		if err != nil {
			logger.Fatal("Failed to get promo code", zap.String("code", *codeFlag), zap.Error(err))
		}
		printSummary(summary)

	case *emailFlag != "":
		users, err := common.InitializeUsers(ctx, dbService, *emailFlag, logger)
		if err != nil {
			logger.Fatal("Failed to initialize users", zap.Error(err))
		}
		summary, err := reports.GetUserSummary(ctx, users[0].Id)
		if err != nil {
			logger.Fatal("Failed to get user sales", zap.String("email", *emailFlag), zap.Error(err))
		}
		fmt.Printf("\nUser: %s (%s)\n", users[0].Name, users[0].Email)
		printSummary(summary)

	default:
		stats := listCodes(ctx, dbService, logger)
		summary := fmt.Sprintf("SUMMARY: %d promo codes (%d registered), %d units sold",
			stats.totalCodes, stats.registered, stats.totalSales)
		common.PrintFooter(summary, common.DefaultWidth)

		logger.Info("Promo code query completed",
			zap.Int("codes", stats.totalCodes),
			zap.Int("registered", stats.registered),
			zap.Int64("total_sales", stats.totalSales))
	}
}
