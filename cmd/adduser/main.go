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
	"regexp"
	"strings"

	"promo-sales-go/internal/common"
	"promo-sales-go/internal/config"
	"promo-sales-go/internal/models"
	"promo-sales-go/internal/promocode"
	"promo-sales-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len([]rune(name)) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

// resolvePromoCode matches the code a user typed against known promo codes.
// Registration never creates codes; a typo close enough to one existing code
// is accepted as that code.
func resolvePromoCode(ctx context.Context, lookup store.PromoCodeLookup, raw string) (*models.PromoCode, error) {
	res, err := promocode.NewResolver(lookup).Resolve(ctx, raw, promocode.ModeRegistration)
	if err != nil {
		return nil, err
	}
	if res.Kind == promocode.KindNone {
		return nil, fmt.Errorf("%w: %s", store.ErrPromoCodeNotFound, promocode.Normalize(raw))
	}

	if res.Kind == promocode.KindFuzzy {
		zap.L().Warn("Promo code matched approximately",
			zap.String("input", raw),
			zap.String("code", res.PromoCode.Code))
	}
	return res.PromoCode, nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	nameFlag := flag.String("name", "", "User's full name (required)")
	emailFlag := flag.String("email", "", "User's email address (required)")
	promoFlag := flag.String("promo", "", "Promo code to claim (optional)")
	adminFlag := flag.Bool("admin", false, "Allow the user to upload sales files")
	flag.Parse()

	if *nameFlag == "" || *emailFlag == "" {
		zap.L().Fatal("Both flags are required: --name and --email")
	}

	if err := validateName(*nameFlag); err != nil {
		zap.L().Fatal("Invalid name", zap.Error(err))
	}

	if err := validateEmail(*emailFlag); err != nil {
		zap.L().Fatal("Invalid email", zap.Error(err))
	}

	zap.L().Info("Starting user creation process",
		zap.String("name", *nameFlag),
		zap.String("email", *emailFlag),
		zap.String("promo_code", *promoFlag))

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	params := store.CreateUserParams{
		Id:      uuid.New().String(),
		Name:    strings.TrimSpace(*nameFlag),
		Email:   strings.ToLower(strings.TrimSpace(*emailFlag)),
		IsAdmin: *adminFlag,
	}

	var claimed *models.PromoCode
	if strings.TrimSpace(*promoFlag) != "" {
		claimed, err = resolvePromoCode(ctx, dbService, *promoFlag)
		if err != nil {
			zap.L().Fatal("Unable to resolve promo code", zap.String("promo_code", *promoFlag), zap.Error(err))
		}
		params.PromoCodeId = &claimed.Id
	}

	user, err := dbService.CreateUser(ctx, params)
	switch {
	case errors.Is(err, store.ErrUserExists):
		zap.L().Fatal("User already exists with this email", zap.String("email", params.Email))
	case errors.Is(err, store.ErrPromoCodeClaimed):
		zap.L().Fatal("Promo code is already claimed by another user", zap.String("code", claimed.Code))
	case err != nil:
		zap.L().Fatal("Failed to create user", zap.Error(err))
	}

	common.PrintHeader("USER CREATED", common.DefaultWidth)
	fmt.Printf("ID:         %s\n", user.Id)
	fmt.Printf("Name:       %s\n", user.Name)
	fmt.Printf("Email:      %s\n", user.Email)
	fmt.Printf("Admin:      %t\n", user.IsAdmin)
	if claimed != nil {
		fmt.Printf("Promo code: %s (sales to date: %d)\n", claimed.Code, claimed.TotalSales)
	} else {
		fmt.Println("Promo code: none")
	}
	common.PrintFooter("User created successfully", common.DefaultWidth)

	zap.L().Info("User created successfully", zap.String("id", user.Id))
}
