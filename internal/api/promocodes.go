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

package api

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"promo-sales-go/internal/models"
	"promo-sales-go/internal/promocode"
	"promo-sales-go/internal/store"

	"go.uber.org/zap"
)

// ErrNoPromoCode is returned for a user who has not claimed a promo code
var ErrNoPromoCode = errors.New("user has no promo code")

// GetPromoCodeSummary returns a promo code's sales grouped by product.
// The code is matched exactly after normalization.
func (s *SalesService) GetPromoCodeSummary(ctx context.Context, code string) (*models.PromoCodeSummary, error) {
	normalized := promocode.Normalize(code)
	if normalized == "" {
		return nil, fmt.Errorf("promo code is required")
	}

	pc, err := s.db.FindPromoCodeByCode(ctx, normalized)
	if err != nil {
		zap.L().Error("Failed to look up promo code", zap.String("code", normalized), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve promo code")
	}
	if pc == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrPromoCodeNotFound, normalized)
	}

	return s.summarize(ctx, pc)
}

// GetUserSummary returns the sales of the promo code a user has claimed
func (s *SalesService) GetUserSummary(ctx context.Context, userId string) (*models.PromoCodeSummary, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	user, err := s.db.GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}
	if user.PromoCodeId == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPromoCode, user.Email)
	}

	pc, err := s.db.GetPromoCodeById(ctx, *user.PromoCodeId)
	if err != nil {
		return nil, err
	}

	return s.summarize(ctx, pc)
}

func (s *SalesService) summarize(ctx context.Context, pc *models.PromoCode) (*models.PromoCodeSummary, error) {
	sales, err := s.db.GetSalesByPromoCode(ctx, pc.Id)
	if err != nil {
		zap.L().Error("Failed to get sales",
			zap.Int64("promo_code_id", pc.Id),
			zap.String("code", pc.Code),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve sales")
	}

	byProduct := make(map[string]int64)
	for _, sale := range sales {
		byProduct[sale.ProductName] += sale.Quantity
	}

	products := make([]models.ProductTotal, 0, len(byProduct))
	for name, quantity := range byProduct {
		products = append(products, models.ProductTotal{ProductName: name, Quantity: quantity})
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Quantity != products[j].Quantity {
			return products[i].Quantity > products[j].Quantity
		}
		return products[i].ProductName < products[j].ProductName
	})

	return &models.PromoCodeSummary{
		PromoCode: *pc,
		Products:  products,
		Sales:     sales,
	}, nil
}
