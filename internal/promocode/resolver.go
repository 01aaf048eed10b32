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

package promocode

import (
	"context"
	"errors"
	"fmt"

	"promo-sales-go/internal/models"
	"promo-sales-go/internal/store"

	"go.uber.org/zap"
)

var ErrEmptyCode = errors.New("promo code is empty after normalization")

type Kind int

const (
	KindNone Kind = iota
	KindExact
	KindFuzzy
	// KindCreated is only produced by Resolver in ModeIngest.
	KindCreated
)

func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindFuzzy:
		return "fuzzy"
	case KindCreated:
		return "created"
	default:
		return "none"
	}
}

// Mode selects what happens when no stored code matches.
type Mode int

const (
	// ModeIngest creates an unregistered code.
	ModeIngest Mode = iota
	// ModeRegistration reports not found and lets the caller decide.
	ModeRegistration
)

type Resolution struct {
	Kind      Kind
	PromoCode *models.PromoCode
}

// Resolve matches a raw code against candidates without touching storage.
// An exact match on the normalized code wins. Otherwise the single candidate
// sharing both the three digit suffix and the hyphen shape is a fuzzy match.
// Ambiguity resolves to KindNone.
func Resolve(raw string, candidates []models.PromoCode) Resolution {
	code := Normalize(raw)
	if code == "" {
		return Resolution{Kind: KindNone}
	}

	for i := range candidates {
		if candidates[i].Code == code {
			return Resolution{Kind: KindExact, PromoCode: &candidates[i]}
		}
	}

	suffix := Suffix(code)
	if suffix == "" {
		return Resolution{Kind: KindNone}
	}

	var match *models.PromoCode
	for i := range candidates {
		c := &candidates[i]
		if Suffix(c.Code) != suffix || HasHyphen(c.Code) != HasHyphen(code) {
			continue
		}
		if match != nil {
			return Resolution{Kind: KindNone}
		}
		match = c
	}

	if match == nil {
		return Resolution{Kind: KindNone}
	}
	return Resolution{Kind: KindFuzzy, PromoCode: match}
}

// Resolver resolves raw codes against a store. Results are cached by
// normalized code, so one Resolver should not outlive its transaction.
type Resolver struct {
	lookup store.PromoCodeLookup
	cache  map[string]Resolution
}

func NewResolver(lookup store.PromoCodeLookup) *Resolver {
	return &Resolver{
		lookup: lookup,
		cache:  make(map[string]Resolution),
	}
}

func (r *Resolver) Resolve(ctx context.Context, raw string, mode Mode) (Resolution, error) {
	code := Normalize(raw)
	if code == "" {
		return Resolution{}, fmt.Errorf("%w: %q", ErrEmptyCode, raw)
	}

	if res, ok := r.cache[code]; ok {
		return res, nil
	}

	existing, err := r.lookup.FindPromoCodeByCode(ctx, code)
	if err != nil {
		return Resolution{}, fmt.Errorf("exact lookup for %s: %w", code, err)
	}
	if existing != nil {
		res := Resolution{Kind: KindExact, PromoCode: existing}
		r.cache[code] = res
		return res, nil
	}

	if suffix := Suffix(code); suffix != "" {
		candidates, err := r.lookup.FindPromoCodesBySuffix(ctx, suffix)
		if err != nil {
			return Resolution{}, fmt.Errorf("suffix lookup for %s: %w", code, err)
		}

		res := Resolve(code, candidates)
		if res.Kind != KindNone {
			zap.L().Info("Promo code resolved by suffix",
				zap.String("raw", raw),
				zap.String("normalized", code),
				zap.String("matched", res.PromoCode.Code),
				zap.Int("candidates", len(candidates)))
			r.cache[code] = res
			return res, nil
		}

		if len(candidates) > 1 {
			zap.L().Debug("Ambiguous promo code suffix",
				zap.String("normalized", code),
				zap.Int("candidates", len(candidates)))
		}
	}

	if mode == ModeRegistration {
		return Resolution{Kind: KindNone}, nil
	}

	created, err := r.lookup.CreatePromoCode(ctx, code, models.PromoCodeUnregistered)
	if err != nil {
		return Resolution{}, fmt.Errorf("create promo code %s: %w", code, err)
	}

	zap.L().Info("Promo code created from upload", zap.String("code", created.Code), zap.Int64("id", created.Id))

	res := Resolution{Kind: KindCreated, PromoCode: created}
	r.cache[code] = res
	return res, nil
}
