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
	"strings"
)

const unmapped = -1

// ColumnMapping holds the zero-based column index of each role, or -1.
type ColumnMapping struct {
	PromoCode   int
	ProductName int
	SaleDate    int
	Quantity    int
}

type columnRole struct {
	name     string
	keywords []string
	target   func(m *ColumnMapping) *int
}

// Roles are matched in this order. The date role goes before quantity so a
// header like "Дата продажи" is not taken by the "продаж" keyword.
var columnRoles = []columnRole{
	{"promo_code", []string{"промокод", "promo"}, func(m *ColumnMapping) *int { return &m.PromoCode }},
	{"product_name", []string{"продукт", "товар", "product"}, func(m *ColumnMapping) *int { return &m.ProductName }},
	{"sale_date", []string{"дата", "date"}, func(m *ColumnMapping) *int { return &m.SaleDate }},
	{"quantity", []string{"количество", "quantity", "продаж"}, func(m *ColumnMapping) *int { return &m.Quantity }},
}

// MapColumns assigns header columns to roles by keyword. The first matching
// column wins and a column is never assigned to two roles.
func MapColumns(header []string) ColumnMapping {
	m := ColumnMapping{PromoCode: unmapped, ProductName: unmapped, SaleDate: unmapped, Quantity: unmapped}

	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	claimed := make(map[int]bool, len(header))
	for _, role := range columnRoles {
		for i, h := range normalized {
			if claimed[i] || !containsAny(h, role.keywords) {
				continue
			}
			*role.target(&m) = i
			claimed[i] = true
			break
		}
	}
	return m
}

// Missing lists the required roles with no column.
func (m ColumnMapping) Missing() []string {
	var missing []string
	if m.PromoCode == unmapped {
		missing = append(missing, "promo_code")
	}
	if m.ProductName == unmapped {
		missing = append(missing, "product_name")
	}
	return missing
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
