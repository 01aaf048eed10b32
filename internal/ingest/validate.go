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
	"time"

	"promo-sales-go/internal/models"
	"promo-sales-go/internal/promocode"
)

// Rejection reasons shown to the uploader.
const (
	ReasonMissingFields   = "Отсутствует промокод или название продукта"
	ReasonInvalidDate     = "Некорректная дата: "
	ReasonInvalidQuantity = "Некорректное количество: "
)

// headerRows is the number of spreadsheet rows above the first data row.
const headerRows = 1

// ProductLookup translates numeric product codes to canonical names.
type ProductLookup interface {
	Lookup(code string) (string, bool)
}

// ParsedBatch is the outcome of the read-only validation pass.
type ParsedBatch struct {
	Rows       []models.ParsedRow
	Rejections []models.Rejection
}

// Valid reports whether the batch may be written. One rejected row
// invalidates the whole file.
func (b ParsedBatch) Valid() bool {
	return len(b.Rejections) == 0
}

// Processed is the number of non-blank data rows seen.
func (b ParsedBatch) Processed() int {
	return len(b.Rows) + len(b.Rejections)
}

// Validate parses data rows (header excluded) without touching storage.
// Fully blank rows are skipped. Missing date and quantity columns default
// to today and 1.
func Validate(mapping ColumnMapping, rows [][]string, products ProductLookup, today time.Time) ParsedBatch {
	var batch ParsedBatch
	today = calendarDate(today)

	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		rowNumber := i + 1 + headerRows

		rawPromo := cell(row, mapping.PromoCode)
		rawProduct := cell(row, mapping.ProductName)
		reject := func(reason string) {
			batch.Rejections = append(batch.Rejections, models.Rejection{
				Row:       rowNumber,
				Reason:    reason,
				PromoCode: rawPromo,
				Product:   rawProduct,
			})
		}

		product := canonicalProduct(rawProduct, products)
		if promocode.Normalize(rawPromo) == "" || product == "" {
			reject(ReasonMissingFields)
			continue
		}

		saleDate := today
		if rawDate := cell(row, mapping.SaleDate); rawDate != "" {
			parsed, err := ParseSaleDate(rawDate)
			if err != nil {
				reject(ReasonInvalidDate + rawDate)
				continue
			}
			saleDate = parsed
		}

		quantity := int64(1)
		if rawQuantity := cell(row, mapping.Quantity); rawQuantity != "" {
			parsed, err := ParseQuantity(rawQuantity)
			if err != nil {
				reject(ReasonInvalidQuantity + rawQuantity)
				continue
			}
			quantity = parsed
		}

		batch.Rows = append(batch.Rows, models.ParsedRow{
			Row:         rowNumber,
			PromoCode:   rawPromo,
			ProductName: product,
			SaleDate:    saleDate,
			Quantity:    quantity,
		})
	}

	return batch
}

// CountDataRows returns the number of non-blank data rows.
func CountDataRows(rows [][]string) int {
	n := 0
	for _, row := range rows {
		if !isBlankRow(row) {
			n++
		}
	}
	return n
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// canonicalProduct collapses inner whitespace and swaps a known numeric
// product code for its catalog name.
func canonicalProduct(raw string, products ProductLookup) string {
	name := strings.Join(strings.Fields(raw), " ")
	if name == "" || !isDigits(name) || products == nil {
		return name
	}
	if canonical, ok := products.Lookup(name); ok {
		return canonical
	}
	return name
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
