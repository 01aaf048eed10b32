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

package models

import (
	"time"
)

// Rejection describes a spreadsheet row that failed validation
type Rejection struct {
	Row       int    `json:"row"` // 1-based, header is row 1
	Reason    string `json:"reason"`
	PromoCode string `json:"promo_code"`
	Product   string `json:"product"`
}

// IngestResult represents the outcome of one sales upload
type IngestResult struct {
	Success       bool        `json:"success"`
	RowsProcessed int         `json:"rows_processed"`
	RowsAdded     int         `json:"rows_added"`
	RowsUpdated   int         `json:"rows_updated"`
	RowsRejected  int         `json:"rows_rejected"`
	Rejections    []Rejection `json:"rejections,omitempty"`
	UploadBatchId *int64      `json:"upload_batch_id,omitempty"`
	Message       string      `json:"message,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// ParsedRow is a validated spreadsheet row ready for the write phase
type ParsedRow struct {
	Row         int
	PromoCode   string
	ProductName string
	SaleDate    time.Time
	Quantity    int64
}

// Period is an inclusive calendar date range
type Period struct {
	From time.Time
	To   time.Time
}

func (p Period) FromString() string {
	return p.From.Format(DateLayout)
}

func (p Period) ToString() string {
	return p.To.Format(DateLayout)
}

func (p Period) String() string {
	return p.FromString() + ".." + p.ToString()
}

// Contains reports whether the calendar date of t falls within the period
func (p Period) Contains(t time.Time) bool {
	d := t.Format(DateLayout)
	return d >= p.FromString() && d <= p.ToString()
}

// ProductTotal is the quantity sold of one product under a promo code
type ProductTotal struct {
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
}

// PromoCodeSummary is a promo code with its sales broken down by product
type PromoCodeSummary struct {
	PromoCode PromoCode      `json:"promo_code"`
	Products  []ProductTotal `json:"products"`
	Sales     []Sale         `json:"sales"`
}
