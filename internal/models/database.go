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

// DateLayout is the storage format of calendar dates (sale_date, periods)
const DateLayout = "2006-01-02"

type PromoCodeStatus string

const (
	PromoCodeUnregistered PromoCodeStatus = "unregistered"
	PromoCodeRegistered   PromoCodeStatus = "registered"
)

type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadCompleted UploadStatus = "completed"
	UploadDiscarded UploadStatus = "discarded"
)

func UploadStatusFrom(s string) UploadStatus {
	switch s {
	case "completed":
		return UploadCompleted
	case "discarded":
		return UploadDiscarded
	}
	return UploadPending
}

// User represents an account that may claim a promo code
type User struct {
	Id          string    `db:"id"`
	Name        string    `db:"name"`
	Email       string    `db:"email"`
	PromoCodeId *int64    `db:"promo_code_id"`
	IsAdmin     bool      `db:"is_admin"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// PromoCode is the unit sales are attributed to.
// TotalSales is derived: it always equals the sum of quantity over the code's sales.
type PromoCode struct {
	Id         int64           `db:"id"`
	Code       string          `db:"code"`
	Status     PromoCodeStatus `db:"status"`
	TotalSales int64           `db:"total_sales"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

// Sale is one (promo code, product, date) quantity record
type Sale struct {
	Id            int64     `db:"id"`
	PromoCodeId   int64     `db:"promo_code_id"`
	ProductName   string    `db:"product_name"`
	SaleDate      time.Time `db:"sale_date"`
	Quantity      int64     `db:"quantity"`
	UploadBatchId *int64    `db:"upload_batch_id"`
	CreatedAt     time.Time `db:"created_at"`
}

// UploadBatch is the ledger entry written for every ingestion attempt
type UploadBatch struct {
	Id            int64        `db:"id"`
	UploaderId    *string      `db:"uploader_id"`
	FileName      string       `db:"file_name"`
	PeriodFrom    time.Time    `db:"period_from"`
	PeriodTo      time.Time    `db:"period_to"`
	RowsProcessed int          `db:"rows_processed"`
	RowsCommitted int          `db:"rows_committed"`
	Status        UploadStatus `db:"status"`
	Message       string       `db:"message"`
	ErrorSummary  string       `db:"error_summary"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

// TotalMismatch reports a promo code whose stored total differs from its sales
type TotalMismatch struct {
	PromoCodeId int64
	Code        string
	Stored      int64
	Calculated  int64
}
