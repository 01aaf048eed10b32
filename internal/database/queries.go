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

package database

const (
	// User queries
	queryGetActiveUsers = `
		SELECT id, name, email, promo_code_id, is_admin, created_at, updated_at
		FROM users
		WHERE active = 1
		ORDER BY created_at`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, name, email, promo_code_id, is_admin) VALUES (?, ?, ?, ?, ?)`

	queryGetUserById = `
		SELECT id, name, email, promo_code_id, is_admin, created_at, updated_at
		FROM users
		WHERE id = ? AND active = 1`

	queryGetUserByEmail = `
		SELECT id, name, email, promo_code_id, is_admin, created_at, updated_at
		FROM users
		WHERE email = ? AND active = 1`

	queryGetUserByPromoCode = `
		SELECT id
		FROM users
		WHERE promo_code_id = ?`

	// Promo code queries
	queryGetPromoCodes = `
		SELECT id, code, status, total_sales, created_at, updated_at
		FROM promo_codes
		ORDER BY code`

	queryGetPromoCodeById = `
		SELECT id, code, status, total_sales, created_at, updated_at
		FROM promo_codes
		WHERE id = ?`

	queryGetPromoCodeByCode = `
		SELECT id, code, status, total_sales, created_at, updated_at
		FROM promo_codes
		WHERE code = ?`

	queryGetPromoCodesBySuffix = `
		SELECT id, code, status, total_sales, created_at, updated_at
		FROM promo_codes
		WHERE code LIKE ?
		ORDER BY id`

	queryInsertPromoCode = `
		INSERT INTO promo_codes (code, status) VALUES (?, ?)`

	queryInsertPromoCodeIfMissing = `
		INSERT OR IGNORE INTO promo_codes (code, status) VALUES (?, ?)`

	queryRegisterPromoCode = `
		UPDATE promo_codes
		SET status = 'registered', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	// Sale queries
	queryGetSaleKeysInPeriod = `
		SELECT promo_code_id, product_name, sale_date
		FROM sales
		WHERE sale_date BETWEEN ? AND ?`

	queryDeleteSalesInPeriod = `
		DELETE FROM sales
		WHERE sale_date BETWEEN ? AND ?`

	queryGetSaleByKey = `
		SELECT id, promo_code_id, product_name, sale_date, quantity, upload_batch_id, created_at
		FROM sales
		WHERE promo_code_id = ? AND product_name = ? AND sale_date = ?`

	queryInsertSale = `
		INSERT INTO sales (promo_code_id, product_name, sale_date, quantity, upload_batch_id)
		VALUES (?, ?, ?, ?, ?)`

	queryUpdateSaleQuantity = `
		UPDATE sales
		SET quantity = ?, upload_batch_id = ?
		WHERE id = ?`

	queryGetSalesByPromoCode = `
		SELECT id, promo_code_id, product_name, sale_date, quantity, upload_batch_id, created_at
		FROM sales
		WHERE promo_code_id = ?
		ORDER BY sale_date, product_name`

	queryGetSalesInPeriod = `
		SELECT id, promo_code_id, product_name, sale_date, quantity, upload_batch_id, created_at
		FROM sales
		WHERE sale_date BETWEEN ? AND ?
		ORDER BY sale_date, promo_code_id, product_name`

	queryDeleteSalesByUpload = `
		DELETE FROM sales
		WHERE upload_batch_id = ?`

	// Aggregate queries
	queryRecomputeTotals = `
		UPDATE promo_codes
		SET total_sales = (
				SELECT COALESCE(SUM(quantity), 0) FROM sales WHERE sales.promo_code_id = promo_codes.id
			),
			updated_at = CURRENT_TIMESTAMP
		WHERE total_sales != (
			SELECT COALESCE(SUM(quantity), 0) FROM sales WHERE sales.promo_code_id = promo_codes.id
		)`

	queryVerifyTotals = `
		SELECT p.id, p.code, p.total_sales, COALESCE(SUM(s.quantity), 0) AS calculated
		FROM promo_codes p
		LEFT JOIN sales s ON s.promo_code_id = p.id
		GROUP BY p.id, p.code, p.total_sales
		HAVING p.total_sales != COALESCE(SUM(s.quantity), 0)
		ORDER BY p.id`

	// Upload ledger queries
	queryInsertUpload = `
		INSERT INTO upload_batches (uploader_id, file_name, period_from, period_to, status)
		VALUES (?, ?, ?, ?, 'pending')`

	queryDeleteUpload = `
		DELETE FROM upload_batches
		WHERE id = ? AND status = 'pending'`

	queryFinalizeUpload = `
		UPDATE upload_batches
		SET status = 'completed', rows_processed = ?, rows_committed = ?, message = ?,
			error_summary = '', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'`

	queryFailUpload = `
		UPDATE upload_batches
		SET error_summary = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'`

	queryDiscardCompletedUpload = `
		UPDATE upload_batches
		SET status = 'discarded', rows_committed = 0, message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'completed'`

	queryGetUpload = `
		SELECT id, uploader_id, file_name, period_from, period_to, rows_processed, rows_committed,
		       status, message, error_summary, created_at, updated_at
		FROM upload_batches
		WHERE id = ?`

	queryListUploads = `
		SELECT id, uploader_id, file_name, period_from, period_to, rows_processed, rows_committed,
		       status, message, error_summary, created_at, updated_at
		FROM upload_batches
		ORDER BY id DESC
		LIMIT ? OFFSET ?`
)
