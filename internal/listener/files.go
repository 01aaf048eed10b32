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

package listener

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"promo-sales-go/internal/models"

	"go.uber.org/zap"
)

var periodPattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})_(\d{4}-\d{2}-\d{2})`)

// PeriodFromName reads the sales period from a file name such as
// "sales_2025-10-01_2025-10-31.xlsx".
func PeriodFromName(name string) (models.Period, error) {
	m := periodPattern.FindStringSubmatch(name)
	if m == nil {
		return models.Period{}, fmt.Errorf("no YYYY-MM-DD_YYYY-MM-DD period in file name %q", name)
	}

	from, err := time.Parse(models.DateLayout, m[1])
	if err != nil {
		return models.Period{}, fmt.Errorf("invalid period start in %q: %w", name, err)
	}
	to, err := time.Parse(models.DateLayout, m[2])
	if err != nil {
		return models.Period{}, fmt.Errorf("invalid period end in %q: %w", name, err)
	}

	return models.Period{From: from, To: to}, nil
}

// writeReport writes the rejected rows, or the single cause of a file level
// failure, next to the rejected file.
func writeReport(path string, rejections []models.Rejection, cause error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			zap.L().Warn("Failed to close rejection report", zap.String("path", path), zap.Error(err))
		}
	}(f)

	w := csv.NewWriter(f)
	records := [][]string{{"row", "reason", "promo_code", "product"}}
	if cause != nil {
		records = append(records, []string{"", cause.Error(), "", ""})
	}
	for _, r := range rejections {
		records = append(records, []string{strconv.Itoa(r.Row), r.Reason, r.PromoCode, r.Product})
	}

	return w.WriteAll(records)
}
