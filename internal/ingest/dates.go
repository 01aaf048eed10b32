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
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2.1.2006",
	"02.01.06",
	"02/01/2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"02.01.2006 15:04:05",
	time.RFC3339,
}

// Excel serial day numbers accepted as dates: 2000-01-01 .. 2099-12-31.
// Smaller numbers are far more likely a quantity or a bare year typed into
// the date column than a real sale date.
const (
	minExcelSerial = 36526
	maxExcelSerial = 73050
)

// ParseSaleDate parses a date cell into a calendar date at UTC midnight.
func ParseSaleDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return calendarDate(t), nil
		}
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial >= minExcelSerial && serial <= maxExcelSerial {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return calendarDate(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// thousandsComma matches a comma followed by exactly three digits, as in
// "1,000", which cannot be told apart from a decimal comma.
var thousandsComma = regexp.MustCompile(`,\d{3}(\D|$)`)

// ParseQuantity accepts a non-negative whole number, tolerating "5.0",
// "5,00" and thousands separators written as spaces. "1,000" is rejected
// as ambiguous rather than read as 1.
func ParseQuantity(raw string) (int64, error) {
	value := strings.TrimSpace(raw)
	if thousandsComma.MatchString(value) {
		return 0, fmt.Errorf("ambiguous thousands separator: %q", raw)
	}
	value = strings.NewReplacer(" ", "", "\u00a0", "", ",", ".").Replace(value)

	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative quantity: %q", raw)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("fractional quantity: %q", raw)
	}
	if d.GreaterThan(decimal.NewFromInt(1 << 53)) {
		return 0, fmt.Errorf("quantity out of range: %q", raw)
	}
	return d.IntPart(), nil
}
