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
	"strings"
	"unicode"
)

const suffixLength = 3

// Normalize upper-cases the code and strips everything except letters,
// digits and single inner hyphens.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	lastHyphen := true // suppresses leading hyphens
	for _, r := range strings.ToUpper(strings.TrimSpace(raw)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case r == '-' || r == '–' || r == '—':
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

// Suffix returns the trailing three ASCII digits of a normalized code,
// or "" when the code does not end in three digits.
func Suffix(code string) string {
	if len(code) < suffixLength {
		return ""
	}
	tail := code[len(code)-suffixLength:]
	for i := 0; i < len(tail); i++ {
		if tail[i] < '0' || tail[i] > '9' {
			return ""
		}
	}
	return tail
}

// HasHyphen reports the "hyphen-present" shape of a code.
func HasHyphen(code string) bool {
	return strings.Contains(code, "-")
}
