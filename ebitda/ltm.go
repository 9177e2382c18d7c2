// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package ebitda

import "github.com/penny-vault/pvebitda/data"

const QuartersPerYear = 4

// TrailingTwelveMonths sums the four most recent quarters of series. The
// second return is false when fewer than four quarters are available or the
// sum is not a finite number (any unreported quarter poisons the sum).
func TrailingTwelveMonths(series data.QuarterlySeries) (float64, bool) {
	if len(series) < QuartersPerYear {
		return 0, false
	}

	sum := 0.0
	for _, quarter := range series.MostRecent(QuartersPerYear) {
		sum += quarter.Value
	}

	if !data.IsFinite(sum) {
		return 0, false
	}

	return sum, true
}
