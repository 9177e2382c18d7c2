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
package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// AnnualSeries maps a fiscal year to the value reported for that year. A
// value of NaN means the provider listed the year but reported nothing.
type AnnualSeries map[int]float64

// ExtractAnnual builds an AnnualSeries from provider values. Entries whose
// timestamp cannot be interpreted are logged and skipped. If a year appears
// more than once the last entry wins.
func ExtractAnnual(values []PeriodValue, ticker string) AnnualSeries {
	series := make(AnnualSeries, len(values))

	for _, pv := range values {
		period, err := ParsePeriod(pv.Timestamp)
		if err != nil {
			log.Error().Err(err).Str("Ticker", ticker).Str("Timestamp", pv.Timestamp).Msg("skipping annual value with unparseable timestamp")
			continue
		}

		series[period.Year()] = pv.Value
	}

	return series
}

// Reported returns the finite value reported for year
func (series AnnualSeries) Reported(year int) (float64, bool) {
	val, ok := series[year]
	if !ok || !IsFinite(val) {
		return 0, false
	}

	return val, true
}

// Latest returns the most recent fiscal year with a finite value
func (series AnnualSeries) Latest() (int, float64, bool) {
	found := false
	latestYear := 0
	for year, val := range series {
		if !IsFinite(val) {
			continue
		}

		if !found || year > latestYear {
			latestYear = year
			found = true
		}
	}

	if !found {
		return 0, 0, false
	}

	return latestYear, series[latestYear], true
}

// Quarter is one quarterly observation keyed by the end of its period
type Quarter struct {
	PeriodEnd time.Time
	Value     float64
}

// QuarterlySeries holds quarterly observations in the order the provider
// returned them.
type QuarterlySeries []Quarter

// NewQuarterlySeries interprets provider values as quarterly observations.
// Unlike annual extraction a single bad timestamp invalidates the series:
// the set of most recent quarters cannot be determined without it.
func NewQuarterlySeries(values []PeriodValue) (QuarterlySeries, error) {
	series := make(QuarterlySeries, 0, len(values))
	for _, pv := range values {
		periodEnd, err := ParsePeriod(pv.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("quarterly series: %w", err)
		}

		series = append(series, Quarter{
			PeriodEnd: periodEnd,
			Value:     pv.Value,
		})
	}

	return series, nil
}

// MostRecent returns up to n quarters ordered from newest to oldest. The
// receiver is not modified.
func (series QuarterlySeries) MostRecent(n int) QuarterlySeries {
	sorted := make(QuarterlySeries, len(series))
	copy(sorted, series)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PeriodEnd.After(sorted[j].PeriodEnd)
	})

	if n < len(sorted) {
		sorted = sorted[:n]
	}

	return sorted
}
