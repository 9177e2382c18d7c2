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
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnparseablePeriod = errors.New("could not interpret period timestamp")
)

// PeriodValue is a single reported value of a financial line item as it was
// returned by a provider. Timestamp is kept in the provider's own format and
// only interpreted by the series constructors. An unreported value is NaN.
type PeriodValue struct {
	Timestamp string
	Value     float64
}

// periodLayouts are tried in order when interpreting a provider timestamp
var periodLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// ParsePeriod interprets a provider timestamp as a date. Dates and
// date-times in the common layouts are accepted, as are integer unix
// timestamps in seconds or milliseconds.
func ParsePeriod(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrUnparseablePeriod)
	}

	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		// anything past year 5138 in seconds is treated as milliseconds
		if ts > 1e11 {
			return time.UnixMilli(ts).UTC(), nil
		}
		return time.Unix(ts, 0).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseablePeriod, raw)
}

// IsFinite reports whether val is neither NaN nor infinite
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}
