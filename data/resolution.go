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

import "strconv"

type Source string

const (
	SourceCurrentYear Source = "current-year"
	SourceLTM         Source = "ltm"
	SourcePriorYear   Source = "prior-year"
	SourceNone        Source = "none"
)

// Sources lists every resolution source in order of preference
var Sources = []Source{SourceCurrentYear, SourceLTM, SourcePriorYear, SourceNone}

// Resolution is the EBITDA estimate chosen for a single ticker together with
// the branch of the fallback chain that produced it.
type Resolution struct {
	Ticker string
	Source Source

	// FiscalYear is set for annual sources
	FiscalYear int

	// Amount is only meaningful when Source is not SourceNone
	Amount float64

	// Err records a provider failure that left the ticker unresolved
	Err error
}

// Unresolved returns a resolution carrying no value
func Unresolved(ticker string, err error) Resolution {
	return Resolution{
		Ticker: ticker,
		Source: SourceNone,
		Err:    err,
	}
}

// Value returns the resolved EBITDA. The second return is false when no
// finite value is available.
func (res Resolution) Value() (float64, bool) {
	if res.Source == SourceNone || res.Source == "" || !IsFinite(res.Amount) {
		return 0, false
	}

	return res.Amount, true
}

// Present reports whether the resolution carries a value
func (res Resolution) Present() bool {
	_, ok := res.Value()
	return ok
}

// FormatValue returns the resolved value as a CSV cell, empty when absent
func (res Resolution) FormatValue() string {
	val, ok := res.Value()
	if !ok {
		return ""
	}

	return strconv.FormatFloat(val, 'f', -1, 64)
}
