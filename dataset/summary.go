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
package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/hako/durafmt"
	"github.com/penny-vault/pvebitda/data"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RunSummary counts how each row of a run was resolved
type RunSummary struct {
	StartTime time.Time
	EndTime   time.Time
	Rows      int
	Sources   map[data.Source]int
	Failed    int
	Missing   int
}

func NewRunSummary(start time.Time) *RunSummary {
	sources := make(map[data.Source]int, len(data.Sources))
	for _, src := range data.Sources {
		sources[src] = 0
	}

	return &RunSummary{
		StartTime: start,
		Sources:   sources,
	}
}

// Add records a single row
func (summary *RunSummary) Add(res data.Resolution) {
	summary.Rows++

	if !res.Present() {
		summary.Missing++
		summary.Sources[data.SourceNone]++
	} else {
		summary.Sources[res.Source]++
	}

	if res.Err != nil {
		summary.Failed++
	}
}

func (summary *RunSummary) Finish(end time.Time) {
	summary.EndTime = end
}

// Runtime is zero until Finish is called
func (summary *RunSummary) Runtime() time.Duration {
	if summary.EndTime.IsZero() {
		return 0
	}

	return summary.EndTime.Sub(summary.StartTime)
}

// MissingFraction is the share of rows without an EBITDA value
func (summary *RunSummary) MissingFraction() float64 {
	if summary.Rows == 0 {
		return 0
	}

	return float64(summary.Missing) / float64(summary.Rows)
}

// Markdown describes the run for display on the terminal
func (summary *RunSummary) Markdown() string {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	builder.WriteString("# EBITDA Run Summary\n\n")
	builder.WriteString(p.Sprintf("  * Rows: %d\n", summary.Rows))
	builder.WriteString(p.Sprintf("  * Missing: %d (%.1f%%)\n", summary.Missing, summary.MissingFraction()*100))
	builder.WriteString(p.Sprintf("  * Provider Errors: %d\n", summary.Failed))

	if runtime := summary.Runtime(); runtime > 0 {
		builder.WriteString(fmt.Sprintf("  * Runtime: %s\n", durafmt.Parse(runtime).LimitFirstN(2).String()))
	}

	builder.WriteString("\n## Sources\n\n")
	builder.WriteString("| Source | Tickers |\n")
	builder.WriteString("|--------|--------:|\n")
	for _, src := range data.Sources {
		builder.WriteString(p.Sprintf("| %s | %d |\n", src, summary.Sources[src]))
	}

	return builder.String()
}
