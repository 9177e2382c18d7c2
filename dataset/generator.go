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
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/penny-vault/pvebitda/data"
	"github.com/rs/zerolog"
)

const (
	TickerColumn  = "Ticker"
	RevenueColumn = "Revenues_M"
	EBITDAColumn  = "EBITDA"
	MarginColumn  = "EBITDA_Margin"
)

// Metrics names the figures added to the dataset
var Metrics = []string{"EBITDA/LTM", "EBITDA Margins"}

// DropList names the columns removed from the output. Columns that are not
// present in the input are ignored.
var DropList = []string{
	"Rank",
	"CEO",
	"Founder_is_CEO",
	"Growth_in_Jobs",
	"Change_in_Rank",
	"Gained_in_Rank",
	"Global500",
	"Dropped_in_Rank",
	"Newcomer_to_the_Fortune500",
	"FemaleCEO",
	"Worlds_Most_Admired_Companies",
	"Footnote",
	"Best_Companies_to_Work_For",
	"Country",
	"HeadquartersCity",
	"HeadquartersState",
	"Website",
	"Updated",
	TickerColumn,
}

// Resolver produces an EBITDA figure for a single ticker
type Resolver interface {
	Resolve(ctx context.Context, ticker string) data.Resolution
}

// Row pairs an input row with the resolution chosen for it
type Row struct {
	Index      int
	Ticker     string
	Resolution data.Resolution
	Margin     float64
}

// Result of a generator run
type Result struct {
	Rows    []Row
	Summary *RunSummary
}

type Generator struct {
	resolver Resolver
	now      func() time.Time
}

func NewGenerator(resolver Resolver) *Generator {
	return &Generator{
		resolver: resolver,
		now:      time.Now,
	}
}

// Run reads input, augments it, and writes output
func (generator *Generator) Run(ctx context.Context, input, output string) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	table, err := Read(input)
	if err != nil {
		logger.Error().Err(err).Str("FileName", input).Msg("could not read input dataset")
		return nil, err
	}

	logger.Info().Str("FileName", input).Int("NumRows", table.Len()).Msg("loaded input dataset")

	result, err := generator.Generate(ctx, table)
	if err != nil {
		return nil, err
	}

	if err := table.Write(output); err != nil {
		logger.Error().Err(err).Str("FileName", output).Msg("could not write output dataset")
		return nil, err
	}

	logger.Info().Str("FileName", output).Strs("Metrics", Metrics).Msg("dataset generated")
	return result, nil
}

// Generate resolves every ticker in table and updates it in place: the
// EBITDA and margin columns are set and the drop list is removed.
func (generator *Generator) Generate(ctx context.Context, table *Table) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	tickers, err := table.Column(TickerColumn)
	if err != nil {
		return nil, err
	}

	revenues, err := table.Column(RevenueColumn)
	if err != nil {
		return nil, err
	}

	summary := NewRunSummary(generator.now())
	rows := make([]Row, 0, len(tickers))
	ebitdaCol := make([]string, len(tickers))
	marginCol := make([]string, len(tickers))

	for idx, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			logger.Error().Err(err).Int("Row", idx).Msg("generation cancelled")
			return nil, err
		}

		var res data.Resolution
		if IsMissing(ticker) {
			logger.Warn().Int("Row", idx).Msg("row has no ticker; EBITDA left empty")
			res = data.Unresolved("", nil)
			ticker = ""
		} else {
			ticker = strings.TrimSpace(ticker)
			res = generator.resolver.Resolve(ctx, ticker)
		}

		margin := Margin(res, revenues[idx])
		ebitdaCol[idx] = res.FormatValue()
		marginCol[idx] = strconv.FormatFloat(margin, 'f', -1, 64)

		summary.Add(res)
		rows = append(rows, Row{
			Index:      idx,
			Ticker:     ticker,
			Resolution: res,
			Margin:     margin,
		})
	}

	if err := table.SetColumn(EBITDAColumn, ebitdaCol); err != nil {
		return nil, err
	}

	if err := table.SetColumn(MarginColumn, marginCol); err != nil {
		return nil, err
	}

	dropped := table.DropColumns(DropList...)
	logger.Debug().Strs("Columns", dropped).Msg("dropped columns")

	summary.Finish(generator.now())
	if missing := summary.MissingFraction(); missing > 0 {
		logger.Warn().Float64("Fraction", missing).Msgf("%s metrics missing", strconv.FormatFloat(missing, 'f', -1, 64))
	}

	return &Result{
		Rows:    rows,
		Summary: summary,
	}, nil
}

// Margin divides the resolved EBITDA by revenue. Absent EBITDA, missing or
// unparseable revenue, and undefined quotients all yield 0.
func Margin(res data.Resolution, revenue string) float64 {
	ebitda, ok := res.Value()
	if !ok {
		return 0
	}

	if IsMissing(revenue) {
		return 0
	}

	rev, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(revenue), ",", ""), 64)
	if err != nil {
		return 0
	}

	margin := ebitda / rev
	if !data.IsFinite(margin) {
		return 0
	}

	return margin
}
