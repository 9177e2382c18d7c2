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

// Package ebitda picks a single EBITDA figure per company from whatever the
// provider has published: the target year annual filing, the trailing twelve
// months of quarterly filings, or the most recent earlier annual filing.
package ebitda

import (
	"context"
	"errors"

	"github.com/penny-vault/pvebitda/data"
	"github.com/penny-vault/pvebitda/provider"
	"github.com/rs/zerolog"
)

// LineItemSource is the subset of provider.Provider the resolver needs
type LineItemSource interface {
	AnnualLineItem(ctx context.Context, ticker, item string) ([]data.PeriodValue, error)
	QuarterlyLineItem(ctx context.Context, ticker, item string) ([]data.PeriodValue, error)
}

type Resolver struct {
	source     LineItemSource
	targetYear int
}

func NewResolver(source LineItemSource, targetYear int) *Resolver {
	return &Resolver{
		source:     source,
		targetYear: targetYear,
	}
}

// TargetYear returns the fiscal year preferred by the resolver
func (resolver *Resolver) TargetYear() int {
	return resolver.targetYear
}

// Resolve returns the best available EBITDA for ticker. It never fails; a
// provider error is carried on the returned resolution.
func (resolver *Resolver) Resolve(ctx context.Context, ticker string) data.Resolution {
	logger := zerolog.Ctx(ctx).With().Str("Ticker", ticker).Int("TargetYear", resolver.targetYear).Logger()

	annual := data.AnnualSeries{}
	values, err := resolver.source.AnnualLineItem(ctx, ticker, provider.EBITDA)
	switch {
	case err == nil:
		annual = data.ExtractAnnual(values, ticker)
	case errors.Is(err, provider.ErrLineItemNotFound):
		logger.Debug().Msg("no annual EBITDA published")
	default:
		logger.Error().Err(err).Msg("could not fetch annual financials; ticker left unresolved")
		return data.Unresolved(ticker, err)
	}

	if val, ok := annual.Reported(resolver.targetYear); ok {
		logger.Info().Float64("EBITDA", val).Msg("target year EBITDA found")
		return data.Resolution{
			Ticker:     ticker,
			Source:     data.SourceCurrentYear,
			FiscalYear: resolver.targetYear,
			Amount:     val,
		}
	}

	logger.Info().Msg("target year EBITDA not found; calculating LTM from quarterly data")
	if val, ok := resolver.trailingTwelveMonths(ctx, logger, ticker); ok {
		logger.Info().Float64("EBITDA", val).Msg("LTM EBITDA calculated")
		return data.Resolution{
			Ticker: ticker,
			Source: data.SourceLTM,
			Amount: val,
		}
	}

	logger.Info().Msg("no usable quarterly data; checking earlier annual EBITDA")
	if year, val, ok := annual.Latest(); ok {
		logger.Info().Int("FiscalYear", year).Float64("EBITDA", val).Msg("using most recent annual EBITDA")
		return data.Resolution{
			Ticker:     ticker,
			Source:     data.SourcePriorYear,
			FiscalYear: year,
			Amount:     val,
		}
	}

	logger.Warn().Msg("no annual or quarterly EBITDA available")
	return data.Unresolved(ticker, nil)
}

func (resolver *Resolver) trailingTwelveMonths(ctx context.Context, logger zerolog.Logger, ticker string) (float64, bool) {
	values, err := resolver.source.QuarterlyLineItem(ctx, ticker, provider.EBITDA)
	if err != nil {
		if errors.Is(err, provider.ErrLineItemNotFound) {
			logger.Debug().Msg("no quarterly EBITDA published")
		} else {
			logger.Error().Err(err).Msg("could not fetch quarterly financials")
		}
		return 0, false
	}

	series, err := data.NewQuarterlySeries(values)
	if err != nil {
		logger.Error().Err(err).Msg("could not calculate LTM")
		return 0, false
	}

	if len(series) < QuartersPerYear {
		logger.Debug().Int("Quarters", len(series)).Msg("not enough quarters for LTM")
		return 0, false
	}

	return TrailingTwelveMonths(series)
}
