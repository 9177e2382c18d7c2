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
package provider

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/penny-vault/pvebitda/config"
	"github.com/penny-vault/pvebitda/data"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	EODHDName = "eodhd"

	eodhdDefaultRate = 600
)

// statementPeriods is the shape of Financials::Income_Statement::{yearly,quarterly}:
// period end date -> line item -> value. Values arrive as strings, numbers,
// or null depending on the filing.
type statementPeriods map[string]map[string]interface{}

// EODHD reads income statements from the EOD Historical Data fundamentals API
type EODHD struct {
	client   *resty.Client
	limiter  *rate.Limiter
	baseURL  string
	exchange string
}

func NewEODHD(cfg config.EODHD) *EODHD {
	client := resty.New().
		SetQueryParam("api_token", cfg.APIKey).
		SetQueryParam("fmt", "json")

	exchange := cfg.Exchange
	if exchange == "" {
		exchange = "US"
	}

	return &EODHD{
		client:   client,
		limiter:  newLimiter(cfg.RateLimit, eodhdDefaultRate),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		exchange: exchange,
	}
}

func (eodhd *EODHD) Name() string {
	return EODHDName
}

func (eodhd *EODHD) ConfigDescription() map[string]string {
	return map[string]string{
		"apikey":     "Enter your EODHD API token:",
		"exchange":   "Which exchange code should tickers be resolved on?",
		"rate_limit": "What is the maximum number of requests per minute?",
	}
}

func (eodhd *EODHD) Description() string {
	return `EOD Historical Data fundamentals API. Yearly and quarterly income statements for global exchanges, with EBITDA reported directly as a line item. Requires an API token with fundamentals access.`
}

func (eodhd *EODHD) AnnualLineItem(ctx context.Context, ticker, item string) ([]data.PeriodValue, error) {
	return eodhd.lineItem(ctx, ticker, item, "yearly")
}

func (eodhd *EODHD) QuarterlyLineItem(ctx context.Context, ticker, item string) ([]data.PeriodValue, error) {
	return eodhd.lineItem(ctx, ticker, item, "quarterly")
}

func (eodhd *EODHD) symbol(ticker string) string {
	// class shares use '-' on EODHD (BRK-B.US)
	return fmt.Sprintf("%s.%s", strings.ReplaceAll(strings.ToUpper(ticker), ".", "-"), eodhd.exchange)
}

func (eodhd *EODHD) lineItem(ctx context.Context, ticker, item, frequency string) ([]data.PeriodValue, error) {
	logger := zerolog.Ctx(ctx)

	if err := eodhd.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/fundamentals/%s", eodhd.baseURL, eodhd.symbol(ticker))
	resp, err := eodhd.client.R().
		SetContext(ctx).
		SetQueryParam("filter", "Financials::Income_Statement::"+frequency).
		Get(endpoint)
	if err := checkResponse(resp, err); err != nil {
		if resp != nil {
			logger.Error().Err(err).Str("Ticker", ticker).Str("Url", endpoint).Int("StatusCode", resp.StatusCode()).Msg("error when requesting eodhd fundamentals")
		}
		return nil, err
	}

	// EODHD answers a filter with no matching data with an empty array or "NA"
	body := strings.TrimSpace(string(resp.Body()))
	if body == "" || body == "[]" || body == "{}" || body == `"NA"` {
		return nil, fmt.Errorf("%w: %s %s %s", ErrLineItemNotFound, ticker, frequency, item)
	}

	periods := statementPeriods{}
	if err := json.Unmarshal(resp.Body(), &periods); err != nil {
		logger.Error().Err(err).Str("Ticker", ticker).Msg("could not decode eodhd income statement")
		return nil, err
	}

	return periods.lineItem(ticker, frequency, strings.ToLower(item))
}

func (periods statementPeriods) lineItem(ticker, frequency, field string) ([]data.PeriodValue, error) {
	dates := make([]string, 0, len(periods))
	for date := range periods {
		dates = append(dates, date)
	}

	// newest first, matching the order EODHD publishes
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	found := false
	values := make([]data.PeriodValue, 0, len(dates))
	for _, date := range dates {
		raw, ok := periods[date][field]
		if !ok {
			continue
		}

		found = true
		values = append(values, data.PeriodValue{
			Timestamp: date,
			Value:     toFloat(raw),
		})
	}

	if !found {
		return nil, fmt.Errorf("%w: %s %s %s", ErrLineItemNotFound, ticker, frequency, field)
	}

	return values, nil
}

func toFloat(raw interface{}) float64 {
	switch val := raw.(type) {
	case float64:
		return val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return math.NaN()
		}
		return parsed
	default:
		return math.NaN()
	}
}
