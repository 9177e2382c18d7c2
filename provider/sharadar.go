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
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/penny-vault/pvebitda/config"
	"github.com/penny-vault/pvebitda/data"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	SharadarName = "sharadar"

	sharadarDefaultRate  = 300
	sharadarAnnual       = "ARY"
	sharadarQuarterly    = "ARQ"
	sharadarMaxPages     = 10
	sharadarPeriodColumn = "reportperiod"
)

// Sharadar reads the SF1 core fundamentals table from Nasdaq Data Link
type Sharadar struct {
	client  *resty.Client
	limiter *rate.Limiter
	baseURL string
}

func NewSharadar(cfg config.Sharadar) *Sharadar {
	client := resty.New().SetQueryParam("api_key", cfg.APIKey)

	return &Sharadar{
		client:  client,
		limiter: newLimiter(cfg.RateLimit, sharadarDefaultRate),
		baseURL: cfg.BaseURL,
	}
}

func (sharadar *Sharadar) Name() string {
	return SharadarName
}

func (sharadar *Sharadar) ConfigDescription() map[string]string {
	return map[string]string{
		"apikey":     "Enter your Nasdaq Data Link API key:",
		"rate_limit": "What is the maximum number of requests per minute?",
	}
}

func (sharadar *Sharadar) Description() string {
	return `Sharadar Core US Fundamentals (SF1) on Nasdaq Data Link. As-reported annual (ARY) and quarterly (ARQ) statements for more than 16,000 US companies. Requires a paid subscription.`
}

func (sharadar *Sharadar) AnnualLineItem(ctx context.Context, ticker, item string) ([]data.PeriodValue, error) {
	return sharadar.lineItem(ctx, ticker, item, sharadarAnnual)
}

func (sharadar *Sharadar) QuarterlyLineItem(ctx context.Context, ticker, item string) ([]data.PeriodValue, error) {
	return sharadar.lineItem(ctx, ticker, item, sharadarQuarterly)
}

func (sharadar *Sharadar) lineItem(ctx context.Context, ticker, item, dimension string) ([]data.PeriodValue, error) {
	logger := zerolog.Ctx(ctx)
	column := strings.ToLower(item)

	values := make([]data.PeriodValue, 0)
	cursor := ""
	found := false

	for page := 0; page < sharadarMaxPages; page++ {
		if err := sharadar.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req := sharadar.client.R().
			SetContext(ctx).
			SetQueryParam("ticker", ticker).
			SetQueryParam("dimension", dimension).
			SetQueryParam("qopts.columns", fmt.Sprintf("%s,%s", sharadarPeriodColumn, column))

		if cursor != "" {
			req.SetQueryParam("qopts.cursor_id", cursor)
		}

		resp, err := req.Get(sharadar.baseURL)
		if err := checkResponse(resp, err); err != nil {
			if resp != nil {
				logger.Error().Err(err).Str("Ticker", ticker).Int("StatusCode", resp.StatusCode()).Bytes("Body", resp.Body()).Msg("error when requesting sharadar fundamentals")
			}
			return nil, err
		}

		responseBody := string(resp.Body())

		// an unknown column is rejected by the API with a 4xx; a known column
		// is confirmed by the column header
		for _, col := range gjson.Get(responseBody, "datatable.columns.#.name").Array() {
			if col.String() == column {
				found = true
			}
		}

		for _, row := range gjson.Get(responseBody, "datatable.data").Array() {
			val := math.NaN()
			if cell := row.Get("1"); cell.Exists() && cell.Type == gjson.Number {
				val = cell.Float()
			}

			values = append(values, data.PeriodValue{
				Timestamp: row.Get("0").String(),
				Value:     val,
			})
		}

		cursor = gjson.Get(responseBody, "meta.next_cursor_id").String()
		if cursor == "" {
			break
		}
	}

	if !found || len(values) == 0 {
		return nil, fmt.Errorf("%w: %s %s %s", ErrLineItemNotFound, ticker, dimension, item)
	}

	return values, nil
}
