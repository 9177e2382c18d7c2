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
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/penny-vault/pvebitda/config"
	"github.com/penny-vault/pvebitda/data"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	YahooName = "yahoo"

	yahooDefaultRate = 60

	// earliest period requested from the timeseries endpoint (1985-08-23)
	yahooPeriodStart = 493590046
)

// Yahoo reads the fundamentals timeseries published by Yahoo! Finance. No
// API key is needed but the endpoint throttles aggressively.
type Yahoo struct {
	client  *resty.Client
	limiter *rate.Limiter
	baseURL string
	now     func() time.Time
}

func NewYahoo(cfg config.Yahoo) *Yahoo {
	client := resty.New()
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Yahoo{
		client:  client,
		limiter: newLimiter(cfg.RateLimit, yahooDefaultRate),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		now:     time.Now,
	}
}

func (yahoo *Yahoo) Name() string {
	return YahooName
}

func (yahoo *Yahoo) ConfigDescription() map[string]string {
	return map[string]string{
		"user_agent": "What User-Agent should be sent with requests?",
		"rate_limit": "What is the maximum number of requests per minute?",
	}
}

func (yahoo *Yahoo) Description() string {
	return `Yahoo! Finance fundamentals timeseries. Free, no API key required. Annual history typically covers the last four fiscal years and quarterly history the last five quarters.`
}

func (yahoo *Yahoo) AnnualLineItem(ctx context.Context, ticker, item string) ([]data.PeriodValue, error) {
	return yahoo.timeseries(ctx, ticker, "annual"+item)
}

func (yahoo *Yahoo) QuarterlyLineItem(ctx context.Context, ticker, item string) ([]data.PeriodValue, error) {
	return yahoo.timeseries(ctx, ticker, "quarterly"+item)
}

func (yahoo *Yahoo) timeseries(ctx context.Context, ticker, seriesType string) ([]data.PeriodValue, error) {
	logger := zerolog.Ctx(ctx)

	if err := yahoo.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/ws/fundamentals-timeseries/v1/finance/timeseries/%s", yahoo.baseURL, url.PathEscape(ticker))
	resp, err := yahoo.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", ticker).
		SetQueryParam("type", seriesType).
		SetQueryParam("period1", strconv.Itoa(yahooPeriodStart)).
		SetQueryParam("period2", strconv.FormatInt(yahoo.now().Unix(), 10)).
		Get(endpoint)
	if err := checkResponse(resp, err); err != nil {
		if resp != nil {
			logger.Error().Err(err).Str("Ticker", ticker).Str("Url", endpoint).Int("StatusCode", resp.StatusCode()).Msg("error when requesting yahoo timeseries")
		}
		return nil, err
	}

	responseBody := string(resp.Body())
	if apiErr := gjson.Get(responseBody, "timeseries.error.description"); apiErr.Exists() && apiErr.String() != "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatusCode, apiErr.String())
	}

	var entries gjson.Result
	for _, result := range gjson.Get(responseBody, "timeseries.result").Array() {
		if series := result.Get(seriesType); series.Exists() {
			entries = series
			break
		}
	}

	if !entries.Exists() {
		return nil, fmt.Errorf("%w: %s %s", ErrLineItemNotFound, ticker, seriesType)
	}

	values := make([]data.PeriodValue, 0)
	for _, entry := range entries.Array() {
		// the endpoint pads the series with nulls for periods it has no filing for
		if entry.Type == gjson.Null {
			continue
		}

		val := math.NaN()
		if raw := entry.Get("reportedValue.raw"); raw.Type == gjson.Number {
			val = raw.Float()
		}

		values = append(values, data.PeriodValue{
			Timestamp: entry.Get("asOfDate").String(),
			Value:     val,
		})
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrLineItemNotFound, ticker, seriesType)
	}

	return values, nil
}
