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
	"errors"
	"fmt"
	"sort"

	"github.com/go-resty/resty/v2"
	"github.com/penny-vault/pvebitda/config"
	"github.com/penny-vault/pvebitda/data"
	"golang.org/x/time/rate"
)

const (
	EBITDA = "EBITDA"
)

var (
	ErrLineItemNotFound  = errors.New("line item not found")
	ErrInvalidStatusCode = errors.New("invalid status code received")
	ErrUnknownProvider   = errors.New("unknown provider")
)

// Provider is a source of financial statements. Both methods return the
// values reported for a single line item (e.g. EBITDA) in the order the
// source lists them. If the statement exists but has no such line the error
// is ErrLineItemNotFound.
type Provider interface {
	Name() string
	Description() string
	ConfigDescription() map[string]string
	AnnualLineItem(ctx context.Context, ticker, item string) ([]data.PeriodValue, error)
	QuarterlyLineItem(ctx context.Context, ticker, item string) ([]data.PeriodValue, error)
}

type factory func(cfg *config.Config) Provider

// Map lists a zero-configured instance of every provider, used for
// descriptions and config validation.
var Map = map[string]Provider{
	YahooName:    &Yahoo{},
	SharadarName: &Sharadar{},
	EODHDName:    &EODHD{},
}

var factories = map[string]factory{
	YahooName:    func(cfg *config.Config) Provider { return NewYahoo(cfg.Yahoo) },
	SharadarName: func(cfg *config.Config) Provider { return NewSharadar(cfg.Sharadar) },
	EODHDName:    func(cfg *config.Config) Provider { return NewEODHD(cfg.EODHD) },
}

// New creates the provider selected in the configuration
func New(cfg *config.Config) (Provider, error) {
	build, ok := factories[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}

	return build(cfg), nil
}

// Names returns the registered provider names in sorted order
func Names() []string {
	names := make([]string, 0, len(Map))
	for name := range Map {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// newLimiter converts a requests per minute setting into a limiter; values
// <= 0 fall back to the provider default
func newLimiter(requestsPerMinute, defaultRate int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRate
	}

	return rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/float64(61)), 1)
}

// checkResponse converts transport errors and non-2xx responses into errors
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}

	if resp.StatusCode() >= 300 {
		return fmt.Errorf("%w: %d", ErrInvalidStatusCode, resp.StatusCode())
	}

	return nil
}
