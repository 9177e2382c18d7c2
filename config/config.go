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

// Package config holds the typed settings for a pvebitda run. Values come
// from (lowest to highest precedence) struct tag defaults, the TOML config
// file, PVEBITDA_* environment variables, and command line flags.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "PVEBITDA"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

type Config struct {
	Input      string `mapstructure:"input" toml:"input" default:"data/KaggleData.csv" validate:"required"`
	Output     string `mapstructure:"output" toml:"output" default:"data/FinancialData.csv" validate:"required"`
	TargetYear int    `mapstructure:"target_year" toml:"target_year" default:"2024" validate:"gte=1900,lte=2100"`
	Provider   string `mapstructure:"provider" toml:"provider" default:"yahoo" validate:"oneof=yahoo sharadar eodhd"`

	Provenance   Provenance   `mapstructure:"provenance" toml:"provenance"`
	Log          Log          `mapstructure:"log" toml:"log"`
	Yahoo        Yahoo        `mapstructure:"yahoo" toml:"yahoo"`
	Sharadar     Sharadar     `mapstructure:"sharadar" toml:"sharadar"`
	EODHD        EODHD        `mapstructure:"eodhd" toml:"eodhd"`
	Backblaze    Backblaze    `mapstructure:"backblaze" toml:"backblaze"`
	Healthchecks Healthchecks `mapstructure:"healthchecks" toml:"healthchecks"`
}

// Provenance settings control the optional per-ticker export of which
// fallback branch produced each value. Empty paths disable the export.
type Provenance struct {
	CSV     string `mapstructure:"csv" toml:"csv"`
	Parquet string `mapstructure:"parquet" toml:"parquet"`
}

type Log struct {
	Level  string `mapstructure:"level" toml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Output string `mapstructure:"output" toml:"output" default:"stdout" validate:"oneof=stdout stderr"`
}

type Yahoo struct {
	BaseURL   string `mapstructure:"base_url" toml:"base_url" default:"https://query2.finance.yahoo.com" validate:"required,url"`
	UserAgent string `mapstructure:"user_agent" toml:"user_agent" default:"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"`
	RateLimit int    `mapstructure:"rate_limit" toml:"rate_limit" default:"60" validate:"gte=0"`
}

type Sharadar struct {
	APIKey    string `mapstructure:"apikey" toml:"apikey"`
	BaseURL   string `mapstructure:"base_url" toml:"base_url" default:"https://data.nasdaq.com/api/v3/datatables/SHARADAR/SF1" validate:"required,url"`
	RateLimit int    `mapstructure:"rate_limit" toml:"rate_limit" default:"300" validate:"gte=0"`
}

type EODHD struct {
	APIKey    string `mapstructure:"apikey" toml:"apikey"`
	Exchange  string `mapstructure:"exchange" toml:"exchange" default:"US"`
	BaseURL   string `mapstructure:"base_url" toml:"base_url" default:"https://eodhd.com/api" validate:"required,url"`
	RateLimit int    `mapstructure:"rate_limit" toml:"rate_limit" default:"600" validate:"gte=0"`
}

type Backblaze struct {
	ApplicationID  string `mapstructure:"application_id" toml:"application_id"`
	ApplicationKey string `mapstructure:"application_key" toml:"application_key"`
	Bucket         string `mapstructure:"bucket" toml:"bucket" default:"pvebitda"`
	Dir            string `mapstructure:"dir" toml:"dir" default:"ebitda"`
}

// Enabled reports whether uploads should be attempted
func (b Backblaze) Enabled() bool {
	return b.ApplicationID != ""
}

type Healthchecks struct {
	APIKey  string `mapstructure:"apikey" toml:"apikey"`
	CheckID string `mapstructure:"check_id" toml:"check_id"`
	APIURL  string `mapstructure:"api_url" toml:"api_url" default:"https://healthchecks.io/api/v3" validate:"required,url"`
	PingURL string `mapstructure:"ping_url" toml:"ping_url" default:"https://hc-ping.com" validate:"required,url"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterStructValidation(apiKeyRequired, Config{})
}

// apiKeyRequired makes the key of the selected provider mandatory
func apiKeyRequired(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)

	switch cfg.Provider {
	case "sharadar":
		if cfg.Sharadar.APIKey == "" {
			sl.ReportError(cfg.Sharadar.APIKey, "Sharadar.APIKey", "APIKey", "required", "")
		}
	case "eodhd":
		if cfg.EODHD.APIKey == "" {
			sl.ReportError(cfg.EODHD.APIKey, "EODHD.APIKey", "APIKey", "required", "")
		}
	}
}

// Default returns a configuration populated only from struct tag defaults
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		// tags are static, an error here is a programming mistake
		panic(err)
	}

	return cfg
}

// Load reads the configuration from v. Every known key is registered as a
// viper default first so that environment variables are picked up by
// Unmarshal even when no config file mentions the key.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	registerDefaults(v, "", reflect.ValueOf(cfg).Elem())

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints and reports every violation at once
func (cfg *Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			msgs := make([]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}

		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

func registerDefaults(v *viper.Viper, prefix string, val reflect.Value) {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" {
			continue
		}

		if prefix != "" {
			key = prefix + "." + key
		}

		if field.Type.Kind() == reflect.Struct {
			registerDefaults(v, key, val.Field(i))
			continue
		}

		v.SetDefault(key, val.Field(i).Interface())
	}
}
