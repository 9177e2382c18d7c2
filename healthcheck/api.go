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

// Package healthcheck reports run status to healthchecks.io
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/penny-vault/pvebitda/config"
)

const (
	defaultTZ     = "America/New_York"
	defaultGrace  = 3600
	maxBodyLength = 10_000
)

var (
	ErrStatus    = errors.New("status code is invalid")
	ErrNoAPIKey  = errors.New("healthchecks api key is not configured")
	ErrNoPingURL = errors.New("healthchecks response did not include a ping url")
	ErrNoCheckID = errors.New("healthchecks check id is not configured")
)

type createReq struct {
	Name        string   `json:"name"`
	Description string   `json:"desc,omitempty"`
	Grace       int      `json:"grace"`
	Schedule    string   `json:"schedule"`
	Slug        string   `json:"slug"`
	Tags        string   `json:"tags"`
	Timezone    string   `json:"tz"`
	Unique      []string `json:"unique"`
}

type createResp struct {
	PingURL string `json:"ping_url"`
}

type Client struct {
	cfg    config.Healthchecks
	client *resty.Client
}

func New(cfg config.Healthchecks) *Client {
	return &Client{
		cfg:    cfg,
		client: resty.New(),
	}
}

// Enabled reports whether a check id is configured for pings
func (hc *Client) Enabled() bool {
	return hc.cfg.CheckID != ""
}

// Create a new healthchecks.io check and return the id. A check with the
// same slug is returned instead of creating a duplicate.
func (hc *Client) Create(ctx context.Context, name, slug string, tags []string, schedule string) (string, error) {
	if hc.cfg.APIKey == "" {
		return "", ErrNoAPIKey
	}

	command := createReq{
		Name:     name,
		Slug:     slug,
		Tags:     strings.Join(tags, " "),
		Grace:    defaultGrace,
		Schedule: schedule,
		Timezone: defaultTZ,
		Unique:   []string{"slug"},
	}

	result := createResp{}
	resp, err := hc.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Api-Key", hc.cfg.APIKey).
		SetBody(command).
		SetResult(&result).
		ForceContentType("application/json").
		Post(fmt.Sprintf("%s/checks/", strings.TrimRight(hc.cfg.APIURL, "/")))
	if err != nil {
		return "", err
	}

	if resp.StatusCode() > 201 {
		return "", fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	if result.PingURL == "" {
		return "", ErrNoPingURL
	}

	checkID := strings.Split(result.PingURL, "/")
	return checkID[len(checkID)-1], nil
}

// Start signals that a run has begun so healthchecks.io can measure its duration
func (hc *Client) Start(ctx context.Context) error {
	return hc.ping(ctx, "/start", "")
}

// Ping signals a successful run; body is attached to the ping as its log
func (hc *Client) Ping(ctx context.Context, body string) error {
	return hc.ping(ctx, "", body)
}

// Fail signals a failed run
func (hc *Client) Fail(ctx context.Context, body string) error {
	return hc.ping(ctx, "/fail", body)
}

func (hc *Client) ping(ctx context.Context, suffix, body string) error {
	if !hc.Enabled() {
		return ErrNoCheckID
	}

	if len(body) > maxBodyLength {
		body = body[:maxBodyLength]
	}

	resp, err := hc.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(fmt.Sprintf("%s/%s%s", strings.TrimRight(hc.cfg.PingURL, "/"), hc.cfg.CheckID, suffix))
	if err != nil {
		return err
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	return nil
}
