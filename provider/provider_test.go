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
package provider_test

import (
	"context"
	"math"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/penny-vault/pvebitda/config"
	"github.com/penny-vault/pvebitda/data"
	"github.com/penny-vault/pvebitda/provider"
)

const yahooAnnual = `{
  "timeseries": {
    "result": [{
      "meta": {"symbol": ["AAPL"], "type": ["annualEBITDA"]},
      "timestamp": [1601424000, 1632960000, 1664496000, 1696032000],
      "annualEBITDA": [
        null,
        {"asOfDate": "2021-09-30", "periodType": "12M", "reportedValue": {"raw": 120233000000, "fmt": "120.23B"}},
        {"asOfDate": "2022-09-30", "periodType": "12M", "reportedValue": {"raw": 130541000000, "fmt": "130.54B"}},
        {"asOfDate": "2023-09-30", "periodType": "12M", "reportedValue": {}}
      ]
    }],
    "error": null
  }
}`

const yahooEmpty = `{"timeseries": {"result": [{"meta": {"symbol": ["ZZZZ"], "type": ["quarterlyEBITDA"]}}], "error": null}}`

var _ = Describe("Provider", func() {
	var (
		server *ghttp.Server
		ctx    context.Context
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		ctx = context.Background()
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("registry", func() {
		It("lists every provider in sorted order", func() {
			Expect(provider.Names()).To(Equal([]string{"eodhd", "sharadar", "yahoo"}))
		})

		It("builds the configured provider", func() {
			cfg := config.Default()
			cfg.Provider = "eodhd"

			p, err := provider.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Name()).To(Equal(provider.EODHDName))
		})

		It("rejects unknown providers", func() {
			cfg := config.Default()
			cfg.Provider = "bloomberg"

			_, err := provider.New(cfg)
			Expect(err).To(MatchError(provider.ErrUnknownProvider))
		})
	})

	Describe("Yahoo", func() {
		var yahoo *provider.Yahoo

		BeforeEach(func() {
			yahoo = provider.NewYahoo(config.Yahoo{
				BaseURL:   server.URL(),
				UserAgent: "pvebitda-test",
				RateLimit: 60000,
			})
		})

		It("parses annual values and skips padding", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/ws/fundamentals-timeseries/v1/finance/timeseries/AAPL"),
				ghttp.VerifyHeaderKV("User-Agent", "pvebitda-test"),
				ghttp.VerifyFormKV("symbol", "AAPL"),
				ghttp.VerifyFormKV("type", "annualEBITDA"),
				ghttp.RespondWith(http.StatusOK, yahooAnnual),
			))

			values, err := yahoo.AnnualLineItem(ctx, "AAPL", provider.EBITDA)
			Expect(err).NotTo(HaveOccurred())
			Expect(values).To(HaveLen(3))
			Expect(values[0]).To(Equal(data.PeriodValue{Timestamp: "2021-09-30", Value: 120233000000}))
			Expect(values[2].Timestamp).To(Equal("2023-09-30"))
			Expect(math.IsNaN(values[2].Value)).To(BeTrue())
		})

		It("reports a missing series as not found", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyFormKV("type", "quarterlyEBITDA"),
				ghttp.RespondWith(http.StatusOK, yahooEmpty),
			))

			_, err := yahoo.QuarterlyLineItem(ctx, "ZZZZ", provider.EBITDA)
			Expect(err).To(MatchError(provider.ErrLineItemNotFound))
		})

		It("surfaces http errors", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusTooManyRequests, "Too Many Requests"))

			_, err := yahoo.AnnualLineItem(ctx, "AAPL", provider.EBITDA)
			Expect(err).To(MatchError(provider.ErrInvalidStatusCode))
		})
	})

	Describe("Sharadar", func() {
		var sharadar *provider.Sharadar

		BeforeEach(func() {
			sharadar = provider.NewSharadar(config.Sharadar{
				APIKey:    "secret",
				BaseURL:   server.URL() + "/api/v3/datatables/SHARADAR/SF1",
				RateLimit: 60000,
			})
		})

		It("follows the cursor across pages", func() {
			server.AppendHandlers(
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodGet, "/api/v3/datatables/SHARADAR/SF1"),
					ghttp.VerifyFormKV("api_key", "secret"),
					ghttp.VerifyFormKV("ticker", "MSFT"),
					ghttp.VerifyFormKV("dimension", "ARQ"),
					ghttp.VerifyFormKV("qopts.columns", "reportperiod,ebitda"),
					ghttp.RespondWith(http.StatusOK, `{
						"datatable": {
							"data": [["2024-06-30", 33000000000], ["2024-03-31", 31000000000]],
							"columns": [{"name": "reportperiod", "type": "Date"}, {"name": "ebitda", "type": "Integer"}]
						},
						"meta": {"next_cursor_id": "page2"}
					}`),
				),
				ghttp.CombineHandlers(
					ghttp.VerifyFormKV("qopts.cursor_id", "page2"),
					ghttp.RespondWith(http.StatusOK, `{
						"datatable": {
							"data": [["2023-12-31", 30000000000], ["2023-09-30", null]],
							"columns": [{"name": "reportperiod", "type": "Date"}, {"name": "ebitda", "type": "Integer"}]
						},
						"meta": {"next_cursor_id": null}
					}`),
				),
			)

			values, err := sharadar.QuarterlyLineItem(ctx, "MSFT", provider.EBITDA)
			Expect(err).NotTo(HaveOccurred())
			Expect(server.ReceivedRequests()).To(HaveLen(2))
			Expect(values).To(HaveLen(4))
			Expect(values[0]).To(Equal(data.PeriodValue{Timestamp: "2024-06-30", Value: 33000000000}))
			Expect(math.IsNaN(values[3].Value)).To(BeTrue())
		})

		It("reports tickers without rows as not found", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `{
				"datatable": {"data": [], "columns": [{"name": "reportperiod"}, {"name": "ebitda"}]},
				"meta": {"next_cursor_id": null}
			}`))

			_, err := sharadar.AnnualLineItem(ctx, "ZZZZ", provider.EBITDA)
			Expect(err).To(MatchError(provider.ErrLineItemNotFound))
		})
	})

	Describe("EODHD", func() {
		var eodhd *provider.EODHD

		BeforeEach(func() {
			eodhd = provider.NewEODHD(config.EODHD{
				APIKey:    "token",
				Exchange:  "US",
				BaseURL:   server.URL(),
				RateLimit: 60000,
			})
		})

		It("reads the line item newest first", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/fundamentals/BRK-B.US"),
				ghttp.VerifyFormKV("api_token", "token"),
				ghttp.VerifyFormKV("filter", "Financials::Income_Statement::yearly"),
				ghttp.RespondWith(http.StatusOK, `{
					"2022-12-31": {"date": "2022-12-31", "ebitda": "-12000000000.00", "totalRevenue": "302089000000"},
					"2023-12-31": {"date": "2023-12-31", "ebitda": 137000000000, "totalRevenue": "364482000000"},
					"2021-12-31": {"date": "2021-12-31", "ebitda": null}
				}`),
			))

			values, err := eodhd.AnnualLineItem(ctx, "BRK.B", provider.EBITDA)
			Expect(err).NotTo(HaveOccurred())
			Expect(values).To(HaveLen(3))
			Expect(values[0]).To(Equal(data.PeriodValue{Timestamp: "2023-12-31", Value: 137000000000}))
			Expect(values[1]).To(Equal(data.PeriodValue{Timestamp: "2022-12-31", Value: -12000000000}))
			Expect(math.IsNaN(values[2].Value)).To(BeTrue())
		})

		It("reports statements without the line as not found", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `{"2024-03-31": {"date": "2024-03-31", "totalRevenue": "1"}}`))

			_, err := eodhd.QuarterlyLineItem(ctx, "XYZ", provider.EBITDA)
			Expect(err).To(MatchError(provider.ErrLineItemNotFound))
		})

		It("reports unknown tickers as not found", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `[]`))

			_, err := eodhd.QuarterlyLineItem(ctx, "XYZ", provider.EBITDA)
			Expect(err).To(MatchError(provider.ErrLineItemNotFound))
		})
	})
})
