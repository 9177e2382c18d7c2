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
package dataset_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvebitda/data"
	"github.com/penny-vault/pvebitda/dataset"
)

type fakeResolver struct {
	results map[string]data.Resolution
	calls   []string
	cancel  context.CancelFunc
}

func (fake *fakeResolver) Resolve(_ context.Context, ticker string) data.Resolution {
	fake.calls = append(fake.calls, ticker)
	if fake.cancel != nil {
		fake.cancel()
	}

	if res, ok := fake.results[ticker]; ok {
		return res
	}

	return data.Unresolved(ticker, nil)
}

const input = `Rank,Company,Ticker,Sector,Revenues_M,CEO,Website
1,Walmart,WMT,Retailing,"648,125",Doug McMillon,walmart.com
2,Amazon,AMZN,Retailing,574785,Andy Jassy,amazon.com
3,Private Co,,Retailing,1000,Someone,example.com
4,Broken,XYZ,Energy,NA,Nobody,example.com
5,No Revenue,ZERO,Energy,0,Nobody,example.com
`

var _ = Describe("Generator", func() {
	var (
		ctx      context.Context
		resolver *fakeResolver
		table    *dataset.Table
	)

	BeforeEach(func() {
		ctx = context.Background()
		resolver = &fakeResolver{results: map[string]data.Resolution{
			"WMT":  {Ticker: "WMT", Source: data.SourceCurrentYear, FiscalYear: 2024, Amount: 64812.5},
			"AMZN": {Ticker: "AMZN", Source: data.SourceLTM, Amount: 114957},
			"XYZ":  {Ticker: "XYZ", Source: data.SourcePriorYear, FiscalYear: 2022, Amount: 10},
			"ZERO": {Ticker: "ZERO", Source: data.SourceLTM, Amount: 5},
		}}

		var err error
		table, err = dataset.ReadCSV(strings.NewReader(input))
		Expect(err).NotTo(HaveOccurred())
	})

	It("adds EBITDA and margin and removes the drop list", func() {
		result, err := dataset.NewGenerator(resolver).Generate(ctx, table)
		Expect(err).NotTo(HaveOccurred())

		Expect(table.Header).To(Equal([]string{"Company", "Sector", "Revenues_M", "EBITDA", "EBITDA_Margin"}))
		Expect(table.Rows[0]).To(Equal([]string{"Walmart", "Retailing", "648,125", "64812.5", "0.1"}))
		Expect(table.Rows[1][3:]).To(Equal([]string{"114957", "0.2"}))
		Expect(result.Rows).To(HaveLen(5))
	})

	It("does not resolve rows without a ticker", func() {
		_, err := dataset.NewGenerator(resolver).Generate(ctx, table)
		Expect(err).NotTo(HaveOccurred())

		Expect(resolver.calls).To(Equal([]string{"WMT", "AMZN", "XYZ", "ZERO"}))
		Expect(table.Rows[2][3:]).To(Equal([]string{"", "0"}))
	})

	It("uses a zero margin for missing or zero revenue", func() {
		_, err := dataset.NewGenerator(resolver).Generate(ctx, table)
		Expect(err).NotTo(HaveOccurred())

		Expect(table.Rows[3][3:]).To(Equal([]string{"10", "0"}))
		Expect(table.Rows[4][3:]).To(Equal([]string{"5", "0"}))
	})

	It("summarizes the sources", func() {
		result, err := dataset.NewGenerator(resolver).Generate(ctx, table)
		Expect(err).NotTo(HaveOccurred())

		summary := result.Summary
		Expect(summary.Rows).To(Equal(5))
		Expect(summary.Missing).To(Equal(1))
		Expect(summary.MissingFraction()).To(BeNumerically("~", 0.2))
		Expect(summary.Sources).To(HaveKeyWithValue(data.SourceLTM, 2))
		Expect(summary.Sources).To(HaveKeyWithValue(data.SourceNone, 1))
		Expect(summary.Markdown()).To(ContainSubstring("| ltm | 2 |"))
	})

	It("requires the ticker and revenue columns", func() {
		table, err := dataset.ReadCSV(strings.NewReader("Company,Ticker\nWalmart,WMT\n"))
		Expect(err).NotTo(HaveOccurred())

		_, err = dataset.NewGenerator(resolver).Generate(ctx, table)
		Expect(err).To(MatchError(dataset.ErrMissingColumn))
		Expect(resolver.calls).To(BeEmpty())
	})

	It("stops when the context is cancelled", func() {
		cancelCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		resolver.cancel = cancel

		_, err := dataset.NewGenerator(resolver).Generate(cancelCtx, table)
		Expect(err).To(MatchError(context.Canceled))
		Expect(resolver.calls).To(HaveLen(1))
	})

	It("reads input and writes output files", func() {
		dir := GinkgoT().TempDir()
		in := filepath.Join(dir, "KaggleData.csv")
		out := filepath.Join(dir, "data", "FinancialData.csv")
		Expect(os.WriteFile(in, []byte(input), 0o600)).To(Succeed())

		_, err := dataset.NewGenerator(resolver).Run(ctx, in, out)
		Expect(err).NotTo(HaveOccurred())

		generated, err := dataset.Read(out)
		Expect(err).NotTo(HaveOccurred())
		Expect(generated.Len()).To(Equal(5))
		Expect(generated.Column("EBITDA_Margin")).To(Equal([]string{"0.1", "0.2", "0", "0", "0"}))
	})

	It("fails when the input cannot be read", func() {
		_, err := dataset.NewGenerator(resolver).Run(ctx, filepath.Join(GinkgoT().TempDir(), "missing.csv"), "out.csv")
		Expect(err).To(MatchError(os.ErrNotExist))
	})
})

var _ = Describe("Margin", func() {
	present := data.Resolution{Source: data.SourceCurrentYear, Amount: 50}

	DescribeTable("normalizes undefined margins to zero",
		func(res data.Resolution, revenue string, expected float64) {
			Expect(dataset.Margin(res, revenue)).To(Equal(expected))
		},
		Entry("defined", present, "200", 0.25),
		Entry("thousands separator", present, "1,000", 0.05),
		Entry("absent ebitda", data.Unresolved("X", nil), "200", 0.0),
		Entry("absent ebitda with error", data.Unresolved("X", errors.New("boom")), "200", 0.0),
		Entry("missing revenue", present, "", 0.0),
		Entry("unparseable revenue", present, "n.m.", 0.0),
		Entry("zero revenue", present, "0", 0.0),
		Entry("nan ebitda", data.Resolution{Source: data.SourceLTM, Amount: math.NaN()}, "200", 0.0),
	)
})

var _ = Describe("RunSummary", func() {
	It("renders counts with thousands separators", func() {
		start := time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC)
		summary := dataset.NewRunSummary(start)
		for i := 0; i < 1200; i++ {
			summary.Add(data.Resolution{Source: data.SourceCurrentYear, Amount: 1})
		}
		summary.Finish(start.Add(90 * time.Second))

		md := summary.Markdown()
		Expect(md).To(ContainSubstring("Rows: 1,200"))
		Expect(md).To(ContainSubstring("| current-year | 1,200 |"))
		Expect(md).To(ContainSubstring("Runtime: 1 minute 30 seconds"))
		Expect(summary.Runtime()).To(Equal(90 * time.Second))
	})
})
