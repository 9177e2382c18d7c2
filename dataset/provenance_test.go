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
	"errors"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/penny-vault/pvebitda/data"
	"github.com/penny-vault/pvebitda/dataset"
)

var _ = Describe("Provenance", func() {
	var records []*dataset.ProvenanceRecord

	BeforeEach(func() {
		records = dataset.Provenance([]dataset.Row{
			{Index: 0, Ticker: "WMT", Margin: 0.1, Resolution: data.Resolution{Ticker: "WMT", Source: data.SourceCurrentYear, FiscalYear: 2024, Amount: 64812.5}},
			{Index: 1, Ticker: "AMZN", Resolution: data.Unresolved("AMZN", errors.New("invalid status code received: 503"))},
		})
	})

	It("tags each row with its source", func() {
		Expect(records).To(HaveLen(2))
		Expect(records[0].Source).To(Equal("current-year"))
		Expect(*records[0].EBITDA).To(Equal(64812.5))
		Expect(records[1].EBITDA).To(BeNil())
		Expect(records[1].Error).To(ContainSubstring("503"))
	})

	It("writes csv", func() {
		fn := filepath.Join(GinkgoT().TempDir(), "provenance.csv")
		Expect(dataset.SaveProvenanceCSV(records, fn)).To(Succeed())

		fh, err := os.Open(fn)
		Expect(err).NotTo(HaveOccurred())
		defer fh.Close()

		read := []*dataset.ProvenanceRecord{}
		Expect(gocsv.UnmarshalFile(fh, &read)).To(Succeed())
		Expect(read).To(HaveLen(2))
		Expect(read[0].Ticker).To(Equal("WMT"))
		Expect(read[0].FiscalYear).To(Equal(int32(2024)))
		Expect(read[1].Source).To(Equal("none"))
	})

	It("writes parquet", func() {
		fn := filepath.Join(GinkgoT().TempDir(), "provenance.parquet")
		Expect(dataset.SaveProvenanceParquet(records, fn)).To(Succeed())

		fr, err := local.NewLocalFileReader(fn)
		Expect(err).NotTo(HaveOccurred())
		defer fr.Close()

		pr, err := reader.NewParquetReader(fr, new(dataset.ProvenanceRecord), 1)
		Expect(err).NotTo(HaveOccurred())
		defer pr.ReadStop()

		Expect(pr.GetNumRows()).To(Equal(int64(2)))
	})
})
