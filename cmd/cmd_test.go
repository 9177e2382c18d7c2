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
package cmd

import (
	"bytes"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvebitda/pkginfo"
)

var _ = Describe("Commands", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		rootCmd.SetOut(buf)
		GinkgoT().Setenv("HOME", GinkgoT().TempDir())
	})

	AfterEach(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		short = false
		deps = false
	})

	It("prints the short version", func() {
		pkginfo.Version = "1.2.3"
		rootCmd.SetArgs([]string{"version", "--short"})

		Expect(rootCmd.Execute()).To(Succeed())
		Expect(buf.String()).To(Equal("1.2.3\n"))
	})

	It("lists every provider", func() {
		rootCmd.SetArgs([]string{"providers"})

		Expect(rootCmd.Execute()).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("yahoo"))
		Expect(buf.String()).To(ContainSubstring("sharadar"))
		Expect(buf.String()).To(ContainSubstring("eodhd"))
	})

	It("describes a provider's settings", func() {
		rootCmd.SetArgs([]string{"providers", "eodhd"})

		Expect(rootCmd.Execute()).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("eodhd.apikey"))
	})

	It("binds generate flags to configuration keys", func() {
		input := filepath.Join(GinkgoT().TempDir(), "in.csv")
		Expect(generateCmd.Flags().Set("input", input)).To(Succeed())
		Expect(generateCmd.Flags().Set("year", "2023")).To(Succeed())

		cfg := loadConfig()
		Expect(cfg.Input).To(Equal(input))
		Expect(cfg.TargetYear).To(Equal(2023))
		Expect(cfg.Output).To(Equal("data/FinancialData.csv"))
	})
})
