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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/hako/durafmt"
	"github.com/penny-vault/pvebitda/backblaze"
	"github.com/penny-vault/pvebitda/dataset"
	"github.com/penny-vault/pvebitda/ebitda"
	"github.com/penny-vault/pvebitda/healthcheck"
	"github.com/penny-vault/pvebitda/provider"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build the EBITDA dataset",
	Long: `The generate sub-command reads the input dataset, resolves EBITDA for
every ticker using the configured provider, and writes the augmented dataset.
Tickers are resolved one at a time; a provider failure for one ticker leaves
its EBITDA empty and does not stop the run.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		logger := log.With().Str("RunID", uuid.New().String()).Logger()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logger.WithContext(ctx)

		hc := healthcheck.New(cfg.Healthchecks)
		if hc.Enabled() {
			if err := hc.Start(ctx); err != nil {
				logger.Warn().Err(err).Msg("could not signal run start to healthchecks.io")
			}
		}

		src, err := provider.New(cfg)
		if err != nil {
			logger.Fatal().Err(err).Str("Provider", cfg.Provider).Msg("could not create provider")
		}

		logger.Info().Str("Provider", src.Name()).Int("TargetYear", cfg.TargetYear).Msg("generating dataset")

		generator := dataset.NewGenerator(ebitda.NewResolver(src, cfg.TargetYear))
		result, err := generator.Run(ctx, cfg.Input, cfg.Output)
		if err != nil {
			if hc.Enabled() {
				if pingErr := hc.Fail(ctx, err.Error()); pingErr != nil {
					logger.Warn().Err(pingErr).Msg("could not signal failure to healthchecks.io")
				}
			}
			logger.Fatal().Err(err).Msg("dataset generation failed")
		}

		artifacts := []string{cfg.Output}
		records := dataset.Provenance(result.Rows)

		if cfg.Provenance.CSV != "" {
			if err := dataset.SaveProvenanceCSV(records, cfg.Provenance.CSV); err != nil {
				logger.Error().Err(err).Msg("failed writing provenance csv")
			}
		}

		if cfg.Provenance.Parquet != "" {
			if err := dataset.SaveProvenanceParquet(records, cfg.Provenance.Parquet); err != nil {
				logger.Error().Err(err).Msg("failed writing parquet file")
			} else {
				artifacts = append(artifacts, cfg.Provenance.Parquet)
			}
		}

		if cfg.Backblaze.Enabled() {
			if err := backblaze.Upload(cfg.Backblaze, cfg.TargetYear, artifacts...); err != nil {
				logger.Error().Err(err).Msg("failed uploading files to Backblaze")
			}
		}

		summary := result.Summary
		r, _ := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)

		out, err := r.Render(summary.Markdown())
		if err != nil {
			logger.Error().Err(err).Msg("could not render run summary")
		} else {
			fmt.Print(out)
		}

		logger.Info().Str("RunTime", durafmt.Parse(summary.Runtime()).String()).Int("NumRows", summary.Rows).
			Int("NumMissing", summary.Missing).Msg("successfully generated dataset")

		if hc.Enabled() {
			if err := hc.Ping(ctx, fmt.Sprintf("%d rows, %d missing, %d provider errors", summary.Rows, summary.Missing, summary.Failed)); err != nil {
				logger.Warn().Err(err).Msg("could not ping healthchecks.io")
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().String("input", "", "input CSV file (default data/KaggleData.csv)")
	generateCmd.Flags().String("output", "", "output CSV file (default data/FinancialData.csv)")
	generateCmd.Flags().Int("year", 0, "target fiscal year (default 2024)")
	generateCmd.Flags().String("provider", "", fmt.Sprintf("financial data provider %v (default yahoo)", provider.Names()))
	generateCmd.Flags().String("provenance-csv", "", "write the source of every EBITDA value to this CSV file")
	generateCmd.Flags().String("provenance-parquet", "", "write the source of every EBITDA value to this parquet file")

	bindings := map[string]string{
		"input":              "input",
		"output":             "output",
		"year":               "target_year",
		"provider":           "provider",
		"provenance-csv":     "provenance.csv",
		"provenance-parquet": "provenance.parquet",
	}

	for flag, key := range bindings {
		if err := viper.BindPFlag(key, generateCmd.Flags().Lookup(flag)); err != nil {
			log.Panic().Err(err).Str("Flag", flag).Msg("BindPFlag failed")
		}
	}
}
