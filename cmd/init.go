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
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/gosimple/slug"
	"github.com/pelletier/go-toml/v2"
	"github.com/penny-vault/pvebitda/config"
	"github.com/penny-vault/pvebitda/healthcheck"
	"github.com/penny-vault/pvebitda/pkginfo"
	"github.com/penny-vault/pvebitda/provider"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	monitorSchedule = "0 6 * * 1"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a pvebitda configuration file",
	Long: `The init sub-command walks through the settings needed to run generate
and saves them to $HOME/.pvebitda.toml (or the file named by --config).
Optionally a healthchecks.io monitor is created for scheduled runs.`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			confirmed bool
			monitored bool
			hcAPIKey  string
		)

		ctx := context.Background()
		defaults := config.Default()

		providerName := defaults.Provider
		input := defaults.Input
		output := defaults.Output
		year := strconv.Itoa(defaults.TargetYear)

		providerOptions := make([]huh.Option[string], 0, len(provider.Map))
		for _, name := range provider.Names() {
			providerOptions = append(providerOptions, huh.NewOption[string](name, name))
		}

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Which financial data provider should be used?").
					Options(providerOptions...).
					Value(&providerName),
				huh.NewInput().
					Title("Where is the input dataset?").
					Value(&input),
				huh.NewInput().
					Title("Where should the generated dataset be written?").
					Value(&output),
				huh.NewInput().
					Title("Which fiscal year should be preferred?").
					Value(&year).
					Validate(func(s string) error {
						_, err := strconv.Atoi(s)
						return err
					}),
				huh.NewConfirm().
					Title("Should a healthchecks.io monitor be created for scheduled runs?").
					Value(&monitored),
			),
		)

		if err := form.Run(); err != nil {
			log.Fatal().Err(err).Msg("failed to create wizard")
		}

		// second page asks for the settings of the chosen provider
		settings := provider.Map[providerName].ConfigDescription()
		keys := make([]string, 0, len(settings))
		for key := range settings {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		values := make(map[string]*string, len(settings))
		fields := make([]huh.Field, 0, len(settings)+1)
		for _, key := range keys {
			val := ""
			values[key] = &val
			fields = append(fields, huh.NewInput().Title(settings[key]).Value(values[key]))
		}

		if monitored {
			fields = append(fields, huh.NewInput().Title("Enter your healthchecks.io API key:").Value(&hcAPIKey))
		}

		if len(fields) > 0 {
			if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
				log.Fatal().Err(err).Msg("failed to create wizard")
			}
		}

		v := viper.New()
		v.Set("provider", providerName)
		v.Set("input", input)
		v.Set("output", output)
		v.Set("target_year", year)
		for key, val := range values {
			if *val != "" {
				v.Set(fmt.Sprintf("%s.%s", providerName, key), *val)
			}
		}

		if hcAPIKey != "" {
			v.Set("healthchecks.apikey", hcAPIKey)
		}

		cfg, err := config.Load(v)
		if err != nil {
			log.Fatal().Err(err).Msg("configuration is not valid")
		}

		configFN := cfgFile
		if configFN == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				log.Fatal().Err(err).Msg("could not determine user home directory")
			}
			configFN = filepath.Join(home, ".pvebitda.toml")
		}

		printConfigSummary(cfg, configFN, monitored)

		confirmForm := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Save configuration?").
					Value(&confirmed),
			),
		)

		if err := confirmForm.Run(); err != nil {
			log.Fatal().Err(err).Msg("failed to create wizard")
		}

		if !confirmed {
			log.Info().Msg("Not saving configuration")
			return
		}

		if monitored {
			checkSlug := slug.Make(fmt.Sprintf("%s %s %d", pkginfo.Name, cfg.Provider, cfg.TargetYear))
			checkID, err := healthcheck.New(cfg.Healthchecks).Create(ctx,
				fmt.Sprintf("%s generate (%s %d)", pkginfo.Name, cfg.Provider, cfg.TargetYear),
				checkSlug,
				[]string{pkginfo.Name, cfg.Provider},
				monitorSchedule,
			)
			if err != nil {
				log.Fatal().Err(err).Msg("creating healthcheck failed")
			}
			cfg.Healthchecks.CheckID = checkID
		}

		configData, err := toml.Marshal(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal configuration data")
		}

		// the file may hold api keys
		if err := os.WriteFile(configFN, configData, 0o600); err != nil {
			log.Fatal().Err(err).Str("FileName", configFN).Msg("could not save configuration to file")
		}

		log.Info().Str("ConfigFile", configFN).Msg("configuration saved")
	},
}

func printConfigSummary(cfg *config.Config, configFN string, monitored bool) {
	var sb strings.Builder
	keyword := func(s string) string {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Render(s)
	}

	isMonitored := "no"
	if monitored {
		isMonitored = "yes"
	}

	fmt.Fprintf(&sb,
		"%s\n\nFile: %s\nProvider: %s\nInput: %s\nOutput: %s\nTarget Year: %s\nMonitored: %s\n",
		lipgloss.NewStyle().Bold(true).Render("PVEBITDA CONFIGURATION"),
		keyword(configFN),
		keyword(cfg.Provider),
		keyword(cfg.Input),
		keyword(cfg.Output),
		keyword(strconv.Itoa(cfg.TargetYear)),
		keyword(isMonitored),
	)

	fmt.Println(
		lipgloss.NewStyle().
			Width(60).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2).
			Render(sb.String()),
	)
}

func init() {
	rootCmd.AddCommand(initCmd)
}
