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
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/penny-vault/pvebitda/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pvebitda",
	Short: "pvebitda adds EBITDA and EBITDA margin to the Fortune 1000 dataset",
	Long: `pvebitda is a command line utility that augments a company dataset with
EBITDA figures pulled from a financial data provider.

For every ticker in the input the most authoritative figure available is
used:

	1. the annual EBITDA reported for the target fiscal year
	2. the trailing twelve months (sum of the last four quarters)
	3. the annual EBITDA of the most recent earlier fiscal year

EBITDA margin is computed against the Revenues_M column and columns that are
not needed for analysis are removed before the dataset is written.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pvebitda.toml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	if err := viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for log-level failed")
	}
}

// initConfig reads in .env, config file, and ENV variables if set.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env file")
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".pvebitda" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("toml")
		viper.SetConfigName(".pvebitda")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	err := viper.ReadInConfig()
	configureLogging(viper.GetString("log.level"), viper.GetString("log.output"))

	if err == nil {
		log.Info().Str("ConfigFN", viper.ConfigFileUsed()).Msg("Using config file")
	} else if cfgFile != "" {
		log.Fatal().Err(err).Str("ConfigFN", cfgFile).Msg("could not read config file")
	}
}

func configureLogging(level, output string) {
	out := os.Stdout
	if output == "stderr" {
		out = os.Stderr
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)
}

// loadConfig builds the typed configuration from the global viper instance
func loadConfig() *config.Config {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	return cfg
}
