// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the evidence-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/internal/config"
	"github.com/pdiddy/evidence-engine/internal/secrets"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg holds the settings resolved at startup.
	cfg types.AssistantConfig

	// creds holds the provider keys from .secrets/ or the environment.
	creds secrets.Credentials

	logger = zap.NewNop()
)

// rootCmd is the base command for the evidence-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "evidence-engine",
	Short: "Answer questions about supplement evidence",
	Long: `evidence-engine answers free-text questions about a curated corpus of
supplement studies, ingredient data and strategic analyses. Each question is
matched to topics, the most relevant studies and sections are packed into a
bounded context, and a language model answers from it. Claude is tried first,
then OpenAI, then a built-in keyword answer, so some answer is always given.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = loaded

		l, err := config.InitLogger(cfg.Log)
		if err != nil {
			return err
		}
		logger = l

		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		creds = secrets.Resolve(secretsDir)
		cfg.Providers.Anthropic.APIKey = creds.Anthropic
		cfg.Providers.OpenAI.APIKey = creds.OpenAI

		var keys []string
		if creds.Anthropic != "" {
			keys = append(keys, secrets.AnthropicKey)
		}
		if creds.OpenAI != "" {
			keys = append(keys, secrets.OpenAIKey)
		}
		if len(keys) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./evidence-engine.yaml or ~/.config/evidence-engine/config.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of provider key files")
	rootCmd.PersistentFlags().String("corpus-dir", "", "corpus directory (default: embedded corpus)")
	viper.BindPFlag("corpus.dir", rootCmd.PersistentFlags().Lookup("corpus-dir"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("evidence-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "evidence-engine"))
		}
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
