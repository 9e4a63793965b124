// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the gioia-engine CLI. Each pipeline
// stage of a session is a subcommand; sessions persist between invocations
// in the store directory.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/gioia-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/, .env, and the
// environment at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the gioia-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "gioia-engine",
	Short: "LLM-assisted Gioia coding and literature review",
	Long: `gioia-engine runs a Gioia-method qualitative analysis over a corpus of
papers. Documents come from academic search or local uploads and are coded
into first-order concepts, second-order themes, and aggregate dimensions.
The coded data structure then feeds theory brainstorming, interrelationship
analysis, model construction, and an iterative critique loop.

Every stage is a subcommand operating on a session stored under the store
directory. Create one with "session new" and pass --session to the stage
commands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogging(cmd)
		s, err := secrets.Resolve(".secrets/", ".env")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			slog.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./gioia-engine.yaml or ~/.config/gioia-engine/gioia-engine.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("store", "", "session store directory (default .gioia)")
	_ = viper.BindPFlag("store.dir", rootCmd.PersistentFlags().Lookup("store"))
}

func initConfig() {
	setDefaults(viper.GetViper())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("gioia-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "gioia-engine"))
		}
	}

	viper.SetEnvPrefix("GIOIA_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// initLogging installs the default slog logger at the level selected by
// the --verbose flag of cmd.
func initLogging(cmd *cobra.Command) {
	level := slog.LevelInfo
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
