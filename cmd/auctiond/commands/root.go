package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/auctionledger/auctiond/config"
)

var conf = config.DefaultConfig()

// RootCommand constructs the command-line entry point for auctiond.
func RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auctiond",
		Short: "Deterministic auction ledger node",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == versionCmd.Name() {
				return nil
			}
			return parseConfig(cmd)
		},
	}

	home := os.ExpandEnv(filepath.Join("$HOME", config.DefaultAuctiondDir))
	cmd.PersistentFlags().String("home", home, "directory for config and data")
	cmd.PersistentFlags().String("log-level", conf.LogLevel, "log level")
	cmd.PersistentFlags().String("log-format", conf.LogFormat, "log format (plain or json)")

	cmd.AddCommand(startCmd)
	cmd.AddCommand(versionCmd)
	return cmd
}

// parseConfig layers flags over environment variables (AUCTIOND_*) over an
// optional config.toml in the home directory over defaults.
func parseConfig(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	viper.SetEnvPrefix("AUCTIOND")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	home := viper.GetString("home")
	viper.SetConfigName("config")
	viper.AddConfigPath(home)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(conf); err != nil {
		return err
	}
	conf.RootDir = home

	return conf.ValidateBasic()
}
