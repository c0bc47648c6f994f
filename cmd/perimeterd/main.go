package main

import (
	"fmt"
	"os"
	"perimeterd/internal/di"
	"perimeterd/internal/providers"
	"perimeterd/internal/structures"

	"github.com/spf13/cobra"
)

var flags structures.CliFlags

var rootCmd = &cobra.Command{
	Use:           "perimeterd",
	Short:         "Safety perimeter controller for a voice-channel audio player",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := di.InitApp(&flags)
		return err
	},
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Load and validate the configuration file, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := providers.NewConfigProvider(&flags)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config ok: %s (%d operators, bridge %s)\n",
			conf.Path, len(conf.Perimeter.OperatorIDs), conf.Bridge.BaseURL)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&flags.DebugMode, "debug", false, "enable debug logging")
	rootCmd.AddCommand(checkConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "perimeterd:", err)
		os.Exit(1)
	}
}
