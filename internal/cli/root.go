package cli

import (
	"fmt"
	"log/slog"

	"github.com/Brownie44l1/pesticide-api/internal/config"
	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "v0.2.0"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pesticide",
	Short: "Pesticide image classifier",
	Long: `Classifies pesticide labels and spray patterns into one of seven
categories with a pretrained CNN, and serves a small web UI and JSON API
around it.

Predictions below 0.70 confidence are flagged for manual verification.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Init(viper.GetViper(), cfgFile)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pesticide %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or $HOME/.pesticide/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().String("model", "", "path to the ONNX model")
	rootCmd.PersistentFlags().String("metadata", "", "path to the model metadata JSON")
	rootCmd.PersistentFlags().String("onnx-lib", "", "path to the onnxruntime shared library")

	_ = viper.BindPFlag("model_path", rootCmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("metadata_path", rootCmd.PersistentFlags().Lookup("metadata"))
	_ = viper.BindPFlag("onnx_library_path", rootCmd.PersistentFlags().Lookup("onnx-lib"))

	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the configuration and the logger for a command.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, nil, err
	}
	if verbose {
		cfg.LogLevel = "DEBUG"
	}
	return cfg, logs.GetLoggerFromString(cfg.LogLevel), nil
}
