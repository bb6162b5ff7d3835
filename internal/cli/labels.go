package cli

import (
	"fmt"
	"io"

	"github.com/Brownie44l1/pesticide-api/internal/config"
	"github.com/Brownie44l1/pesticide-api/internal/pesticide"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List the classes and their fact sheets",
	RunE: func(cmd *cobra.Command, args []string) error {
		writeCatalog(cmd.OutOrStdout())
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Print the configuration after applying, highest first:
1. CLI flags
2. Environment variables (PESTICIDE_*, PORT)
3. Config file
4. Defaults`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Configuration file: %s\n\n", used)
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(labelsCmd)
	rootCmd.AddCommand(configCmd)
}

func writeCatalog(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Label", "Description", "Mode of Action", "Examples", "Application"})
	table.SetAutoWrapText(true)
	table.SetRowLine(true)
	for _, e := range pesticide.Catalog() {
		table.Append([]string{e.Label.String(), e.Description, e.ModeOfAction, e.Examples, e.Application})
	}
	table.Render()
}
