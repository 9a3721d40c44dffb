package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var writeConfig bool

// configCmd shows the effective configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration, or save it with --write",
	Long: `Prints the configuration after the config file, environment variables and
flags have been applied. With --write the result is saved to the --config path,
which makes a starting point for a new rulediff.yaml.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&writeConfig, "write", false, "Save the effective configuration to the --config path")
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if !writeConfig {
		return cfg.Encode(out)
	}
	if err := cfg.Save(configPath); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s\n", configPath)
	return nil
}
