// file: cmd/config.go
// version: 1.0.0
// guid: 6621c3a6-67ce-4187-a166-27421a3fb9f3

package cmd

import (
	"fmt"

	"github.com/jdfalk/anime-organizer/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Show, check and save the configuration",
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(config.AppConfig.ToMap())
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	configSaveCmd = &cobra.Command{
		Use:   "save [path]",
		Short: "Write the effective configuration to a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ConfigFilePath()
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.SaveConfigToFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved configuration to %s\n", path)
			return nil
		},
	}

	configCheckCmd = &cobra.Command{
		Use:   "check <path>",
		Short: "Load a config file over the current settings and validate it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadConfigFromFile(args[0]); err != nil {
				return err
			}
			if err := config.Validate(config.AppConfig); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", args[0])
			return nil
		},
	}
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSaveCmd)
	configCmd.AddCommand(configCheckCmd)
}
