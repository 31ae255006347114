package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gregiteen/ai-devices/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show where the configuration file lives",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := config.Path()
		state := "not written yet"
		if _, err := os.Stat(path); err == nil {
			state = "present"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", path, state)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := writeConfig(configForce)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var configForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

// writeConfig saves the loaded configuration, defaults and environment
// overrides included. An existing file is kept unless force is set.
func writeConfig(force bool) (string, error) {
	path := config.Path()
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("config %s already exists, use --force to overwrite", path)
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if err := config.Save(cfg); err != nil {
		return "", err
	}
	return path, nil
}
