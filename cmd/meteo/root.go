package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	var configFlag string

	root := &cobra.Command{
		Use:   "meteo",
		Short: "Weather and presence station collector",
		Long: `meteo samples the sensors attached to a station, stores every
reading in SQLite and serves the stored series over HTTP.

The configuration file is taken from --config, then the METEO_CONFIG
environment variable, then configs/config.yaml.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "path to config.yaml")

	configPath := func() string { return getConfigPath(configFlag) }

	root.AddCommand(
		newRunCmd(configPath),
		newOnceCmd(configPath),
		newExportCmd(configPath),
		newMigrateCmd(configPath),
	)
	return root
}
