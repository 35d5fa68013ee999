package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/galley/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage galley configuration",
		Long: `Manage galley configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (GALLEY_*)
3. Config file (~/.galley/config.yaml)
4. Defaults`,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if used := a.v.ConfigFileUsed(); used != "" {
				fmt.Fprintf(a.errOut, "Configuration file: %s\n", used)
			} else {
				fmt.Fprintln(a.errOut, "No configuration file found (using defaults and environment)")
			}
			out, err := config.Marshal(a.cfg)
			if err != nil {
				return err
			}
			_, err = a.out.Write(out)
			return err
		},
	}

	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the default configuration file",
		Long:        "Create a configuration file with every option at its default, at --config or ~/.galley/config.yaml.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoConfig: "true"},
		RunE: func(*cobra.Command, []string) error {
			path := a.cfgFile
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created default configuration: %s\n", path)
			return nil
		},
	}

	cmd.AddCommand(show, initCmd)
	return cmd
}
