package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tgienger/taskhours/internal/config"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFiles(opts.configPath(), opts.envFile)
			if err != nil {
				return err
			}
			out, err := renderConfig(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return cfg.Validate()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print where the config file is read from",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), opts.configPath())
		},
	})

	return cmd
}

// renderConfig marshals cfg with the REST key masked
func renderConfig(cfg *config.Config) (string, error) {
	masked := *cfg
	if masked.REST.Key != "" {
		masked.REST.Key = "********"
	}
	b, err := yaml.Marshal(&masked)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(b), nil
}
